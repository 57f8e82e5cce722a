package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// SlotRepo provides access to the slots table.  Bay flags are stored as a
// JSON array next to the denormalised available_count column.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a new SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, name, address, latitude, longitude, bays, available_count, created_at, version`

func scanSlot(row rowScanner) (model.Slot, error) {
	var (
		s    model.Slot
		bays []byte
	)
	err := row.Scan(&s.ID, &s.Name, &s.Address, &s.Location.Lat, &s.Location.Long,
		&bays, &s.AvailableCount, &s.CreatedAt, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return s, store.ErrNotFound
	}
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(bays, &s.Bays); err != nil {
		return s, err
	}
	return s, nil
}

// CreateSlot inserts s.  Duplicate ids yield store.ErrSlotExists.
func (r *SlotRepo) CreateSlot(ctx context.Context, s model.Slot) error {
	if !s.Consistent() {
		return store.ErrInconsistentSlot
	}
	bays, err := json.Marshal(s.Bays)
	if err != nil {
		return err
	}
	const q = `INSERT INTO slots (id, name, address, latitude, longitude, bays, available_count, created_at, version)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`
	_, err = r.db.ExecContext(ctx, q, s.ID, s.Name, s.Address, s.Location.Lat, s.Location.Long,
		bays, s.AvailableCount, s.CreatedAt.UTC())
	if isDuplicate(err, "PRIMARY") {
		return store.ErrSlotExists
	}
	return err
}

// FindSlot fetches a slot by id.
func (r *SlotRepo) FindSlot(ctx context.Context, id string) (model.Slot, error) {
	return scanSlot(r.db.QueryRowContext(ctx,
		"SELECT "+slotColumns+" FROM slots WHERE id = ? LIMIT 1", id))
}

// GetTx reads a slot inside tx.
func (r *SlotRepo) GetTx(ctx context.Context, tx *sql.Tx, id string) (model.Slot, error) {
	return scanSlot(tx.QueryRowContext(ctx,
		"SELECT "+slotColumns+" FROM slots WHERE id = ? LIMIT 1", id))
}

// ListSlots returns every slot ordered by name then id.
func (r *SlotRepo) ListSlots(ctx context.Context) ([]model.Slot, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+slotColumns+" FROM slots ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTx writes bays and available_count of s, conditioned on the
// version read earlier.
func (r *SlotRepo) UpdateTx(ctx context.Context, tx *sql.Tx, s model.Slot, readVersion uint64) error {
	bays, err := json.Marshal(s.Bays)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE slots SET bays = ?, available_count = ?, version = version + 1 WHERE id = ? AND version = ?",
		bays, s.AvailableCount, s.ID, readVersion)
	if err != nil {
		return classifyWrite(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrStale
	}
	return nil
}

// VersionTx locks the slot row and returns its current version.
func (r *SlotRepo) VersionTx(ctx context.Context, tx *sql.Tx, id string) (uint64, error) {
	return lockVersion(ctx, tx, "SELECT version FROM slots WHERE id = ? FOR UPDATE", id)
}
