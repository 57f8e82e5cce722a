package repository

import (
	"context"
	"database/sql"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
)

// ReservationRepo provides inserts and reads on the reservations table.
// All timestamp fields are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, account_id, slot_id, bay_index, booking_code, fee, status, idempotency_key, created_at, expires_at`

func scanReservation(row rowScanner) (model.Reservation, error) {
	var (
		r   model.Reservation
		key sql.NullString
	)
	err := row.Scan(&r.ID, &r.AccountID, &r.SlotID, &r.BayIndex, &r.BookingCode, &r.Fee,
		&r.Status, &key, &r.CreatedAt, &r.ExpiresAt)
	r.IdempotencyKey = key.String
	return r, err
}

// CreateTx inserts a reservation within the scope of an existing
// transaction.  The caller must commit or rollback the transaction.  A
// booking code collision surfaces as store.ErrStale so the caller retries
// with a new code.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res model.Reservation) error {
	const q = `INSERT INTO reservations (` + reservationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var key sql.NullString
	if res.IdempotencyKey != "" {
		key = sql.NullString{String: res.IdempotencyKey, Valid: true}
	}
	_, err := tx.ExecContext(ctx, q, res.ID, res.AccountID, res.SlotID, res.BayIndex, res.BookingCode,
		res.Fee, string(res.Status), key, res.CreatedAt.UTC(), res.ExpiresAt.UTC())
	return classifyWrite(err)
}

// ListByAccount returns the reservations of an account, newest first.
func (r *ReservationRepo) ListByAccount(ctx context.Context, accountID string) ([]model.Reservation, error) {
	return r.list(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE account_id = ? ORDER BY created_at DESC, id",
		accountID)
}

// ListRecent returns the latest reservations across all accounts.
func (r *ReservationRepo) ListRecent(ctx context.Context, limit int) ([]model.Reservation, error) {
	return r.list(ctx,
		"SELECT "+reservationColumns+" FROM reservations ORDER BY created_at DESC, id LIMIT ?",
		limit)
}

func (r *ReservationRepo) list(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
