package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// OperatorRepo provides access to the operator_accounts table that holds
// the wallet collecting reservation fees.
type OperatorRepo struct {
	db *sql.DB
}

// NewOperatorRepo returns a new OperatorRepo bound to db.
func NewOperatorRepo(db *sql.DB) *OperatorRepo { return &OperatorRepo{db: db} }

const operatorColumns = `id, wallet_balance, total_collected, created_at, version`

func scanOperator(row rowScanner) (model.OperatorAccount, error) {
	var o model.OperatorAccount
	err := row.Scan(&o.ID, &o.Wallet.Balance, &o.Wallet.TotalCollected, &o.CreatedAt, &o.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return o, store.ErrNotFound
	}
	return o, err
}

// EnsureOperator creates the operator account with an empty wallet when
// it does not exist yet and returns the stored record.
func (r *OperatorRepo) EnsureOperator(ctx context.Context, id string) (model.OperatorAccount, error) {
	const q = `INSERT IGNORE INTO operator_accounts (id, wallet_balance, total_collected, created_at, version)
	           VALUES (?, 0, 0, ?, 1)`
	if _, err := r.db.ExecContext(ctx, q, id, utcNow()); err != nil {
		return model.OperatorAccount{}, err
	}
	return r.FindOperator(ctx, id)
}

// FindOperator fetches the operator account by id.
func (r *OperatorRepo) FindOperator(ctx context.Context, id string) (model.OperatorAccount, error) {
	return scanOperator(r.db.QueryRowContext(ctx,
		"SELECT "+operatorColumns+" FROM operator_accounts WHERE id = ? LIMIT 1", id))
}

// GetTx reads the operator account inside tx.
func (r *OperatorRepo) GetTx(ctx context.Context, tx *sql.Tx, id string) (model.OperatorAccount, error) {
	return scanOperator(tx.QueryRowContext(ctx,
		"SELECT "+operatorColumns+" FROM operator_accounts WHERE id = ? LIMIT 1", id))
}

// UpdateTx writes both wallet figures conditioned on the version read
// earlier.
func (r *OperatorRepo) UpdateTx(ctx context.Context, tx *sql.Tx, o model.OperatorAccount, readVersion uint64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE operator_accounts SET wallet_balance = ?, total_collected = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		o.Wallet.Balance, o.Wallet.TotalCollected, o.ID, readVersion)
	if err != nil {
		return classifyWrite(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrStale
	}
	return nil
}

// VersionTx locks the operator row and returns its current version.
func (r *OperatorRepo) VersionTx(ctx context.Context, tx *sql.Tx, id string) (uint64, error) {
	return lockVersion(ctx, tx, "SELECT version FROM operator_accounts WHERE id = ? FOR UPDATE", id)
}
