package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// AccountRepo encapsulates the queries on the accounts table.
type AccountRepo struct {
	db *sql.DB
}

// NewAccountRepo constructs an AccountRepo with the provided DB handle.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, display_name, email, photo_url, short_code, wallet_balance, created_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.DisplayName, &a.Email, &a.PhotoURL, &a.ShortCode,
		&a.Wallet.Balance, &a.CreatedAt, &a.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return a, store.ErrNotFound
	}
	return a, err
}

// FindAccount fetches an account by its principal id.
func (r *AccountRepo) FindAccount(ctx context.Context, id string) (model.Account, error) {
	return scanAccount(r.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ? LIMIT 1", id))
}

// GetTx reads an account inside tx from the transaction's snapshot.
func (r *AccountRepo) GetTx(ctx context.Context, tx *sql.Tx, id string) (model.Account, error) {
	return scanAccount(tx.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ? LIMIT 1", id))
}

// ShortCodeTaken reports whether any account owns code.
func (r *AccountRepo) ShortCodeTaken(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE short_code = ?", code).Scan(&n)
	return n > 0, err
}

// CreateAccount inserts a.  The primary key makes the insert
// create-if-absent: a concurrent insert of the same id loses with
// ErrAccountExists and a taken short code yields ErrShortCodeTaken.
func (r *AccountRepo) CreateAccount(ctx context.Context, a model.Account) error {
	const q = `INSERT INTO accounts (id, display_name, email, photo_url, short_code, wallet_balance, created_at, version)
	           VALUES (?, ?, ?, ?, ?, ?, ?, 1)`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.DisplayName, a.Email, a.PhotoURL, a.ShortCode,
		a.Wallet.Balance, a.CreatedAt.UTC())
	switch {
	case err == nil:
		return nil
	case isDuplicate(err, keyAccountsShortCode):
		return store.ErrShortCodeTaken
	case isDuplicate(err, "PRIMARY"):
		return store.ErrAccountExists
	}
	return err
}

// CreditWallet adds amount to the balance in a single statement and
// returns the updated account.
func (r *AccountRepo) CreditWallet(ctx context.Context, id string, amount decimal.Decimal) (model.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Account{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"UPDATE accounts SET wallet_balance = wallet_balance + ?, version = version + 1 WHERE id = ?",
		amount, id)
	if err != nil {
		return model.Account{}, classifyWrite(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Account{}, store.ErrNotFound
	}
	a, err := r.GetTx(ctx, tx, id)
	if err != nil {
		return model.Account{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Account{}, err
	}
	committed = true
	return a, nil
}

// ListAccounts returns up to limit accounts, newest first, plus the total
// number of accounts.
func (r *AccountRepo) ListAccounts(ctx context.Context, limit int) ([]model.Account, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM accounts").Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+accountColumns+" FROM accounts ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UpdateTx writes the patched account inside tx, conditioned on the
// version read earlier.  Zero rows affected means another transaction
// committed first.
func (r *AccountRepo) UpdateTx(ctx context.Context, tx *sql.Tx, a model.Account, readVersion uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE accounts SET wallet_balance = ?, version = version + 1 WHERE id = ? AND version = ?",
		a.Wallet.Balance, a.ID, readVersion)
	if err != nil {
		return classifyWrite(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrStale
	}
	return nil
}

// VersionTx locks the account row and returns its current version.
func (r *AccountRepo) VersionTx(ctx context.Context, tx *sql.Tx, id string) (uint64, error) {
	return lockVersion(ctx, tx, "SELECT version FROM accounts WHERE id = ? FOR UPDATE", id)
}

func lockVersion(ctx context.Context, tx *sql.Tx, q, id string) (uint64, error) {
	var v uint64
	err := tx.QueryRowContext(ctx, q, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrStale
	}
	if err != nil {
		return 0, classifyWrite(err)
	}
	return v, nil
}

func utcNow() time.Time { return time.Now().UTC() }
