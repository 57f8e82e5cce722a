// Package store defines the persistence contract the reservation engine
// and the account provisioner rely on.  A store offers point reads,
// explicit partial updates, an atomic wallet increment and a
// transactional context whose commit is conditioned on every record it
// read being unchanged.
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
)

var (
	// ErrNotFound is returned when a point read finds no record.
	ErrNotFound = errors.New("store: record not found")

	// ErrStale is returned by Commit when a record read in the
	// transaction was modified by another committed transaction, or when
	// an inserted reservation collides with an existing booking code.
	// Nothing is applied when it is returned.
	ErrStale = errors.New("store: stale read")

	// ErrNotRead is returned when a transaction tries to update a record
	// it has not read.  Without a read there is no version to condition
	// the commit on.
	ErrNotRead = errors.New("store: record not read in transaction")

	// ErrTxDone is returned when a finished transaction is used again.
	ErrTxDone = errors.New("store: transaction already finished")

	// ErrAccountExists is returned by CreateAccount when an account with
	// the same id is already present.
	ErrAccountExists = errors.New("store: account already exists")

	// ErrShortCodeTaken is returned by CreateAccount when another account
	// already owns the short code.
	ErrShortCodeTaken = errors.New("store: short code taken")

	// ErrSlotExists is returned by CreateSlot for a duplicate slot id.
	ErrSlotExists = errors.New("store: slot already exists")

	// ErrNegativeBalance is returned when a write would leave a wallet
	// below zero.
	ErrNegativeBalance = errors.New("store: wallet balance would become negative")

	// ErrInconsistentSlot is returned when a slot write would break the
	// available count invariant.
	ErrInconsistentSlot = errors.New("store: slot available count does not match bays")
)

// AccountPatch names the account fields a transaction changes.  Nil
// fields are left untouched.
type AccountPatch struct {
	Balance *decimal.Decimal
}

// BayUpdate sets the availability flag of a single bay.
type BayUpdate struct {
	Index     int
	Available bool
}

// SlotPatch names the slot fields a transaction changes.
type SlotPatch struct {
	Bay            *BayUpdate
	AvailableCount *int
}

// OperatorPatch names the operator wallet fields a transaction changes.
type OperatorPatch struct {
	Balance        *decimal.Decimal
	TotalCollected *decimal.Decimal
}

// Tx is the transactional context handed to a TxFunc.  Reads observe a
// consistent snapshot; writes are buffered and only become visible when
// the surrounding transaction commits.  Updates are only accepted for
// records previously read through the same Tx.
type Tx interface {
	Account(ctx context.Context, id string) (model.Account, error)
	Slot(ctx context.Context, id string) (model.Slot, error)
	Operator(ctx context.Context, id string) (model.OperatorAccount, error)

	UpdateAccount(id string, p AccountPatch) error
	UpdateSlot(id string, p SlotPatch) error
	UpdateOperator(id string, p OperatorPatch) error
	InsertReservation(r model.Reservation) error
}

// Txn is a Tx owned by the caller that must be finished with Commit or
// Rollback.
type Txn interface {
	Tx
	// Commit applies every buffered write atomically, or returns ErrStale
	// and applies nothing.
	Commit(ctx context.Context) error
	// Rollback discards the transaction.  It is safe to call after Commit.
	Rollback() error
}

// Transactor starts transactions.
type Transactor interface {
	Begin(ctx context.Context) (Txn, error)
}

// AccountStore holds the non-transactional account operations used by the
// provisioner and the wallet boundary.
type AccountStore interface {
	FindAccount(ctx context.Context, id string) (model.Account, error)
	ShortCodeTaken(ctx context.Context, code string) (bool, error)
	// CreateAccount inserts a only if no account with a.ID exists.
	CreateAccount(ctx context.Context, a model.Account) error
	// CreditWallet atomically adds amount to the account balance.
	CreditWallet(ctx context.Context, id string, amount decimal.Decimal) (model.Account, error)
	ListAccounts(ctx context.Context, limit int) ([]model.Account, int, error)
}

// Inventory holds slot and reservation reads plus the operator setup
// operations.  None of these touch wallets or bay flags of existing slots.
type Inventory interface {
	CreateSlot(ctx context.Context, s model.Slot) error
	FindSlot(ctx context.Context, id string) (model.Slot, error)
	ListSlots(ctx context.Context) ([]model.Slot, error)
	ListReservationsByAccount(ctx context.Context, accountID string) ([]model.Reservation, error)
	ListReservations(ctx context.Context, limit int) ([]model.Reservation, error)
	EnsureOperator(ctx context.Context, id string) (model.OperatorAccount, error)
	FindOperator(ctx context.Context, id string) (model.OperatorAccount, error)
}

// Store is the full persistence contract.
type Store interface {
	Transactor
	AccountStore
	Inventory
}

// ApplySlotPatch returns a copy of s with p applied.
func ApplySlotPatch(s model.Slot, p SlotPatch) (model.Slot, error) {
	out := s.Clone()
	if p.Bay != nil {
		if !out.HasBay(p.Bay.Index) {
			return out, errors.New("store: bay index out of range")
		}
		out.Bays[p.Bay.Index] = p.Bay.Available
	}
	if p.AvailableCount != nil {
		out.AvailableCount = *p.AvailableCount
	}
	if !out.Consistent() {
		return out, ErrInconsistentSlot
	}
	return out, nil
}

// ApplyAccountPatch returns a copy of a with p applied.
func ApplyAccountPatch(a model.Account, p AccountPatch) model.Account {
	if p.Balance != nil {
		a.Wallet.Balance = *p.Balance
	}
	return a
}

// ApplyOperatorPatch returns a copy of o with p applied.
func ApplyOperatorPatch(o model.OperatorAccount, p OperatorPatch) model.OperatorAccount {
	if p.Balance != nil {
		o.Wallet.Balance = *p.Balance
	}
	if p.TotalCollected != nil {
		o.Wallet.TotalCollected = *p.TotalCollected
	}
	return o
}
