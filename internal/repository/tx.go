package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// txn is the MySQL store.Txn.  Every record read remembers the version it
// was read at.  Commit applies the buffered writes as conditional updates
// (WHERE version = read version) and locks records that were read but not
// written to confirm their version, so any concurrent commit in between
// surfaces as store.ErrStale and the SQL transaction is rolled back.
type txn struct {
	s  *Store
	tx *sql.Tx

	accounts  map[string]model.Account
	slots     map[string]model.Slot
	operators map[string]model.OperatorAccount

	dirtyAccounts  map[string]model.Account
	dirtySlots     map[string]model.Slot
	dirtyOperators map[string]model.OperatorAccount
	reservations   []model.Reservation

	done bool
}

func newTxn(s *Store, tx *sql.Tx) *txn {
	return &txn{
		s:              s,
		tx:             tx,
		accounts:       map[string]model.Account{},
		slots:          map[string]model.Slot{},
		operators:      map[string]model.OperatorAccount{},
		dirtyAccounts:  map[string]model.Account{},
		dirtySlots:     map[string]model.Slot{},
		dirtyOperators: map[string]model.OperatorAccount{},
	}
}

func (t *txn) Account(ctx context.Context, id string) (model.Account, error) {
	if t.done {
		return model.Account{}, store.ErrTxDone
	}
	if a, ok := t.dirtyAccounts[id]; ok {
		return a, nil
	}
	if a, ok := t.accounts[id]; ok {
		return a, nil
	}
	a, err := t.s.accounts.GetTx(ctx, t.tx, id)
	if err != nil {
		return a, err
	}
	t.accounts[id] = a
	return a, nil
}

func (t *txn) Slot(ctx context.Context, id string) (model.Slot, error) {
	if t.done {
		return model.Slot{}, store.ErrTxDone
	}
	if s, ok := t.dirtySlots[id]; ok {
		return s.Clone(), nil
	}
	if s, ok := t.slots[id]; ok {
		return s.Clone(), nil
	}
	s, err := t.s.slots.GetTx(ctx, t.tx, id)
	if err != nil {
		return s, err
	}
	t.slots[id] = s
	return s.Clone(), nil
}

func (t *txn) Operator(ctx context.Context, id string) (model.OperatorAccount, error) {
	if t.done {
		return model.OperatorAccount{}, store.ErrTxDone
	}
	if o, ok := t.dirtyOperators[id]; ok {
		return o, nil
	}
	if o, ok := t.operators[id]; ok {
		return o, nil
	}
	o, err := t.s.operators.GetTx(ctx, t.tx, id)
	if err != nil {
		return o, err
	}
	t.operators[id] = o
	return o, nil
}

func (t *txn) UpdateAccount(id string, p store.AccountPatch) error {
	if t.done {
		return store.ErrTxDone
	}
	cur, ok := t.dirtyAccounts[id]
	if !ok {
		if cur, ok = t.accounts[id]; !ok {
			return fmt.Errorf("account %q: %w", id, store.ErrNotRead)
		}
	}
	t.dirtyAccounts[id] = store.ApplyAccountPatch(cur, p)
	return nil
}

func (t *txn) UpdateSlot(id string, p store.SlotPatch) error {
	if t.done {
		return store.ErrTxDone
	}
	cur, ok := t.dirtySlots[id]
	if !ok {
		if cur, ok = t.slots[id]; !ok {
			return fmt.Errorf("slot %q: %w", id, store.ErrNotRead)
		}
	}
	next, err := store.ApplySlotPatch(cur, p)
	if err != nil {
		return err
	}
	t.dirtySlots[id] = next
	return nil
}

func (t *txn) UpdateOperator(id string, p store.OperatorPatch) error {
	if t.done {
		return store.ErrTxDone
	}
	cur, ok := t.dirtyOperators[id]
	if !ok {
		if cur, ok = t.operators[id]; !ok {
			return fmt.Errorf("operator %q: %w", id, store.ErrNotRead)
		}
	}
	t.dirtyOperators[id] = store.ApplyOperatorPatch(cur, p)
	return nil
}

func (t *txn) InsertReservation(r model.Reservation) error {
	if t.done {
		return store.ErrTxDone
	}
	t.reservations = append(t.reservations, r)
	return nil
}

// Commit applies the buffered writes.  The SQL transaction is rolled back
// on any failure so nothing partial is ever visible.
func (t *txn) Commit(ctx context.Context) (err error) {
	if t.done {
		return store.ErrTxDone
	}
	t.done = true
	defer func() {
		if err != nil {
			_ = t.tx.Rollback()
		}
	}()

	if err = t.checkUnwritten(ctx); err != nil {
		return err
	}
	for id, a := range t.dirtyAccounts {
		if a.Wallet.Balance.IsNegative() {
			return store.ErrNegativeBalance
		}
		if err = t.s.accounts.UpdateTx(ctx, t.tx, a, t.accounts[id].Version); err != nil {
			return err
		}
	}
	for id, s := range t.dirtySlots {
		if err = t.s.slots.UpdateTx(ctx, t.tx, s, t.slots[id].Version); err != nil {
			return err
		}
	}
	for id, o := range t.dirtyOperators {
		if err = t.s.operators.UpdateTx(ctx, t.tx, o, t.operators[id].Version); err != nil {
			return err
		}
	}
	for _, r := range t.reservations {
		if err = t.s.reservations.CreateTx(ctx, t.tx, r); err != nil {
			return err
		}
	}
	if err = t.tx.Commit(); err != nil {
		return classifyWrite(err)
	}
	return nil
}

// checkUnwritten locks every record that was read but not written and
// compares its version with the one observed by the read.
func (t *txn) checkUnwritten(ctx context.Context) error {
	for id, a := range t.accounts {
		if _, ok := t.dirtyAccounts[id]; ok {
			continue
		}
		v, err := t.s.accounts.VersionTx(ctx, t.tx, id)
		if err != nil {
			return err
		}
		if v != a.Version {
			return store.ErrStale
		}
	}
	for id, s := range t.slots {
		if _, ok := t.dirtySlots[id]; ok {
			continue
		}
		v, err := t.s.slots.VersionTx(ctx, t.tx, id)
		if err != nil {
			return err
		}
		if v != s.Version {
			return store.ErrStale
		}
	}
	for id, o := range t.operators {
		if _, ok := t.dirtyOperators[id]; ok {
			continue
		}
		v, err := t.s.operators.VersionTx(ctx, t.tx, id)
		if err != nil {
			return err
		}
		if v != o.Version {
			return store.ErrStale
		}
	}
	return nil
}

// Rollback discards the transaction.  It is a no-op after Commit.
func (t *txn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}
