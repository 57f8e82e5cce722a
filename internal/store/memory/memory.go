// Package memory provides an in-process implementation of store.Store.
// Every record carries a version that is bumped on each committed write;
// a transaction remembers the versions it read and its commit fails with
// store.ErrStale when any of them moved.  It backs the test suites and
// STORE_DRIVER=memory local runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// Store is a versioned in-memory store.  The zero value is not usable;
// call New.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]model.Account
	shortCodes   map[string]string
	operators    map[string]model.OperatorAccount
	slots        map[string]model.Slot
	reservations []model.Reservation
	bookingCodes map[string]struct{}

	// BeforeCommit, when set, runs at the start of every Commit before the
	// store lock is taken.  Tests use it to interleave competing writers.
	BeforeCommit func()
}

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]model.Account),
		shortCodes:   make(map[string]string),
		operators:    make(map[string]model.OperatorAccount),
		slots:        make(map[string]model.Slot),
		bookingCodes: make(map[string]struct{}),
	}
}

var _ store.Store = (*Store)(nil)

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (store.Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &tx{
		s:         s,
		accounts:  make(map[string]model.Account),
		slots:     make(map[string]model.Slot),
		operators: make(map[string]model.OperatorAccount),
		acctPatch: make(map[string]store.AccountPatch),
		slotPatch: make(map[string]store.SlotPatch),
		opPatch:   make(map[string]store.OperatorPatch),
	}, nil
}

// FindAccount returns the account with the given id.
func (s *Store) FindAccount(ctx context.Context, id string) (model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, store.ErrNotFound
	}
	return a, nil
}

// ShortCodeTaken reports whether any account owns code.
func (s *Store) ShortCodeTaken(ctx context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.shortCodes[code]
	return ok, nil
}

// CreateAccount inserts a when neither its id nor its short code exist.
func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return store.ErrAccountExists
	}
	if _, ok := s.shortCodes[a.ShortCode]; ok {
		return store.ErrShortCodeTaken
	}
	a.Version = 1
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.accounts[a.ID] = a
	s.shortCodes[a.ShortCode] = a.ID
	return nil
}

// CreditWallet adds amount to the account balance.
func (s *Store) CreditWallet(ctx context.Context, id string, amount decimal.Decimal) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return model.Account{}, store.ErrNotFound
	}
	a.Wallet.Balance = a.Wallet.Balance.Add(amount)
	a.Version++
	s.accounts[id] = a
	return a, nil
}

// ListAccounts returns up to limit accounts, newest first, and the total
// number of accounts.  A limit of zero returns every account.
func (s *Store) ListAccounts(ctx context.Context, limit int) ([]model.Account, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := len(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

// CreateSlot inserts a new slot.
func (s *Store) CreateSlot(ctx context.Context, sl model.Slot) error {
	if !sl.Consistent() {
		return store.ErrInconsistentSlot
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[sl.ID]; ok {
		return store.ErrSlotExists
	}
	sl = sl.Clone()
	sl.Version = 1
	s.slots[sl.ID] = sl
	return nil
}

// FindSlot returns a copy of the slot with the given id.
func (s *Store) FindSlot(ctx context.Context, id string) (model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[id]
	if !ok {
		return model.Slot{}, store.ErrNotFound
	}
	return sl.Clone(), nil
}

// ListSlots returns every slot ordered by name, then id.
func (s *Store) ListSlots(ctx context.Context) ([]model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Slot, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, sl.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ListReservationsByAccount returns the account's reservations, newest first.
func (s *Store) ListReservationsByAccount(ctx context.Context, accountID string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reservation, 0)
	for i := len(s.reservations) - 1; i >= 0; i-- {
		if s.reservations[i].AccountID == accountID {
			out = append(out, s.reservations[i])
		}
	}
	return out, nil
}

// ListReservations returns up to limit reservations, newest first.
func (s *Store) ListReservations(ctx context.Context, limit int) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Reservation, 0)
	for i := len(s.reservations) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.reservations[i])
	}
	return out, nil
}

// EnsureOperator creates the operator account with an empty wallet when
// it does not exist and returns it.
func (s *Store) EnsureOperator(ctx context.Context, id string) (model.OperatorAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if op, ok := s.operators[id]; ok {
		return op, nil
	}
	op := model.OperatorAccount{
		ID:        id,
		Wallet:    model.OperatorWallet{Balance: decimal.Zero, TotalCollected: decimal.Zero},
		CreatedAt: time.Now().UTC(),
		Version:   1,
	}
	s.operators[id] = op
	return op, nil
}

// FindOperator returns the operator account with the given id.
func (s *Store) FindOperator(ctx context.Context, id string) (model.OperatorAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operators[id]
	if !ok {
		return model.OperatorAccount{}, store.ErrNotFound
	}
	return op, nil
}

type tx struct {
	s    *Store
	done bool

	accounts  map[string]model.Account
	slots     map[string]model.Slot
	operators map[string]model.OperatorAccount

	acctPatch    map[string]store.AccountPatch
	slotPatch    map[string]store.SlotPatch
	opPatch      map[string]store.OperatorPatch
	reservations []model.Reservation
}

func (t *tx) Account(ctx context.Context, id string) (model.Account, error) {
	if t.done {
		return model.Account{}, store.ErrTxDone
	}
	if a, ok := t.accounts[id]; ok {
		return a, nil
	}
	a, err := t.s.FindAccount(ctx, id)
	if err != nil {
		return a, err
	}
	t.accounts[id] = a
	return a, nil
}

func (t *tx) Slot(ctx context.Context, id string) (model.Slot, error) {
	if t.done {
		return model.Slot{}, store.ErrTxDone
	}
	if sl, ok := t.slots[id]; ok {
		return sl.Clone(), nil
	}
	sl, err := t.s.FindSlot(ctx, id)
	if err != nil {
		return sl, err
	}
	t.slots[id] = sl
	return sl.Clone(), nil
}

func (t *tx) Operator(ctx context.Context, id string) (model.OperatorAccount, error) {
	if t.done {
		return model.OperatorAccount{}, store.ErrTxDone
	}
	if op, ok := t.operators[id]; ok {
		return op, nil
	}
	op, err := t.s.FindOperator(ctx, id)
	if err != nil {
		return op, err
	}
	t.operators[id] = op
	return op, nil
}

func (t *tx) UpdateAccount(id string, p store.AccountPatch) error {
	if t.done {
		return store.ErrTxDone
	}
	if _, ok := t.accounts[id]; !ok {
		return store.ErrNotRead
	}
	t.acctPatch[id] = p
	return nil
}

func (t *tx) UpdateSlot(id string, p store.SlotPatch) error {
	if t.done {
		return store.ErrTxDone
	}
	if _, ok := t.slots[id]; !ok {
		return store.ErrNotRead
	}
	t.slotPatch[id] = p
	return nil
}

func (t *tx) UpdateOperator(id string, p store.OperatorPatch) error {
	if t.done {
		return store.ErrTxDone
	}
	if _, ok := t.operators[id]; !ok {
		return store.ErrNotRead
	}
	t.opPatch[id] = p
	return nil
}

func (t *tx) InsertReservation(r model.Reservation) error {
	if t.done {
		return store.ErrTxDone
	}
	t.reservations = append(t.reservations, r)
	return nil
}

func (t *tx) Rollback() error {
	t.done = true
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return store.ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.s.BeforeCommit != nil {
		t.s.BeforeCommit()
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t.done = true

	for id, read := range t.accounts {
		if cur, ok := s.accounts[id]; !ok || cur.Version != read.Version {
			return store.ErrStale
		}
	}
	for id, read := range t.slots {
		if cur, ok := s.slots[id]; !ok || cur.Version != read.Version {
			return store.ErrStale
		}
	}
	for id, read := range t.operators {
		if cur, ok := s.operators[id]; !ok || cur.Version != read.Version {
			return store.ErrStale
		}
	}
	seen := make(map[string]struct{}, len(t.reservations))
	for _, r := range t.reservations {
		if _, dup := s.bookingCodes[r.BookingCode]; dup {
			return store.ErrStale
		}
		if _, dup := seen[r.BookingCode]; dup {
			return store.ErrStale
		}
		seen[r.BookingCode] = struct{}{}
	}

	// Stage every write before touching the maps so a failing patch leaves
	// the store untouched.
	slots := make(map[string]model.Slot, len(t.slotPatch))
	for id, p := range t.slotPatch {
		next, err := store.ApplySlotPatch(s.slots[id], p)
		if err != nil {
			return err
		}
		next.Version++
		slots[id] = next
	}
	for id, p := range t.acctPatch {
		next := store.ApplyAccountPatch(s.accounts[id], p)
		if next.Wallet.Balance.IsNegative() {
			return store.ErrNegativeBalance
		}
	}

	for id, next := range slots {
		s.slots[id] = next
	}
	for id, p := range t.acctPatch {
		next := store.ApplyAccountPatch(s.accounts[id], p)
		next.Version++
		s.accounts[id] = next
	}
	for id, p := range t.opPatch {
		next := store.ApplyOperatorPatch(s.operators[id], p)
		next.Version++
		s.operators[id] = next
	}
	for _, r := range t.reservations {
		s.reservations = append(s.reservations, r)
		s.bookingCodes[r.BookingCode] = struct{}{}
	}
	return nil
}
