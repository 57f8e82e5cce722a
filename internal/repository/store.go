package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// Store implements store.Store on MySQL by composing the table
// repositories.
type Store struct {
	db           *sql.DB
	accounts     *AccountRepo
	slots        *SlotRepo
	operators    *OperatorRepo
	reservations *ReservationRepo
}

var _ store.Store = (*Store)(nil)

// NewStore wires the repositories around db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:           db,
		accounts:     NewAccountRepo(db),
		slots:        NewSlotRepo(db),
		operators:    NewOperatorRepo(db),
		reservations: NewReservationRepo(db),
	}
}

func (s *Store) FindAccount(ctx context.Context, id string) (model.Account, error) {
	return s.accounts.FindAccount(ctx, id)
}

func (s *Store) ShortCodeTaken(ctx context.Context, code string) (bool, error) {
	return s.accounts.ShortCodeTaken(ctx, code)
}

func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	return s.accounts.CreateAccount(ctx, a)
}

func (s *Store) CreditWallet(ctx context.Context, id string, amount decimal.Decimal) (model.Account, error) {
	return s.accounts.CreditWallet(ctx, id, amount)
}

func (s *Store) ListAccounts(ctx context.Context, limit int) ([]model.Account, int, error) {
	return s.accounts.ListAccounts(ctx, limit)
}

func (s *Store) CreateSlot(ctx context.Context, sl model.Slot) error {
	return s.slots.CreateSlot(ctx, sl)
}

func (s *Store) FindSlot(ctx context.Context, id string) (model.Slot, error) {
	return s.slots.FindSlot(ctx, id)
}

func (s *Store) ListSlots(ctx context.Context) ([]model.Slot, error) {
	return s.slots.ListSlots(ctx)
}

func (s *Store) ListReservationsByAccount(ctx context.Context, accountID string) ([]model.Reservation, error) {
	return s.reservations.ListByAccount(ctx, accountID)
}

func (s *Store) ListReservations(ctx context.Context, limit int) ([]model.Reservation, error) {
	return s.reservations.ListRecent(ctx, limit)
}

func (s *Store) EnsureOperator(ctx context.Context, id string) (model.OperatorAccount, error) {
	return s.operators.EnsureOperator(ctx, id)
}

func (s *Store) FindOperator(ctx context.Context, id string) (model.OperatorAccount, error) {
	return s.operators.FindOperator(ctx, id)
}

// Begin opens a REPEATABLE READ transaction.  Reads come from its
// snapshot; writes are buffered until Commit.
func (s *Store) Begin(ctx context.Context) (store.Txn, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, err
	}
	return newTxn(s, tx), nil
}
