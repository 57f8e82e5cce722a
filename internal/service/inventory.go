package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// HistoryEntry is a reservation joined with the display name of its slot.
type HistoryEntry struct {
	model.Reservation
	SlotName string `json:"slot_name"`
}

// Overview summarises the system for operators.
type Overview struct {
	Operator           model.OperatorAccount `json:"operator"`
	AccountCount       int                   `json:"account_count"`
	Slots              []model.Slot          `json:"slots"`
	RecentReservations []HistoryEntry        `json:"recent_reservations"`
}

// NewSlotInput describes a slot to create.  An empty ID gets a random one.
type NewSlotInput struct {
	ID      string
	Name    string
	Address string
	Lat     float64
	Long    float64
}

// Inventory is the read layer over slots and reservations plus the
// operator setup path.  It never writes wallets or bay flags of existing
// slots.
type Inventory struct {
	store      store.Store
	bayCount   int
	operatorID string
	log        *logging.Logger
}

func NewInventory(s store.Store, bayCount int, operatorID string, log *logging.Logger) *Inventory {
	if bayCount < 1 {
		bayCount = 5
	}
	if log == nil {
		log = logging.NewNoOpLogger()
	}
	return &Inventory{store: s, bayCount: bayCount, operatorID: operatorID, log: log.Named("inventory")}
}

// ListSlots returns every slot ordered by name.
func (i *Inventory) ListSlots(ctx context.Context) ([]model.Slot, error) {
	slots, err := i.store.ListSlots(ctx)
	if err != nil {
		return nil, infra("list slots", err)
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	return slots, nil
}

// GetSlot returns one slot.
func (i *Inventory) GetSlot(ctx context.Context, id string) (model.Slot, error) {
	s, err := i.store.FindSlot(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Slot{}, ErrSlotNotFound
	}
	if err != nil {
		return model.Slot{}, infra("find slot", err)
	}
	return s, nil
}

// History returns the reservations of an account, newest first, each
// with its slot name.  Reservations of a slot that no longer resolves
// fall back to the slot id.
func (i *Inventory) History(ctx context.Context, accountID string) ([]HistoryEntry, error) {
	var (
		res   []model.Reservation
		names map[string]string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res, err = i.store.ListReservationsByAccount(gctx, accountID)
		return err
	})
	g.Go(func() error {
		var err error
		names, err = i.slotNames(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, infra("load history", err)
	}
	return join(res, names), nil
}

// Overview collects the operator wallet, account count, slots and the
// latest reservations.
func (i *Inventory) Overview(ctx context.Context, recent int) (Overview, error) {
	if recent <= 0 {
		recent = 20
	}
	var (
		ov    Overview
		res   []model.Reservation
		slots []model.Slot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ov.Operator, err = i.store.FindOperator(gctx, i.operatorID)
		return err
	})
	g.Go(func() error {
		var err error
		_, ov.AccountCount, err = i.store.ListAccounts(gctx, 0)
		return err
	})
	g.Go(func() error {
		var err error
		slots, err = i.store.ListSlots(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		res, err = i.store.ListReservations(gctx, recent)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, infra("load overview", err)
	}
	names := make(map[string]string, len(slots))
	for _, s := range slots {
		names[s.ID] = s.Name
	}
	if slots == nil {
		slots = []model.Slot{}
	}
	ov.Slots = slots
	ov.RecentReservations = join(res, names)
	return ov, nil
}

// Accounts lists up to limit accounts and the total count.
func (i *Inventory) Accounts(ctx context.Context, limit int) ([]model.Account, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	accts, total, err := i.store.ListAccounts(ctx, limit)
	if err != nil {
		return nil, 0, infra("list accounts", err)
	}
	return accts, total, nil
}

// CreateSlot adds a slot with the configured number of bays, all
// available.
func (i *Inventory) CreateSlot(ctx context.Context, in NewSlotInput) (model.Slot, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Slot{}, ErrInvalidSlot
	}
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	s := model.NewSlot(id, name, strings.TrimSpace(in.Address),
		model.Location{Lat: in.Lat, Long: in.Long}, i.bayCount)
	if err := i.store.CreateSlot(ctx, s); err != nil {
		if errors.Is(err, store.ErrSlotExists) {
			return model.Slot{}, ErrSlotExists
		}
		return model.Slot{}, infra("create slot", err)
	}
	i.log.Info("slot created", zap.String("slot_id", s.ID), zap.String("name", s.Name), zap.Int("bays", len(s.Bays)))
	return i.GetSlot(ctx, s.ID)
}

// EnsureOperator creates the operator account if it is missing.
func (i *Inventory) EnsureOperator(ctx context.Context) (model.OperatorAccount, error) {
	op, err := i.store.EnsureOperator(ctx, i.operatorID)
	if err != nil {
		return model.OperatorAccount{}, infra("ensure operator account", err)
	}
	return op, nil
}

func (i *Inventory) slotNames(ctx context.Context) (map[string]string, error) {
	slots, err := i.store.ListSlots(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(slots))
	for _, s := range slots {
		names[s.ID] = s.Name
	}
	return names, nil
}

func join(res []model.Reservation, names map[string]string) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(res))
	for _, r := range res {
		name, ok := names[r.SlotID]
		if !ok || name == "" {
			name = r.SlotID
		}
		out = append(out, HistoryEntry{Reservation: r, SlotName: name})
	}
	return out
}
