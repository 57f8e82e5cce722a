package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/idempotency"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/metrics"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/queue"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// IdempotencyStore claims caller-supplied request keys.
type IdempotencyStore interface {
	Claim(ctx context.Context, accountID, key string) (idempotency.Claim, error)
	Complete(ctx context.Context, accountID, key string, r model.Reservation) error
	Release(ctx context.Context, accountID, key string) error
}

// EventPublisher delivers reservation events to downstream consumers.
type EventPublisher interface {
	PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

// EngineConfig holds the per-deployment reservation constants.
type EngineConfig struct {
	Fee         decimal.Decimal
	OperatorID  string
	MaxAttempts int
	Hold        time.Duration
}

// ReserveRequest asks for one bay of one slot on behalf of an account.
type ReserveRequest struct {
	AccountID      string
	SlotID         string
	BayIndex       int
	IdempotencyKey string
}

// Engine runs reservations as optimistic transactions over the account,
// the slot and the operator account.  A transaction that lost against a
// concurrent commit is retried from fresh reads with a new booking code.
type Engine struct {
	tx      store.Transactor
	cfg     EngineConfig
	codes   func() (string, error)
	newID   func() string
	now     func() time.Time
	idem    IdempotencyStore
	events  EventPublisher
	log     *logging.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer

	publishTimeout time.Duration
	inflight       sync.WaitGroup
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithIdempotency enables request deduplication through s.
func WithIdempotency(s IdempotencyStore) EngineOption {
	return func(e *Engine) { e.idem = s }
}

// WithEvents publishes a ReservationConfirmedEvent after every commit.
func WithEvents(p EventPublisher) EngineOption {
	return func(e *Engine) { e.events = p }
}

// WithCodeGenerator replaces the booking code generator.
func WithCodeGenerator(gen func() (string, error)) EngineOption {
	return func(e *Engine) { e.codes = gen }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithMetrics records reservation outcomes in m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine returns an Engine committing through tx.
func NewEngine(tx store.Transactor, cfg EngineConfig, log *logging.Logger, opts ...EngineOption) *Engine {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 5
	}
	if cfg.Hold <= 0 {
		cfg.Hold = 30 * time.Minute
	}
	if log == nil {
		log = logging.NewNoOpLogger()
	}
	e := &Engine{
		tx:             tx,
		cfg:            cfg,
		codes:          NewBookingCode,
		newID:          uuid.NewString,
		now:            func() time.Time { return time.Now().UTC() },
		log:            log.Named("engine"),
		tracer:         otel.Tracer(tracerName),
		publishTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fee returns the configured reservation fee.
func (e *Engine) Fee() decimal.Decimal { return e.cfg.Fee }

// Reserve books req.BayIndex of req.SlotID for req.AccountID.  On success
// the bay is unavailable, the fee moved from the account wallet to the
// operator wallet and a reservation is stored, all in one commit.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (model.Reservation, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("account.id", req.AccountID),
		attribute.String("slot.id", req.SlotID),
		attribute.Int("bay.index", req.BayIndex),
	)

	res, attempts, err := e.reserve(ctx, req)
	span.SetAttributes(attribute.Int("reserve.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (e *Engine) reserve(ctx context.Context, req ReserveRequest) (model.Reservation, int, error) {
	claimed := false
	if req.IdempotencyKey != "" && e.idem != nil {
		claim, err := e.idem.Claim(ctx, req.AccountID, req.IdempotencyKey)
		switch {
		case err != nil:
			e.log.Warn("idempotency store unavailable, continuing without deduplication",
				zap.String("account_id", req.AccountID), zap.Error(err))
		case claim.State == idempotency.Pending:
			return model.Reservation{}, 0, ErrRequestInProgress
		case claim.State == idempotency.Completed:
			prev := claim.Reservation
			if prev.SlotID != req.SlotID || prev.BayIndex != req.BayIndex {
				return model.Reservation{}, 0, ErrIdempotencyMismatch
			}
			e.metrics.ObserveReservation(metrics.OutcomeReplayed, 0)
			return prev, 0, nil
		default:
			claimed = true
		}
	}

	res, slotName, attempts, err := e.commit(ctx, req)
	e.metrics.ObserveReservation(outcome(err), attempts)

	if claimed {
		// The claim outlives a cancelled request context.
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		var ierr error
		if err != nil {
			ierr = e.idem.Release(bg, req.AccountID, req.IdempotencyKey)
		} else {
			ierr = e.idem.Complete(bg, req.AccountID, req.IdempotencyKey, res)
		}
		cancel()
		if ierr != nil {
			e.log.Warn("idempotency bookkeeping failed",
				zap.String("account_id", req.AccountID), zap.Error(ierr))
		}
	}
	if err != nil {
		return model.Reservation{}, attempts, err
	}

	e.log.Info("reservation committed",
		zap.String("reservation_id", res.ID),
		zap.String("account_id", res.AccountID),
		zap.String("slot_id", res.SlotID),
		zap.Int("bay_index", res.BayIndex),
		zap.String("booking_code", res.BookingCode),
		zap.Int("attempts", attempts))
	e.publish(ctx, res, slotName)
	return res, attempts, nil
}

// commit runs the read-validate-write cycle under the retry runner.
func (e *Engine) commit(ctx context.Context, req ReserveRequest) (model.Reservation, string, int, error) {
	var (
		res      model.Reservation
		slotName string
	)
	attempts, err := store.RunTransaction(ctx, e.tx, e.cfg.MaxAttempts, func(ctx context.Context, tx store.Tx) error {
		acct, err := tx.Account(ctx, req.AccountID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return infra("read account", err)
		}
		slot, err := tx.Slot(ctx, req.SlotID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSlotNotFound
		}
		if err != nil {
			return infra("read slot", err)
		}
		op, err := tx.Operator(ctx, e.cfg.OperatorID)
		if err != nil {
			return infra("read operator account", err)
		}

		if !slot.HasBay(req.BayIndex) {
			return ErrInvalidBay
		}
		fee := e.cfg.Fee
		if acct.Wallet.Balance.LessThan(fee) {
			return ErrInsufficientBalance
		}
		if !slot.Bays[req.BayIndex] {
			return ErrSlotUnavailable
		}

		// A fresh code on every attempt; a retried attempt never reuses one.
		code, err := e.codes()
		if err != nil {
			return infra("generate booking code", err)
		}

		balance := acct.Wallet.Balance.Sub(fee)
		available := slot.AvailableCount - 1
		opBalance := op.Wallet.Balance.Add(fee)
		collected := op.Wallet.TotalCollected.Add(fee)
		if err := tx.UpdateSlot(slot.ID, store.SlotPatch{
			Bay:            &store.BayUpdate{Index: req.BayIndex, Available: false},
			AvailableCount: &available,
		}); err != nil {
			return infra("update slot", err)
		}
		if err := tx.UpdateAccount(acct.ID, store.AccountPatch{Balance: &balance}); err != nil {
			return infra("update account", err)
		}
		if err := tx.UpdateOperator(op.ID, store.OperatorPatch{Balance: &opBalance, TotalCollected: &collected}); err != nil {
			return infra("update operator account", err)
		}

		now := e.now()
		r := model.Reservation{
			ID:             e.newID(),
			AccountID:      acct.ID,
			SlotID:         slot.ID,
			BayIndex:       req.BayIndex,
			BookingCode:    code,
			Fee:            fee,
			Status:         model.ReservationActive,
			IdempotencyKey: req.IdempotencyKey,
			CreatedAt:      now,
			ExpiresAt:      now.Add(e.cfg.Hold),
		}
		if err := tx.InsertReservation(r); err != nil {
			return infra("insert reservation", err)
		}
		res, slotName = r, slot.Name
		return nil
	})
	return res, slotName, attempts, translate(err)
}

// translate maps runner and store errors onto the engine taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrRetriesExhausted):
		return ErrConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrSlotNotFound),
		errors.Is(err, ErrInvalidBay), errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrSlotUnavailable), IsInfrastructure(err):
		return err
	}
	return infra("commit reservation", err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrInsufficientBalance):
		return metrics.OutcomeInsufficientBalance
	case errors.Is(err, ErrSlotUnavailable):
		return metrics.OutcomeSlotUnavailable
	case errors.Is(err, ErrConflict):
		return metrics.OutcomeConflict
	}
	return metrics.OutcomeError
}

// publish hands the event to the publisher in the background.  Publish
// failures are logged and never change the reservation result.
func (e *Engine) publish(ctx context.Context, r model.Reservation, slotName string) {
	if e.events == nil {
		return
	}
	ev := queue.ReservationConfirmedEvent{
		ReservationID: r.ID,
		AccountID:     r.AccountID,
		SlotID:        r.SlotID,
		SlotName:      slotName,
		BayIndex:      r.BayIndex,
		BookingCode:   r.BookingCode,
		Fee:           r.Fee.String(),
		ConfirmedAt:   r.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:     r.ExpiresAt.UTC().Format(time.RFC3339),
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.publishTimeout)
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer cancel()
		if err := e.events.PublishReservationConfirmed(pubCtx, ev); err != nil {
			e.metrics.PublishFailed()
			e.log.Warn("publish reservation event failed",
				zap.String("reservation_id", ev.ReservationID), zap.Error(err))
		}
	}()
}

// Wait blocks until background event publishes finished.
func (e *Engine) Wait() {
	e.inflight.Wait()
}
