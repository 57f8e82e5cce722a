package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/idempotency"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/queue"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store/memory"
)

const testOperator = "operator"

var testFee = decimal.NewFromInt(50)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// fixture seeds a memory store with accounts, one slot of five bays and
// the operator account.
func fixture(t *testing.T, balances map[string]int64) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	i := 0
	for id, bal := range balances {
		err := s.CreateAccount(ctx, model.Account{
			ID:        id,
			ShortCode: fmt.Sprintf("%03d", i),
			Wallet:    model.Wallet{Balance: dec(bal)},
		})
		if err != nil {
			t.Fatalf("seed account %s: %v", id, err)
		}
		i++
	}
	if err := s.CreateSlot(ctx, model.NewSlot("slot-1", "North Lot", "1 Main St", model.Location{Lat: 1, Long: 2}, 5)); err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	if _, err := s.EnsureOperator(ctx, testOperator); err != nil {
		t.Fatalf("seed operator: %v", err)
	}
	return s
}

func newTestEngine(s *memory.Store, opts ...EngineOption) *Engine {
	return NewEngine(s, EngineConfig{Fee: testFee, OperatorID: testOperator, MaxAttempts: 5}, nil, opts...)
}

// codeRecorder hands out sequential booking codes and remembers them.
type codeRecorder struct {
	mu    sync.Mutex
	codes []string
}

func (c *codeRecorder) next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code := fmt.Sprintf("CODE%03d", len(c.codes))
	c.codes = append(c.codes, code)
	return code, nil
}

// fakeIdem is an in-process IdempotencyStore.
type fakeIdem struct {
	mu       sync.Mutex
	claims   map[string]idempotency.Claim
	claimErr error
	released int
}

func newFakeIdem() *fakeIdem { return &fakeIdem{claims: map[string]idempotency.Claim{}} }

func (f *fakeIdem) Claim(ctx context.Context, accountID, key string) (idempotency.Claim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return idempotency.Claim{}, f.claimErr
	}
	k := accountID + ":" + key
	if c, ok := f.claims[k]; ok {
		return c, nil
	}
	f.claims[k] = idempotency.Claim{State: idempotency.Pending}
	return idempotency.Claim{State: idempotency.Acquired}, nil
}

func (f *fakeIdem) Complete(ctx context.Context, accountID, key string, r model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claims[accountID+":"+key] = idempotency.Claim{State: idempotency.Completed, Reservation: r}
	return nil
}

func (f *fakeIdem) Release(ctx context.Context, accountID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.claims, accountID+":"+key)
	f.released++
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []queue.ReservationConfirmedEvent
	err    error
}

func (f *fakePublisher) PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}
