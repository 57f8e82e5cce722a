package store

import (
	"context"
	"errors"
	"testing"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
)

// fakeTxn commits with the next error from its transactor's script.
type fakeTxn struct {
	Tx
	commitErr  error
	rolledBack bool
}

func (f *fakeTxn) Commit(ctx context.Context) error { return f.commitErr }
func (f *fakeTxn) Rollback() error                  { f.rolledBack = true; return nil }

type fakeTransactor struct {
	commits  []error
	begun    []*fakeTxn
	beginErr error
}

func (f *fakeTransactor) Begin(ctx context.Context) (Txn, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	var err error
	if n := len(f.begun); n < len(f.commits) {
		err = f.commits[n]
	}
	t := &fakeTxn{commitErr: err}
	f.begun = append(f.begun, t)
	return t, nil
}

func TestRunTransaction(t *testing.T) {
	boom := errors.New("boom")
	validation := errors.New("validation")

	tests := []struct {
		name         string
		commits      []error
		fnErr        error
		max          int
		wantAttempts int
		wantErr      error
	}{
		{"first commit wins", []error{nil}, nil, 5, 1, nil},
		{"retries stale", []error{ErrStale, ErrStale, nil}, nil, 5, 3, nil},
		{"exhausts budget", []error{ErrStale, ErrStale, ErrStale}, nil, 3, 3, ErrRetriesExhausted},
		{"commit failure is not retried", []error{boom}, nil, 5, 1, boom},
		{"fn error is not retried", nil, validation, 5, 1, validation},
		{"max below one runs once", []error{ErrStale}, nil, 0, 1, ErrRetriesExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &fakeTransactor{commits: tt.commits}
			calls := 0
			attempts, err := RunTransaction(context.Background(), tr, tt.max, func(ctx context.Context, tx Tx) error {
				calls++
				return tt.fnErr
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if attempts != tt.wantAttempts || calls != tt.wantAttempts {
				t.Fatalf("attempts = %d, calls = %d, want %d", attempts, calls, tt.wantAttempts)
			}
			for i, txn := range tr.begun {
				failed := txn.commitErr != nil || tt.fnErr != nil
				if failed && !txn.rolledBack {
					t.Errorf("attempt %d was not rolled back", i+1)
				}
			}
		})
	}
}

func TestRunTransactionStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := &fakeTransactor{commits: []error{ErrStale, nil}}
	attempts, err := RunTransaction(ctx, tr, 5, func(ctx context.Context, tx Tx) error {
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}

func TestApplySlotPatch(t *testing.T) {
	s := model.NewSlot("s", "S", "", model.Location{}, 2)
	one := 1
	out, err := ApplySlotPatch(s, SlotPatch{Bay: &BayUpdate{Index: 0}, AvailableCount: &one})
	if err != nil {
		t.Fatal(err)
	}
	if out.Bays[0] || !s.Bays[0] {
		t.Fatal("patch must copy the bays")
	}
	if _, err := ApplySlotPatch(s, SlotPatch{Bay: &BayUpdate{Index: 2}}); err == nil {
		t.Fatal("out of range bay accepted")
	}
}
