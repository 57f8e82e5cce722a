package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTopUp(t *testing.T) {
	tests := []struct {
		name    string
		account string
		amount  decimal.Decimal
		want    error
		balance int64
	}{
		{"credits", "alice", dec(25), nil, 35},
		{"fractional", "alice", decimal.RequireFromString("0.50"), nil, 10},
		{"zero", "alice", decimal.Zero, ErrInvalidAmount, 10},
		{"negative", "alice", dec(-5), ErrInvalidAmount, 10},
		{"unknown account", "bob", dec(5), ErrAccountNotFound, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := fixture(t, map[string]int64{"alice": 10})
			w := NewWallet(s, nil, nil)
			_, err := w.TopUp(context.Background(), tt.account, tt.amount)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			a, _ := s.FindAccount(context.Background(), "alice")
			want := dec(tt.balance)
			if tt.name == "fractional" {
				want = decimal.RequireFromString("10.5")
			}
			if !a.Wallet.Balance.Equal(want) {
				t.Fatalf("balance = %s, want %s", a.Wallet.Balance, want)
			}
		})
	}
}
