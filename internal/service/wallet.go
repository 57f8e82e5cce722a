package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/metrics"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
)

// Wallet is the top-up boundary.  The amount is assumed to be already
// collected by an external payment collaborator.
type Wallet struct {
	accounts store.AccountStore
	log      *logging.Logger
	metrics  *metrics.Metrics
}

func NewWallet(accounts store.AccountStore, log *logging.Logger, m *metrics.Metrics) *Wallet {
	if log == nil {
		log = logging.NewNoOpLogger()
	}
	return &Wallet{accounts: accounts, log: log.Named("wallet"), metrics: m}
}

// TopUp adds a positive amount to the account balance with a single
// atomic increment and returns the updated account.
func (w *Wallet) TopUp(ctx context.Context, accountID string, amount decimal.Decimal) (model.Account, error) {
	if !amount.IsPositive() {
		return model.Account{}, ErrInvalidAmount
	}
	acct, err := w.accounts.CreditWallet(ctx, accountID, amount)
	if errors.Is(err, store.ErrNotFound) {
		return model.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return model.Account{}, infra("credit wallet", err)
	}
	w.metrics.TopUp()
	w.log.Info("wallet topped up",
		zap.String("account_id", accountID),
		zap.String("amount", amount.String()),
		zap.String("balance", acct.Wallet.Balance.String()))
	return acct, nil
}
