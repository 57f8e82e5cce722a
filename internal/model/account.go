package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Wallet holds the spendable balance of a principal's account.  The
// balance is never negative.
type Wallet struct {
    Balance decimal.Decimal `json:"balance"` // accounts.wallet_balance
}

// Account represents a principal's record as stored in the `accounts`
// table.  An account is created exactly once, on the principal's first
// verified request, and is never deleted.
//
// Fields:
//  ID          – the principal identifier supplied by the identity provider.
//  DisplayName – name shown in the UI.
//  Email       – email reported by the identity provider.
//  PhotoURL    – avatar reported by the identity provider.
//  ShortCode   – compact numeric code, unique across all accounts.
//  Wallet      – spendable balance.
//  CreatedAt   – creation timestamp.
//  Version     – optimistic concurrency token managed by the store.
type Account struct {
    ID          string    `json:"id"`           // accounts.id
    DisplayName string    `json:"display_name"` // accounts.display_name
    Email       string    `json:"email"`        // accounts.email
    PhotoURL    string    `json:"photo_url"`    // accounts.photo_url
    ShortCode   string    `json:"short_code"`   // accounts.short_code
    Wallet      Wallet    `json:"wallet"`
    CreatedAt   time.Time `json:"created_at"` // accounts.created_at
    Version     uint64    `json:"-"`          // accounts.version
}

// OperatorWallet tracks the fees received by the operator.  TotalCollected
// only ever grows and equals the sum of every fee charged.
type OperatorWallet struct {
    Balance        decimal.Decimal `json:"balance"`         // operator_accounts.wallet_balance
    TotalCollected decimal.Decimal `json:"total_collected"` // operator_accounts.total_collected
}

// OperatorAccount is the singleton account credited with reservation fees.
// Its ID is fixed per deployment.
type OperatorAccount struct {
    ID        string         `json:"id"`
    Wallet    OperatorWallet `json:"wallet"`
    CreatedAt time.Time      `json:"created_at"`
    Version   uint64         `json:"-"`
}
