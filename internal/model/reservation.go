package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
    ReservationActive    ReservationStatus = "active"
    ReservationCompleted ReservationStatus = "completed"
    ReservationExpired   ReservationStatus = "expired"
)

// Valid reports whether s is one of the known statuses.
func (s ReservationStatus) Valid() bool {
    switch s {
    case ReservationActive, ReservationCompleted, ReservationExpired:
        return true
    }
    return false
}

// Reservation records a single bay booked by an account.  It is created
// by the reservation engine together with the wallet and inventory
// mutations and is otherwise immutable.  ExpiresAt is informational:
// nothing reverts a bay when it passes.
//
// Fields:
//  ID             – uuid primary key.
//  AccountID      – account that paid for the bay.
//  SlotID         – slot containing the bay.
//  BayIndex       – zero-based bay position within the slot.
//  BookingCode    – human-readable confirmation token.
//  Fee            – amount debited from the account.
//  Status         – active, completed or expired.
//  IdempotencyKey – optional caller-supplied deduplication key.
//  CreatedAt      – creation timestamp.
//  ExpiresAt      – end of the hold window.
type Reservation struct {
    ID             string            `json:"id"`                        // reservations.id
    AccountID      string            `json:"account_id"`                // reservations.account_id
    SlotID         string            `json:"slot_id"`                   // reservations.slot_id
    BayIndex       int               `json:"bay_index"`                 // reservations.bay_index
    BookingCode    string            `json:"booking_code"`              // reservations.booking_code
    Fee            decimal.Decimal   `json:"fee"`                       // reservations.fee
    Status         ReservationStatus `json:"status"`                    // reservations.status
    IdempotencyKey string            `json:"idempotency_key,omitempty"` // reservations.idempotency_key
    CreatedAt      time.Time         `json:"created_at"`                // reservations.created_at
    ExpiresAt      time.Time         `json:"expires_at"`                // reservations.expires_at
}
