// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationQueueName is the durable queue reservation events go to.
const ReservationQueueName = "reservation.confirmed"

// ReservationConfirmedEvent is published when a reservation commits.  It
// carries enough information for downstream consumers to log, notify, or
// feed analytics without querying the primary database.
type ReservationConfirmedEvent struct {
    ReservationID string `json:"reservation_id"`
    AccountID     string `json:"account_id"`
    SlotID        string `json:"slot_id"`
    SlotName      string `json:"slot_name"`
    BayIndex      int    `json:"bay_index"`
    BookingCode   string `json:"booking_code"`
    Fee           string `json:"fee"`
    ConfirmedAt   string `json:"confirmed_at"`
    ExpiresAt     string `json:"expires_at"`
}
