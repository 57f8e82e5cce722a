package handler

import (
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
)

// IdempotencyHeader carries the optional client key that makes a
// reservation request safe to retry.
const IdempotencyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 128

// ReservationHandler exposes the reservation engine.
type ReservationHandler struct {
    Engine *service.Engine
}

func NewReservationHandler(e *service.Engine) *ReservationHandler {
    if e == nil {
        panic("nil engine passed to NewReservationHandler")
    }
    return &ReservationHandler{Engine: e}
}

type reserveResponse struct {
    ReservationID string          `json:"reservation_id"`
    BookingCode   string          `json:"booking_code"`
    SlotID        string          `json:"slot_id"`
    BayIndex      int             `json:"bay_index"`
    Fee           decimal.Decimal `json:"fee"`
    ExpiresAt     time.Time       `json:"expires_at"`
}

// Reserve handles POST /v1/slots/:id/bays/:bay/reserve.  It debits the
// configured fee from the caller's wallet and answers 201 with the
// booking code.
func (h *ReservationHandler) Reserve(c echo.Context) error {
    acct, ok := caller(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized", "no authenticated account")
    }
    bay, err := strconv.Atoi(c.Param("bay"))
    if err != nil {
        return respond(c, service.ErrInvalidBay)
    }
    key := strings.TrimSpace(c.Request().Header.Get(IdempotencyHeader))
    if len(key) > maxIdempotencyKeyLen {
        return fail(c, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key too long")
    }

    r, err := h.Engine.Reserve(c.Request().Context(), service.ReserveRequest{
        AccountID:      acct.ID,
        SlotID:         c.Param("id"),
        BayIndex:       bay,
        IdempotencyKey: key,
    })
    if err != nil {
        return respond(c, err)
    }
    return c.JSON(http.StatusCreated, reserveResponse{
        ReservationID: r.ID,
        BookingCode:   r.BookingCode,
        SlotID:        r.SlotID,
        BayIndex:      r.BayIndex,
        Fee:           r.Fee,
        ExpiresAt:     r.ExpiresAt,
    })
}
