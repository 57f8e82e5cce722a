package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
    Error   string `json:"error"`
    Message string `json:"message"`
}

func fail(c echo.Context, status int, code, msg string) error {
    return c.JSON(status, errorBody{Error: code, Message: msg})
}

// respond translates a service error into its HTTP status and error code.
// Unknown errors are reported as 500 without leaking their text.
func respond(c echo.Context, err error) error {
    status, code := classify(err)
    msg := err.Error()
    if status == http.StatusInternalServerError {
        msg = "internal error"
    } else if status == http.StatusServiceUnavailable {
        msg = "service temporarily unavailable"
    }
    return fail(c, status, code, msg)
}

func classify(err error) (int, string) {
    switch {
    case errors.Is(err, service.ErrInsufficientBalance):
        return http.StatusPaymentRequired, "insufficient_balance"
    case errors.Is(err, service.ErrSlotUnavailable):
        return http.StatusConflict, "slot_unavailable"
    case errors.Is(err, service.ErrConflict):
        return http.StatusConflict, "conflict"
    case errors.Is(err, service.ErrRequestInProgress):
        return http.StatusConflict, "request_in_progress"
    case errors.Is(err, service.ErrIdempotencyMismatch):
        return http.StatusUnprocessableEntity, "idempotency_mismatch"
    case errors.Is(err, service.ErrSlotExists):
        return http.StatusConflict, "slot_exists"
    case errors.Is(err, service.ErrInvalidBay):
        return http.StatusBadRequest, "invalid_bay"
    case errors.Is(err, service.ErrInvalidAmount):
        return http.StatusBadRequest, "invalid_amount"
    case errors.Is(err, service.ErrInvalidSlot):
        return http.StatusBadRequest, "invalid_slot"
    case errors.Is(err, service.ErrAccountNotFound):
        return http.StatusNotFound, "account_not_found"
    case errors.Is(err, service.ErrSlotNotFound):
        return http.StatusNotFound, "slot_not_found"
    case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
        return http.StatusServiceUnavailable, "timeout"
    case service.IsInfrastructure(err), errors.Is(err, service.ErrShortCodeExhausted):
        return http.StatusServiceUnavailable, "unavailable"
    }
    return http.StatusInternalServerError, "internal"
}
