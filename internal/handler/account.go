package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/middleware"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
)

// AccountHandler serves the caller's own account: profile, wallet top-up
// and reservation history.  Routes must sit behind middleware.Authenticate.
type AccountHandler struct {
    Wallet    *service.Wallet
    Inventory *service.Inventory
}

func NewAccountHandler(w *service.Wallet, inv *service.Inventory) *AccountHandler {
    if w == nil || inv == nil {
        panic("nil service passed to NewAccountHandler")
    }
    return &AccountHandler{Wallet: w, Inventory: inv}
}

func caller(c echo.Context) (model.Account, bool) {
    return middleware.AccountFrom(c)
}

// Me handles GET /v1/me.
func (h *AccountHandler) Me(c echo.Context) error {
    acct, ok := caller(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized", "no authenticated account")
    }
    return c.JSON(http.StatusOK, acct)
}

type topUpRequest struct {
    Amount decimal.Decimal `json:"amount"`
}

// TopUp handles POST /v1/me/wallet/topup with body {"amount": "25.00"}.
// Settlement with a payment provider happens before this call.
func (h *AccountHandler) TopUp(c echo.Context) error {
    acct, ok := caller(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized", "no authenticated account")
    }
    var body topUpRequest
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid_body", "invalid request body")
    }
    updated, err := h.Wallet.TopUp(c.Request().Context(), acct.ID, body.Amount)
    if err != nil {
        return respond(c, err)
    }
    return c.JSON(http.StatusOK, updated)
}

// History handles GET /v1/me/reservations, newest first.
func (h *AccountHandler) History(c echo.Context) error {
    acct, ok := caller(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized", "no authenticated account")
    }
    items, err := h.Inventory.History(c.Request().Context(), acct.ID)
    if err != nil {
        return respond(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}
