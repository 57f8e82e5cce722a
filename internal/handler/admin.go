package handler

import (
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
)

const recentReservations = 20

// AdminHandler serves operator views.  Routes must sit behind
// middleware.RequireAdmin.
type AdminHandler struct {
    Inventory *service.Inventory
}

func NewAdminHandler(inv *service.Inventory) *AdminHandler {
    if inv == nil {
        panic("nil inventory passed to NewAdminHandler")
    }
    return &AdminHandler{Inventory: inv}
}

// Overview handles GET /v1/admin/overview: operator wallet, account count,
// slots and the latest reservations.
func (h *AdminHandler) Overview(c echo.Context) error {
    ov, err := h.Inventory.Overview(c.Request().Context(), recentReservations)
    if err != nil {
        return respond(c, err)
    }
    return c.JSON(http.StatusOK, ov)
}

// Accounts handles GET /v1/admin/accounts?limit=N.
func (h *AdminHandler) Accounts(c echo.Context) error {
    limit := 0
    if s := c.QueryParam("limit"); s != "" {
        n, err := strconv.Atoi(s)
        if err != nil || n < 1 {
            return fail(c, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
        }
        limit = n
    }
    accts, total, err := h.Inventory.Accounts(c.Request().Context(), limit)
    if err != nil {
        return respond(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": accts, "count": len(accts), "total": total})
}

type createSlotRequest struct {
    ID      string  `json:"id"`
    Name    string  `json:"name"`
    Address string  `json:"address"`
    Lat     float64 `json:"lat"`
    Long    float64 `json:"long"`
}

// CreateSlot handles POST /v1/admin/slots.  New slots start with every bay
// available.
func (h *AdminHandler) CreateSlot(c echo.Context) error {
    var body createSlotRequest
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "invalid_body", "invalid request body")
    }
    slot, err := h.Inventory.CreateSlot(c.Request().Context(), service.NewSlotInput{
        ID:      body.ID,
        Name:    body.Name,
        Address: body.Address,
        Lat:     body.Lat,
        Long:    body.Long,
    })
    if err != nil {
        return respond(c, err)
    }
    return c.JSON(http.StatusCreated, slot)
}
