package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
)

// SlotHandler serves the public slot listing.  Responses may be cached,
// so availability can lag the latest reservation briefly.
type SlotHandler struct {
    Inventory *service.Inventory
}

func NewSlotHandler(inv *service.Inventory) *SlotHandler {
    if inv == nil {
        panic("nil inventory passed to NewSlotHandler")
    }
    return &SlotHandler{Inventory: inv}
}

// ListSlots handles GET /v1/slots.
func (h *SlotHandler) ListSlots(c echo.Context) error {
    slots, err := h.Inventory.ListSlots(c.Request().Context())
    if err != nil {
        return respond(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": slots, "count": len(slots)})
}

// GetSlot handles GET /v1/slots/:id.
func (h *SlotHandler) GetSlot(c echo.Context) error {
    slot, err := h.Inventory.GetSlot(c.Request().Context(), c.Param("id"))
    if err != nil {
        return respond(c, err)
    }
    return c.JSON(http.StatusOK, slot)
}
