package router // package router registers the HTTP routes of the API

import (
    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/handler"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/identity"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/middleware"
)

// Deps bundles what the route groups need.  Cache and RateLimit may be
// pass-through middleware when Redis is not configured.
type Deps struct {
    Verifier  identity.Verifier
    Accounts  middleware.AccountEnsurer
    IsAdmin   func(principalID string) bool
    Cache     echo.MiddlewareFunc
    RateLimit echo.MiddlewareFunc
    Gatherer  prometheus.Gatherer
    Logger    *logging.Logger

    Slots        *handler.SlotHandler
    Account      *handler.AccountHandler
    Reservations *handler.ReservationHandler
    Admin        *handler.AdminHandler
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
    e.GET("/healthz", handler.Health)
    if d.Gatherer != nil {
        e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
    }
}

// RegisterPublic registers the slot browse endpoints.  They need no token
// and sit behind the response cache.
func RegisterPublic(e *echo.Echo, d Deps) {
    g := e.Group("/v1/slots", passthrough(d.Cache))
    g.GET("", d.Slots.ListSlots)
    g.GET("/:id", d.Slots.GetSlot)
}

// RegisterAccount registers the caller-scoped endpoints.  Authenticate
// provisions the account on first request, so every handler here sees one.
func RegisterAccount(e *echo.Echo, d Deps) {
    auth := middleware.Authenticate(d.Verifier, d.Accounts, d.Logger)

    me := e.Group("/v1/me", auth)
    me.GET("", d.Account.Me)
    me.POST("/wallet/topup", d.Account.TopUp)
    me.GET("/reservations", d.Account.History)

    e.POST("/v1/slots/:id/bays/:bay/reserve", d.Reservations.Reserve, auth, passthrough(d.RateLimit))
}

// RegisterAdmin registers the operator endpoints.
func RegisterAdmin(e *echo.Echo, d Deps) {
    g := e.Group("/v1/admin",
        middleware.Authenticate(d.Verifier, d.Accounts, d.Logger),
        middleware.RequireAdmin(d.IsAdmin),
    )
    g.GET("/overview", d.Admin.Overview)
    g.GET("/accounts", d.Admin.Accounts)
    g.POST("/slots", d.Admin.CreateSlot)
}

// Register wires every group.
func Register(e *echo.Echo, d Deps) {
    RegisterRoutes(e, d)
    RegisterPublic(e, d)
    RegisterAccount(e, d)
    RegisterAdmin(e, d)
}

func passthrough(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
    if mw != nil {
        return mw
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}
