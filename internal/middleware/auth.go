package middleware // middleware provides shared request processing for handlers

import (
    "context"
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/identity"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/model"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
)

// Context keys set by Authenticate.
const (
    ctxPrincipal = "principal"
    ctxAccount   = "account"
)

// AccountEnsurer provisions the account of a verified principal.
type AccountEnsurer interface {
    EnsureAccount(ctx context.Context, p service.Profile) (model.Account, error)
}

// Authenticate validates the Bearer token with v, provisions the caller's
// account on first sight and stores both in the request context.
// Handlers read them with PrincipalFrom and AccountFrom.
func Authenticate(v identity.Verifier, accounts AccountEnsurer, log *logging.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = logging.NewNoOpLogger()
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing bearer token"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            ctx := c.Request().Context()
            p, err := v.Verify(ctx, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid token"})
            }

            acct, err := accounts.EnsureAccount(ctx, service.Profile{
                PrincipalID: p.ID,
                DisplayName: p.DisplayName,
                Email:       p.Email,
                PhotoURL:    p.PhotoURL,
            })
            if err != nil {
                log.Error("account provisioning failed", zap.String("principal_id", p.ID), zap.Error(err))
                if errors.Is(err, service.ErrShortCodeExhausted) {
                    return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "provisioning_failed", "message": err.Error()})
                }
                return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "unavailable", "message": "account store unavailable"})
            }

            c.Set(ctxPrincipal, p)
            c.Set(ctxAccount, acct)
            return next(c)
        }
    }
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c echo.Context) (identity.Principal, bool) {
    p, ok := c.Get(ctxPrincipal).(identity.Principal)
    return p, ok
}

// AccountFrom returns the account snapshot stored by Authenticate.  The
// wallet balance may be stale by the time a handler runs.
func AccountFrom(c echo.Context) (model.Account, bool) {
    a, ok := c.Get(ctxAccount).(model.Account)
    return a, ok
}

// accountID returns the caller's account id, or "anon" before
// authentication.
func accountID(c echo.Context) string {
    if a, ok := AccountFrom(c); ok && a.ID != "" {
        return a.ID
    }
    return "anon"
}

// RequireAdmin aborts with 403 unless isAdmin accepts the authenticated
// principal.  It must run after Authenticate.
func RequireAdmin(isAdmin func(principalID string) bool) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            p, ok := PrincipalFrom(c)
            if !ok || !isAdmin(p.ID) {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "message": "admin access required"})
            }
            return next(c)
        }
    }
}
