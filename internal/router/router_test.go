package router

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/shopspring/decimal"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/handler"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/identity"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/metrics"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store/memory"
)

const (
    secret   = "router-test-secret"
    operator = "operator"
)

type app struct {
    t *testing.T
    e *echo.Echo
}

func newApp(t *testing.T) *app {
    t.Helper()
    s := memory.New()
    reg := prometheus.NewRegistry()
    m, err := metrics.New("userpark", reg)
    if err != nil {
        t.Fatal(err)
    }
    inv := service.NewInventory(s, 5, operator, nil)
    if _, err := inv.EnsureOperator(context.Background()); err != nil {
        t.Fatal(err)
    }
    engine := service.NewEngine(s, service.EngineConfig{
        Fee:         decimal.NewFromInt(50),
        OperatorID:  operator,
        MaxAttempts: 5,
        Hold:        30 * time.Minute,
    }, nil, service.WithMetrics(m))
    t.Cleanup(engine.Wait)

    e := echo.New()
    Register(e, Deps{
        Verifier:     identity.NewJWTVerifier(secret, ""),
        Accounts:     service.NewProvisioner(s, service.ShortCodePolicy{Width: 3, Attempts: 10, MaxWidth: 4}, nil, m),
        IsAdmin:      func(id string) bool { return id == "admin" },
        Gatherer:     reg,
        Slots:        handler.NewSlotHandler(inv),
        Account:      handler.NewAccountHandler(service.NewWallet(s, nil, m), inv),
        Reservations: handler.NewReservationHandler(engine),
        Admin:        handler.NewAdminHandler(inv),
    })
    return &app{t: t, e: e}
}

func (a *app) do(method, target, principal, body string, hdr map[string]string) *httptest.ResponseRecorder {
    a.t.Helper()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    if principal != "" {
        tok, _, err := identity.IssueToken(secret, "", identity.Principal{ID: principal, DisplayName: principal}, time.Hour)
        if err != nil {
            a.t.Fatal(err)
        }
        req.Header.Set("Authorization", "Bearer "+tok)
    }
    for k, v := range hdr {
        req.Header.Set(k, v)
    }
    rec := httptest.NewRecorder()
    a.e.ServeHTTP(rec, req)
    return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
    t.Helper()
    var v T
    if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
        t.Fatalf("decode %q: %v", rec.Body.String(), err)
    }
    return v
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int) {
    t.Helper()
    if rec.Code != status {
        t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
    }
}

type errResp struct {
    Error   string `json:"error"`
    Message string `json:"message"`
}

func TestReservationFlow(t *testing.T) {
    a := newApp(t)

    rec := a.do(http.MethodPost, "/v1/admin/slots", "admin", `{"id":"s1","name":"North Lot","address":"1 Main St","lat":1.5,"long":2.5}`, nil)
    expect(t, rec, http.StatusCreated)

    rec = a.do(http.MethodGet, "/v1/me", "alice", "", nil)
    expect(t, rec, http.StatusOK)
    me := decode[struct {
        ID        string `json:"id"`
        ShortCode string `json:"short_code"`
        Wallet    struct {
            Balance decimal.Decimal `json:"balance"`
        } `json:"wallet"`
    }](t, rec)
    if me.ID != "alice" || len(me.ShortCode) != 3 || !me.Wallet.Balance.IsZero() {
        t.Fatalf("unexpected account %+v", me)
    }

    rec = a.do(http.MethodPost, "/v1/slots/s1/bays/0/reserve", "alice", "", nil)
    expect(t, rec, http.StatusPaymentRequired)
    if e := decode[errResp](t, rec); e.Error != "insufficient_balance" {
        t.Fatalf("error = %q", e.Error)
    }

    expect(t, a.do(http.MethodPost, "/v1/me/wallet/topup", "alice", `{"amount":"100"}`, nil), http.StatusOK)

    rec = a.do(http.MethodPost, "/v1/slots/s1/bays/0/reserve", "alice", "", nil)
    expect(t, rec, http.StatusCreated)
    res := decode[struct {
        ReservationID string          `json:"reservation_id"`
        BookingCode   string          `json:"booking_code"`
        Fee           decimal.Decimal `json:"fee"`
        ExpiresAt     time.Time       `json:"expires_at"`
    }](t, rec)
    if res.ReservationID == "" || res.BookingCode == "" || !res.Fee.Equal(decimal.NewFromInt(50)) || res.ExpiresAt.IsZero() {
        t.Fatalf("unexpected reservation %+v", res)
    }

    rec = a.do(http.MethodPost, "/v1/slots/s1/bays/0/reserve", "alice", "", nil)
    expect(t, rec, http.StatusConflict)
    if e := decode[errResp](t, rec); e.Error != "slot_unavailable" {
        t.Fatalf("error = %q", e.Error)
    }

    rec = a.do(http.MethodGet, "/v1/me/reservations", "alice", "", nil)
    expect(t, rec, http.StatusOK)
    hist := decode[struct {
        Items []struct {
            BookingCode string `json:"booking_code"`
            SlotName    string `json:"slot_name"`
        } `json:"items"`
    }](t, rec)
    if len(hist.Items) != 1 || hist.Items[0].SlotName != "North Lot" || hist.Items[0].BookingCode != res.BookingCode {
        t.Fatalf("unexpected history %+v", hist)
    }

    rec = a.do(http.MethodGet, "/v1/slots/s1", "", "", nil)
    expect(t, rec, http.StatusOK)
    slot := decode[struct {
        Bays           []bool `json:"bays"`
        AvailableCount int    `json:"available_count"`
    }](t, rec)
    if slot.AvailableCount != 4 || slot.Bays[0] {
        t.Fatalf("unexpected slot %+v", slot)
    }

    rec = a.do(http.MethodGet, "/v1/admin/overview", "admin", "", nil)
    expect(t, rec, http.StatusOK)
    ov := decode[struct {
        Operator struct {
            Wallet struct {
                Balance        decimal.Decimal `json:"balance"`
                TotalCollected decimal.Decimal `json:"total_collected"`
            } `json:"wallet"`
        } `json:"operator"`
        AccountCount int `json:"account_count"`
    }](t, rec)
    if !ov.Operator.Wallet.Balance.Equal(decimal.NewFromInt(50)) || !ov.Operator.Wallet.TotalCollected.Equal(decimal.NewFromInt(50)) {
        t.Fatalf("operator wallet %+v", ov.Operator.Wallet)
    }
    if ov.AccountCount != 2 {
        t.Fatalf("account count = %d, want 2", ov.AccountCount)
    }
}

func TestRequestErrors(t *testing.T) {
    a := newApp(t)
    expect(t, a.do(http.MethodPost, "/v1/admin/slots", "admin", `{"id":"s1","name":"Lot"}`, nil), http.StatusCreated)

    tests := []struct {
        name      string
        method    string
        target    string
        principal string
        body      string
        status    int
        code      string
    }{
        {"no token", http.MethodGet, "/v1/me", "", "", http.StatusUnauthorized, "unauthorized"},
        {"bay out of range", http.MethodPost, "/v1/slots/s1/bays/5/reserve", "bob", "", http.StatusBadRequest, "invalid_bay"},
        {"bay not a number", http.MethodPost, "/v1/slots/s1/bays/x/reserve", "bob", "", http.StatusBadRequest, "invalid_bay"},
        {"unknown slot", http.MethodPost, "/v1/slots/nope/bays/0/reserve", "bob", "", http.StatusNotFound, "slot_not_found"},
        {"unknown slot read", http.MethodGet, "/v1/slots/nope", "", "", http.StatusNotFound, "slot_not_found"},
        {"zero top-up", http.MethodPost, "/v1/me/wallet/topup", "bob", `{"amount":"0"}`, http.StatusBadRequest, "invalid_amount"},
        {"negative top-up", http.MethodPost, "/v1/me/wallet/topup", "bob", `{"amount":"-5"}`, http.StatusBadRequest, "invalid_amount"},
        {"non-admin", http.MethodGet, "/v1/admin/overview", "bob", "", http.StatusForbidden, "forbidden"},
        {"duplicate slot", http.MethodPost, "/v1/admin/slots", "admin", `{"id":"s1","name":"Lot"}`, http.StatusConflict, "slot_exists"},
        {"slot without name", http.MethodPost, "/v1/admin/slots", "admin", `{"id":"s2"}`, http.StatusBadRequest, "invalid_slot"},
        {"bad limit", http.MethodGet, "/v1/admin/accounts?limit=x", "admin", "", http.StatusBadRequest, "invalid_limit"},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            rec := a.do(tt.method, tt.target, tt.principal, tt.body, nil)
            expect(t, rec, tt.status)
            if e := decode[errResp](t, rec); e.Error != tt.code {
                t.Fatalf("error = %q, want %q", e.Error, tt.code)
            }
        })
    }
}

func TestPublicAndOperationalRoutes(t *testing.T) {
    a := newApp(t)
    expect(t, a.do(http.MethodPost, "/v1/admin/slots", "admin", `{"id":"b","name":"Beta"}`, nil), http.StatusCreated)
    expect(t, a.do(http.MethodPost, "/v1/admin/slots", "admin", `{"id":"a","name":"Alpha"}`, nil), http.StatusCreated)

    rec := a.do(http.MethodGet, "/v1/slots", "", "", nil)
    expect(t, rec, http.StatusOK)
    list := decode[struct {
        Items []struct {
            Name string `json:"name"`
        } `json:"items"`
    }](t, rec)
    if len(list.Items) != 2 || list.Items[0].Name != "Alpha" {
        t.Fatalf("unexpected listing %+v", list)
    }

    expect(t, a.do(http.MethodGet, "/healthz", "", "", nil), http.StatusOK)

    // the admin's own request provisioned one account
    rec = a.do(http.MethodGet, "/metrics", "", "", nil)
    expect(t, rec, http.StatusOK)
    if !strings.Contains(rec.Body.String(), "userpark_accounts_provisioned_total") {
        t.Fatalf("metrics missing provisioning counter:\n%s", rec.Body.String())
    }

    rec = a.do(http.MethodGet, "/v1/admin/accounts?limit=10", "admin", "", nil)
    expect(t, rec, http.StatusOK)
    if got := decode[struct {
        Total int `json:"total"`
    }](t, rec); got.Total != 1 {
        t.Fatalf("total = %d, want 1", got.Total)
    }
}
