package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/config"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/identity"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store/memory"
)

const secret = "test-secret"

func newAuthEcho(t *testing.T) (*echo.Echo, *memory.Store) {
    t.Helper()
    s := memory.New()
    prov := service.NewProvisioner(s, service.ShortCodePolicy{Width: 3, Attempts: 10, MaxWidth: 4}, nil, nil)
    e := echo.New()
    g := e.Group("", Authenticate(identity.NewJWTVerifier(secret, ""), prov, nil))
    g.GET("/me", func(c echo.Context) error {
        a, _ := AccountFrom(c)
        return c.String(http.StatusOK, a.ID+"/"+a.ShortCode)
    })
    admin := g.Group("/admin", RequireAdmin(func(id string) bool { return id == "root" }))
    admin.GET("", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
    return e, s
}

func token(t *testing.T, id string) string {
    t.Helper()
    raw, _, err := identity.IssueToken(secret, "", identity.Principal{ID: id, DisplayName: "User " + id}, time.Hour)
    if err != nil {
        t.Fatal(err)
    }
    return raw
}

func TestAuthenticate(t *testing.T) {
    e, s := newAuthEcho(t)

    tests := []struct {
        name   string
        header string
        status int
    }{
        {"missing header", "", http.StatusUnauthorized},
        {"not bearer", "Basic abc", http.StatusUnauthorized},
        {"bad token", "Bearer nope", http.StatusUnauthorized},
        {"valid", "Bearer " + token(t, "alice"), http.StatusOK},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            req := httptest.NewRequest(http.MethodGet, "/me", nil)
            if tt.header != "" {
                req.Header.Set("Authorization", tt.header)
            }
            rec := httptest.NewRecorder()
            e.ServeHTTP(rec, req)
            if rec.Code != tt.status {
                t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
            }
        })
    }

    a, err := s.FindAccount(context.Background(), "alice")
    if err != nil {
        t.Fatalf("account not provisioned: %v", err)
    }
    if a.DisplayName != "User alice" {
        t.Fatalf("display name = %q", a.DisplayName)
    }
}

func TestRequireAdmin(t *testing.T) {
    e, _ := newAuthEcho(t)
    for id, want := range map[string]int{"root": http.StatusNoContent, "alice": http.StatusForbidden} {
        req := httptest.NewRequest(http.MethodGet, "/admin", nil)
        req.Header.Set("Authorization", "Bearer "+token(t, id))
        rec := httptest.NewRecorder()
        e.ServeHTTP(rec, req)
        if rec.Code != want {
            t.Errorf("%s: status = %d, want %d", id, rec.Code, want)
        }
    }
}

func TestPayloadRoundTrip(t *testing.T) {
    hdr := http.Header{"Content-Type": {"application/json"}}
    bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
    if err != nil {
        t.Fatal(err)
    }
    status, gotHdr, body, ok := decodePayload(bs)
    if !ok || status != http.StatusOK || gotHdr.Get("Content-Type") != "application/json" || string(body) != `{"ok":true}` {
        t.Fatalf("decoded %d %v %q %v", status, gotHdr, body, ok)
    }
    if _, _, _, ok := decodePayload([]byte{1, 2}); ok {
        t.Fatal("short payload decoded")
    }
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "p"}
    e := echo.New()
    key := func(target string) string {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
        c.SetPath("/v1/slots/:id")
        return cacheKeyFrom(cfg, c)
    }
    if key("/v1/slots/a") == key("/v1/slots/b") {
        t.Fatal("different slots share a cache key")
    }
    if key("/v1/slots/a?x=1") == key("/v1/slots/a") {
        t.Fatal("query ignored in cache key")
    }
}

func TestRateKeyPerAccount(t *testing.T) {
    cfg := config.RateLimitConfig{Prefix: "rl"}
    e := echo.New()
    c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/slots/a/bays/1/reserve", nil), httptest.NewRecorder())
    c.SetPath("/v1/slots/:id/bays/:bay/reserve")
    if got := bucketKey(cfg, c); got != "rl:account:anon:route:POST /v1/slots/:id/bays/:bay/reserve" {
        t.Fatalf("key = %q", got)
    }
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
    e := echo.New()
    h := func(c echo.Context) error { return c.NoContent(http.StatusTeapot) }
    for _, mw := range []echo.MiddlewareFunc{
        NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil),
        NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, nil),
    } {
        rec := httptest.NewRecorder()
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
        if err := mw(h)(c); err != nil || rec.Code != http.StatusTeapot {
            t.Fatalf("err = %v, status = %d", err, rec.Code)
        }
    }
}

func TestRetrySecondsRoundsUp(t *testing.T) {
    tests := []struct {
        in   time.Duration
        want int
    }{
        {0, 0},
        {time.Millisecond, 1},
        {time.Second, 1},
        {1500 * time.Millisecond, 2},
    }
    for _, tt := range tests {
        if got := (decision{retryAfter: tt.in}).retrySeconds(); got != tt.want {
            t.Errorf("retrySeconds(%s) = %d, want %d", tt.in, got, tt.want)
        }
    }
}

func TestRecorderDropsOversizedBody(t *testing.T) {
    rec := &recorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK, limit: 4}
    _, _ = rec.Write([]byte("abc"))
    if rec.overflow || rec.body.String() != "abc" {
        t.Fatalf("overflow=%v body=%q", rec.overflow, rec.body.String())
    }
    _, _ = rec.Write([]byte("de"))
    if !rec.overflow || rec.body.Len() != 0 {
        t.Fatalf("overflow=%v body=%q", rec.overflow, rec.body.String())
    }
}
