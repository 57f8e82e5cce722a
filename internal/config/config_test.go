package config

import (
    "testing"
    "time"

    "github.com/shopspring/decimal"
)

func setBaseEnv(t *testing.T) {
    t.Helper()
    t.Setenv("APP_ENV", "test")
    t.Setenv("APP_PORT", "8080")
    t.Setenv("STORE_DRIVER", "memory")
    t.Setenv("IDENTITY_PROVIDER", "jwt")
    t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
    setBaseEnv(t)
    cfg := Load()

    if !cfg.ReservationFee.Equal(decimal.NewFromInt(50)) {
        t.Fatalf("fee = %s, want 50", cfg.ReservationFee)
    }
    if cfg.SlotBayCount != 5 {
        t.Fatalf("bay count = %d, want 5", cfg.SlotBayCount)
    }
    if cfg.ReserveMaxAttempts != 5 {
        t.Fatalf("max attempts = %d, want 5", cfg.ReserveMaxAttempts)
    }
    if cfg.ReservationHold != 30*time.Minute {
        t.Fatalf("hold = %s, want 30m", cfg.ReservationHold)
    }
    if cfg.ShortCodeWidth != 3 || cfg.ShortCodeAttempts != 10 || cfg.ShortCodeMaxWidth != 4 {
        t.Fatalf("short code settings = %d/%d/%d", cfg.ShortCodeWidth, cfg.ShortCodeAttempts, cfg.ShortCodeMaxWidth)
    }
    if cfg.OperatorAccountID != "operator" {
        t.Fatalf("operator id = %q", cfg.OperatorAccountID)
    }
    if cfg.DBUser != "" {
        t.Fatalf("memory driver should not read DB settings")
    }
}

func TestLoadOverrides(t *testing.T) {
    setBaseEnv(t)
    t.Setenv("RESERVATION_FEE", "12.50")
    t.Setenv("SLOT_BAY_COUNT", "3")
    t.Setenv("SHORT_CODE_WIDTH", "5")
    t.Setenv("SHORT_CODE_MAX_WIDTH", "2")
    t.Setenv("ADMIN_PRINCIPALS", " alice, ,bob ")

    cfg := Load()
    if !cfg.ReservationFee.Equal(decimal.RequireFromString("12.5")) {
        t.Fatalf("fee = %s", cfg.ReservationFee)
    }
    if cfg.SlotBayCount != 3 {
        t.Fatalf("bay count = %d", cfg.SlotBayCount)
    }
    if cfg.ShortCodeMaxWidth != 5 {
        t.Fatalf("max width should be raised to width, got %d", cfg.ShortCodeMaxWidth)
    }
    if !cfg.IsAdmin("alice") || !cfg.IsAdmin("bob") || cfg.IsAdmin("") || len(cfg.AdminPrincipals) != 2 {
        t.Fatalf("admin set = %v", cfg.AdminPrincipals)
    }
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    cfg := LoadRateLimitConfig()
    if cfg.Capacity != 1 {
        t.Fatalf("capacity = %d, want 1", cfg.Capacity)
    }
    if cfg.TTL != 10*time.Second {
        t.Fatalf("ttl = %s, want 10s", cfg.TTL)
    }
}

func TestEnvHelpers(t *testing.T) {
    t.Setenv("X_BOOL", "off")
    t.Setenv("X_INT", "nope")
    t.Setenv("X_DUR", "90s")
    if envBool("X_BOOL", true) {
        t.Fatal("envBool(off) = true")
    }
    if envInt("X_INT", 7) != 7 {
        t.Fatal("envInt should fall back on parse errors")
    }
    if envDur("X_DUR", 0) != 90*time.Second {
        t.Fatal("envDur(90s) mismatch")
    }
}

func TestLoadRedisConfig(t *testing.T) {
    t.Setenv("REDIS_ADDR", "ignored:1")
    t.Setenv("REDIS_HOST", "cache")
    t.Setenv("REDIS_PORT", "6380")
    t.Setenv("REDIS_TLS", "1")
    cfg := LoadRedisConfig()
    if cfg.Addr != "cache:6380" || !cfg.TLS {
        t.Fatalf("redis config = %+v", cfg)
    }
}
