package config // package config loads application configuration from environment variables

import (
    "os"
    "strings"
    "time"

    "github.com/shopspring/decimal"
    "go.uber.org/zap"

    "github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
)

// Store drivers accepted in STORE_DRIVER.
const (
    StoreMySQL  = "mysql"
    StoreMemory = "memory"
)

// Identity providers accepted in IDENTITY_PROVIDER.
const (
    IdentityJWT      = "jwt"
    IdentityFirebase = "firebase"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env         string // application environment (e.g. "dev", "prod")
    Port        string // HTTP port to listen on
    StoreDriver string // "mysql" or "memory"

    DBUser          string        // database username
    DBPass          string        // database password (optional)
    DBHost          string        // database host address
    DBPort          string        // database port number
    DBName          string        // database name
    DBMaxOpenConns  int           // connection pool size
    DBConnLifetime  time.Duration // maximum lifetime of a pooled connection
    DBMigrate       bool          // apply the schema on start

    ReservationFee     decimal.Decimal // fee debited per reservation
    SlotBayCount       int             // bays created per new slot
    OperatorAccountID  string          // id of the wallet collecting fees
    ReserveMaxAttempts int             // transaction attempts per reserve call
    ReservationHold    time.Duration   // informational hold recorded as expires_at
    IdempotencyTTL     time.Duration   // lifetime of idempotency claims in Redis

    ShortCodeWidth    int // digits of a new short code
    ShortCodeAttempts int // probes per width
    ShortCodeMaxWidth int // widest code before provisioning fails

    IdentityProvider    string          // "jwt" or "firebase"
    JWTSecret           string          // HS256 secret for the jwt provider
    JWTIssuer           string          // expected iss claim, empty accepts any
    FirebaseCredentials string          // service account file, empty uses ADC
    AdminPrincipals     map[string]bool // principal ids allowed on /v1/admin

    RabbitMQURL string // empty disables event publishing
    LogDir      string // directory the event consumer writes to
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    cfg := Config{
        Env:         must("APP_ENV"),
        Port:        must("APP_PORT"),
        StoreDriver: strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),

        ReservationFee:     mustDecimal("RESERVATION_FEE", "50"),
        SlotBayCount:       envInt("SLOT_BAY_COUNT", 5),
        OperatorAccountID:  envStr("OPERATOR_ACCOUNT_ID", "operator"),
        ReserveMaxAttempts: envInt("RESERVE_MAX_ATTEMPTS", 5),
        ReservationHold:    envDur("RESERVATION_HOLD", 30*time.Minute),
        IdempotencyTTL:     envDur("IDEMPOTENCY_TTL", 24*time.Hour),

        ShortCodeWidth:    envInt("SHORT_CODE_WIDTH", 3),
        ShortCodeAttempts: envInt("SHORT_CODE_ATTEMPTS", 10),
        ShortCodeMaxWidth: envInt("SHORT_CODE_MAX_WIDTH", 4),

        IdentityProvider:    strings.ToLower(envStr("IDENTITY_PROVIDER", IdentityJWT)),
        JWTIssuer:           os.Getenv("JWT_ISSUER"),
        FirebaseCredentials: os.Getenv("FIREBASE_CREDENTIALS"),
        AdminPrincipals:     parseSet(os.Getenv("ADMIN_PRINCIPALS")),

        RabbitMQURL: os.Getenv("RABBITMQ_URL"),
        LogDir:      envStr("LOG_DIR", "logs"),
    }

    switch cfg.StoreDriver {
    case StoreMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
        cfg.DBMaxOpenConns = envInt("DB_MAX_OPEN_CONNS", 25)
        cfg.DBConnLifetime = envDur("DB_CONN_MAX_LIFETIME", 30*time.Minute)
        cfg.DBMigrate = envBool("DB_MIGRATE", true)
    case StoreMemory:
    default:
        logging.L().Fatal("invalid STORE_DRIVER", zap.String("value", cfg.StoreDriver))
    }

    switch cfg.IdentityProvider {
    case IdentityJWT:
        cfg.JWTSecret = must("JWT_SECRET")
    case IdentityFirebase:
    default:
        logging.L().Fatal("invalid IDENTITY_PROVIDER", zap.String("value", cfg.IdentityProvider))
    }

    if cfg.ReservationFee.IsNegative() {
        logging.L().Fatal("RESERVATION_FEE must not be negative")
    }
    if cfg.SlotBayCount < 1 {
        cfg.SlotBayCount = 1
    }
    if cfg.ReserveMaxAttempts < 1 {
        cfg.ReserveMaxAttempts = 1
    }
    if cfg.ShortCodeWidth < 1 {
        cfg.ShortCodeWidth = 1
    }
    if cfg.ShortCodeMaxWidth < cfg.ShortCodeWidth {
        cfg.ShortCodeMaxWidth = cfg.ShortCodeWidth
    }
    if cfg.ShortCodeAttempts < 1 {
        cfg.ShortCodeAttempts = 1
    }
    return cfg
}

// IsAdmin reports whether principalID may use the admin endpoints.
func (c Config) IsAdmin(principalID string) bool { return c.AdminPrincipals[principalID] }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the global logger reports it and the process exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        logging.L().Fatal("missing required env var", zap.String("key", key))
    }
    return v
}

// mustDecimal parses key as a decimal amount, falling back to def when the
// variable is unset.  Malformed values are fatal.
func mustDecimal(key, def string) decimal.Decimal {
    s := envStr(key, def)
    d, err := decimal.NewFromString(s)
    if err != nil {
        logging.L().Fatal("invalid decimal", zap.String("key", key), zap.String("value", s))
    }
    return d
}

func parseSet(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            m[p] = true
        }
    }
    return m
}
