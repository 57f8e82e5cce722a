package main // Entry point of the parking reservation API

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/config"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/database"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/handler"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/idempotency"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/identity"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/logging"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/metrics"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/middleware"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/queue"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/repository"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/router"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/service"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store"
	"github.com/VINAYAK-N-MAGAJIKONDI/userpark/internal/store/memory"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger, err := logging.NewLoggerFromEnv()
	if err != nil {
		logger = logging.NewNoOpLogger()
	}
	logging.SetGlobal(logger)
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(logger *logging.Logger) error {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// Redis is optional; nil disables the cache, rate limit and idempotency.
	rdb := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable, cache, rate limiting and idempotency disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	m, err := metrics.New("userpark", prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	inventory := service.NewInventory(st, cfg.SlotBayCount, cfg.OperatorAccountID, logger)
	if _, err := inventory.EnsureOperator(ctx); err != nil {
		return err
	}
	provisioner := service.NewProvisioner(st, service.ShortCodePolicy{
		Width:    cfg.ShortCodeWidth,
		Attempts: cfg.ShortCodeAttempts,
		MaxWidth: cfg.ShortCodeMaxWidth,
	}, logger, m)
	wallet := service.NewWallet(st, logger, m)

	opts := []service.EngineOption{service.WithMetrics(m)}
	if rdb != nil {
		opts = append(opts, service.WithIdempotency(idempotency.NewRedisStore(rdb, "", cfg.IdempotencyTTL)))
	}
	var publisher *queue.Publisher
	if cfg.RabbitMQURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitMQURL, logger)
		opts = append(opts, service.WithEvents(publisher))
	}
	engine := service.NewEngine(st, service.EngineConfig{
		Fee:         cfg.ReservationFee,
		OperatorID:  cfg.OperatorAccountID,
		MaxAttempts: cfg.ReserveMaxAttempts,
		Hold:        cfg.ReservationHold,
	}, logger, opts...)

	e := newEcho(logger)
	router.Register(e, router.Deps{
		Verifier:     verifier,
		Accounts:     provisioner,
		IsAdmin:      cfg.IsAdmin,
		Cache:        middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Gatherer:     prometheus.DefaultGatherer,
		Logger:       logger,
		Slots:        handler.NewSlotHandler(inventory),
		Account:      handler.NewAccountHandler(wallet, inventory),
		Reservations: handler.NewReservationHandler(engine),
		Admin:        handler.NewAdminHandler(inventory),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.RabbitMQURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.LogDir, logger)
		g.Go(func() error { return consumer.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := e.Shutdown(sctx)
		engine.Wait()
		if publisher != nil {
			_ = publisher.Close()
		}
		return err
	})
	return g.Wait()
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (store.Store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		logger.Warn("using in-memory store, data is lost on exit")
		return memory.New(), func() {}, nil
	}
	db, err := database.Open(ctx, database.Options{
		User:            cfg.DBUser,
		Password:        cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	return repository.NewStore(db), func() { _ = db.Close() }, nil
}

func newVerifier(ctx context.Context, cfg config.Config) (identity.Verifier, error) {
	if cfg.IdentityProvider == config.IdentityFirebase {
		return identity.NewFirebaseVerifier(ctx, cfg.FirebaseCredentials)
	}
	return identity.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
}

func newEcho(logger *logging.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				logger.Error("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	return e
}
