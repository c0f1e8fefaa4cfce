package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/gigbook/internal/config"
	"github.com/kirinyoku/gigbook/internal/notify"
	"github.com/kirinyoku/gigbook/internal/postgres"
	"github.com/kirinyoku/gigbook/internal/queue"
	redisx "github.com/kirinyoku/gigbook/internal/redis"
	postgresrepo "github.com/kirinyoku/gigbook/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/gigbook/internal/repository/redis"
	"github.com/kirinyoku/gigbook/internal/service"
	"github.com/kirinyoku/gigbook/internal/service/profiles"
	httpgin "github.com/kirinyoku/gigbook/internal/transport/http/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	services   *service.Services

	pool      *pgxpool.Pool
	rdb       *redis.Client
	publisher *queue.Publisher
	consumer  *queue.Consumer
}

func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	pgxPool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redisx.New(ctx, redisx.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		pgxPool.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	a := &App{
		cfg:    cfg,
		logger: logger,
		pool:   pgxPool,
		rdb:    rdb,
	}

	// Repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb, cfg.Cache.CalendarTTL)
	pubsub := redisx.NewNotificationsPubSub(rdb)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, cfg.Cache.IdempotencyTTL)

	var limiter *redisrepo.SlidingWindowLimiter
	if cfg.Booking.RateLimit > 0 {
		limiter = redisrepo.NewSlidingWindowLimiter(rdb, "booking", cfg.Booking.RateLimit, cfg.Booking.RateWindow)
	}

	// Notification fan-out: the live stream always, the broker when configured.
	publishers := []notify.Publisher{pubsub}
	if cfg.RabbitMQ.URL != "" {
		a.publisher = queue.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
		a.consumer = queue.NewConsumer(
			cfg.RabbitMQ.URL,
			cfg.RabbitMQ.Queue,
			cfg.RabbitMQ.Prefetch,
			queue.LogHandler(logger),
			logger,
		)
		publishers = append(publishers, a.publisher)
	}
	dispatcher := notify.NewDispatcher(store.Notifications(), publishers...)

	// Services
	a.services = service.NewServices(service.Deps{
		Store:      store,
		Cache:      cache,
		PubSub:     pubsub,
		Limiter:    limiter,
		Dispatcher: dispatcher,
	}, logger, service.Config{
		Profiles: profiles.Config{PurgeAfter: cfg.Jobs.PurgeAfter},
	})

	router := httpgin.NewRouter(a.services, idempotencyStore, logger, httpgin.RouterConfig{
		JWTSecret: cfg.Auth.JWTSecret,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info().Str("host", a.cfg.Server.Host).Int("port", a.cfg.Server.Port).Msg("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Expire overdue proposals and purge soft-deleted profiles
	g.Go(func() error {
		a.sweepLoop(gCtx)
		return nil
	})

	if a.consumer != nil {
		g.Go(func() error {
			return a.consumer.Run(gCtx)
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info().Msg("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Jobs.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep(ctx)
		}
	}
}

func (a *App) sweep(ctx context.Context) {
	expired, err := a.services.Contracts.ExpireDue(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("sweep: expire proposals")
	} else if expired > 0 {
		a.logger.Info().Int("count", expired).Msg("sweep: proposals expired")
	}

	purged, err := a.services.Profiles.PurgeDeleted(ctx)
	if err != nil {
		a.logger.Error().Err(err).Msg("sweep: purge profiles")
	} else if purged > 0 {
		a.logger.Info().Int64("count", purged).Msg("sweep: profiles purged")
	}
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("close queue publisher")
		}
	}
	if err := a.rdb.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close redis")
	}
	a.pool.Close()
}
