package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/skyseat/internal/config"
	"github.com/kirinyoku/skyseat/internal/kafka"
	"github.com/kirinyoku/skyseat/internal/lock"
	"github.com/kirinyoku/skyseat/internal/notify"
	"github.com/kirinyoku/skyseat/internal/redis"
	redisrepo "github.com/kirinyoku/skyseat/internal/repository/redis"
	"github.com/kirinyoku/skyseat/internal/service"
	"github.com/kirinyoku/skyseat/internal/service/query"
	"github.com/kirinyoku/skyseat/internal/subscription"
	httpgin "github.com/kirinyoku/skyseat/internal/transport/http/gin"
	"github.com/kirinyoku/skyseat/internal/transport/websocket"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server

	// events is nil without Redis. When set, every instance feeds local
	// from it so waiters on any instance see cancellations made elsewhere.
	events *redisrepo.FlightEvents
	local  notify.Notifier

	closers []func()
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	ctx := context.Background()
	a := &App{cfg: cfg, logger: logger}

	// Initialize storage
	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	a.closers = append(a.closers, closeStore)

	// Initialize optional Redis-backed collaborators
	var (
		cache   *redisrepo.Cache
		limiter *redisrepo.SlidingWindowLimiter
		idem    *redisrepo.IdempotencyStore
		locker  lock.Locker = lock.NewLocal(cfg.Lock.Timeout)
	)
	if cfg.Redis.Enabled() {
		rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		cache = redisrepo.New(rdb)
		idem = redisrepo.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
		a.events = redisrepo.NewFlightEvents(rdb)
		if cfg.RateLimit.Limit > 0 {
			limiter = redisrepo.NewSlidingWindowLimiter(rdb, "booking", cfg.RateLimit.Limit, cfg.RateLimit.Window)
		}
		if cfg.Lock.Backend == config.LockRedis {
			locker = redisrepo.NewFlightLock(rdb, cfg.Lock.Timeout, cfg.Lock.Lease)
		}
	}
	logger.Info("flight lock", "backend", cfg.Lock.Backend, "timeout", cfg.Lock.Timeout)

	queryCfg := query.Config{BookingInfoTTL: cfg.Redis.BookingInfoTTL}

	// Local listeners: long-poll subscriptions and websocket clients.
	subs := subscription.NewManager(query.New(store, cache, queryCfg), logger)
	hub := websocket.NewHub(logger)
	a.local = notify.Multi{subs, hub}

	// With Redis the local listeners are fed from the pub/sub loop in Run,
	// so publishing is all a cancellation has to do here.
	var notifiers notify.Multi
	if a.events != nil {
		notifiers = append(notifiers, a.events)
	} else {
		notifiers = append(notifiers, a.local)
	}
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		a.closers = append(a.closers, func() { _ = producer.Close() })
		notifiers = append(notifiers, producer)
	}

	// Initialize services
	services := service.NewServices(service.Deps{
		Store:    store,
		Locker:   locker,
		Cache:    cache,
		Limiter:  limiter,
		Notifier: notifiers,
		Logger:   logger,
	}, service.Config{Query: queryCfg})

	// Seed catalog
	cat, err := loadCatalog(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s:%w", op, err)
	}
	if cat != nil {
		if err := services.Admin.ImportCatalog(ctx, cat); err != nil {
			a.Close()
			return nil, fmt.Errorf("%s:%w", op, err)
		}
	}

	// Initialize Gin router
	router := httpgin.NewRouter(services, httpgin.Options{
		Idempotency:      idem,
		Subscriptions:    subs,
		Hub:              hub,
		SubscribeTimeout: cfg.Subscription.Timeout,
		AdminToken:       cfg.Server.AdminToken,
		SecureCookies:    cfg.Server.SecureCookies,
	}, logger)

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
	defer a.Close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Fan flight-changed messages from other instances out to local listeners
	if a.events != nil {
		g.Go(func() error {
			err := a.events.Subscribe(gCtx, func(ctx context.Context, flightID int64) {
				if err := a.local.Notify(ctx, flightID); err != nil {
					a.logger.Warn("local notify failed", "flight_id", flightID, "error", err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("flight events subscription: %w", err)
			}
			return nil
		})
	}

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

// Close releases storage, Redis and Kafka handles in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
