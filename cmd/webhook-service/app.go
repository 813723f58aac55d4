package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"github.com/igoorng/webhook/internal/api"
	"github.com/igoorng/webhook/internal/auth"
	"github.com/igoorng/webhook/internal/config"
	"github.com/igoorng/webhook/internal/constants"
	"github.com/igoorng/webhook/internal/forward"
	"github.com/igoorng/webhook/internal/ingest"
	"github.com/igoorng/webhook/internal/live"
	"github.com/igoorng/webhook/internal/logger"
	"github.com/igoorng/webhook/internal/pagination"
	"github.com/igoorng/webhook/internal/settings"
	"github.com/igoorng/webhook/internal/store"
	"github.com/igoorng/webhook/pkg/bootstrap"
	"github.com/igoorng/webhook/pkg/cel"
	"github.com/igoorng/webhook/pkg/circuitbreaker"
	"github.com/igoorng/webhook/pkg/health"
	"github.com/igoorng/webhook/pkg/metrics"
	"github.com/igoorng/webhook/pkg/middleware"
	"github.com/igoorng/webhook/pkg/ratelimit"
	"github.com/igoorng/webhook/pkg/retry"
	"github.com/igoorng/webhook/pkg/tracing"
)

type App struct {
	config         *config.Config
	logger         logger.Logger
	base           *bootstrap.Base
	store          *store.Store
	settings       *settings.Store
	hub            *live.Hub
	forwarder      *forward.Forwarder
	limiter        *ratelimit.Store
	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
		base:   bootstrap.NewBase(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(ctx, a.config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := a.initForwarding(ctx); err != nil {
		return fmt.Errorf("failed to initialize forwarding: %w", err)
	}

	if err := a.initRouter(); err != nil {
		a.base.CloseSinks()
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		a.base.CloseSinks()
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return nil
}

func (a *App) initStorage() error {
	st, err := store.Open(store.Options{
		DataDir:           a.config.Storage.DataDir,
		MaxActiveMessages: a.config.Storage.MaxActiveMessages,
	}, a.logger)
	if err != nil {
		return err
	}
	a.store = st

	a.settings = settings.Load(a.config.Storage.DataDir, settings.Settings{
		Secret:      a.config.Webhook.Secret,
		Enabled:     a.config.Webhook.Enabled,
		EventFilter: a.config.Webhook.EventFilter,
	}, a.logger)

	a.hub = live.NewHub(a.config.Stream.SubscriberBuffer, a.logger)
	return nil
}

func (a *App) initForwarding(ctx context.Context) error {
	if err := a.base.InitSinks(ctx); err != nil {
		return err
	}

	fwd := a.config.Forward
	opts := forward.Options{
		QueueSize: fwd.QueueSize,
		Workers:   fwd.Workers,
		Retry: retry.Policy{
			MaxAttempts:     fwd.Retry.MaxAttempts,
			InitialInterval: fwd.Retry.InitialInterval,
			MaxInterval:     fwd.Retry.MaxInterval,
			Multiplier:      fwd.Retry.Multiplier,
		},
	}

	if cb := a.config.CircuitBreaker; cb.Enabled {
		opts.CircuitBreaker = &circuitbreaker.Config{
			MaxRequests:  cb.MaxRequests,
			Interval:     cb.Interval,
			Timeout:      cb.Timeout,
			FailureRatio: cb.FailureRatio,
			MinRequests:  cb.MinRequests,
		}
	}

	a.forwarder = forward.New(opts, a.logger, a.base.Sinks...)
	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Source IPs are recorded from the socket peer, never from forwarding headers.
	if err := router.SetTrustedProxies(nil); err != nil {
		return err
	}

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	var webhookMiddleware []gin.HandlerFunc
	if rl := a.config.Webhook.RateLimit; rl.Enabled {
		a.limiter = ratelimit.NewStore(ratelimit.RateLimitConfig{
			RPS:             rl.RPS,
			Burst:           rl.Burst,
			CleanupInterval: time.Duration(rl.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(rl.MaxAge) * time.Second,
		})
		webhookMiddleware = append(webhookMiddleware, a.limiter.Middleware())
		a.logger.InfowCtx(context.Background(), "Rate limiting enabled", "rps", rl.RPS, "burst", rl.Burst)
	}

	ingestOpts := []ingest.Option{}
	if a.forwarder.Enabled() {
		ingestOpts = append(ingestOpts, ingest.WithForwarder(a.forwarder))
	}
	if expr := a.config.Webhook.FilterExpression; expr != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return fmt.Errorf("failed to create CEL evaluator: %w", err)
		}
		filter, err := evaluator.CompileFilter(expr)
		if err != nil {
			return fmt.Errorf("invalid webhook.filter_expression: %w", err)
		}
		ingestOpts = append(ingestOpts, ingest.WithFilter(filter))
		a.logger.InfowCtx(context.Background(), "Filter expression enabled", "expression", expr)
	}

	service := ingest.NewService(a.settings, a.store, a.hub, a.logger, ingestOpts...)

	gate, err := auth.NewGate(a.config.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}

	handler := api.NewHandler(
		service,
		a.store,
		pagination.NewEngine(a.store, a.config.Storage.PageSize),
		a.settings,
		a.hub,
		gate,
		api.Options{
			MaxBodyBytes: a.config.Webhook.MaxBodyBytes,
			Heartbeat:    a.config.Stream.HeartbeatInterval,
		},
		a.logger,
	)
	handler.RegisterRoutes(router, webhookMiddleware...)

	metrics.RegisterWebhookMetrics()
	metrics.RegisterForwardMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.SetActiveMessages(a.store.ActiveCount())

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewDataDirChecker(a.store.DataDir()))
	if a.base.Redis != nil {
		healthRegistry.Register(health.NewRedisChecker(a.base.Redis))
	}

	router.GET(constants.PathHealth, func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET(constants.PathMetrics, gin.WrapH(promhttp.Handler()))
	router.GET(constants.PathSwagger, ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:           a.router,
		ReadTimeout:       a.config.Server.ReadTimeout,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
		IdleTimeout:       a.config.Server.IdleTimeout,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(gctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.forwarder.Run(gctx)
	})

	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.RunCleanup(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.base.Shutdown(ctx, func(ctx context.Context) []error {
		shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
		defer cancel()

		var errs []error

		// Closing the hub ends open streams, which Server.Shutdown would
		// otherwise wait on.
		if a.hub != nil {
			a.hub.Close()
		}

		if a.server != nil {
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return errs
	})
}
