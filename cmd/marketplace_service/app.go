package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"freight-connect/internal/general/config"
	"freight-connect/internal/general/jwt"
	"freight-connect/internal/general/logger"
	"freight-connect/internal/general/metrics"
	"freight-connect/internal/general/postgres"
	"freight-connect/internal/general/rabbitmq"
	"freight-connect/internal/general/redis"
	"freight-connect/internal/ports"
	connecthandler "freight-connect/internal/software/connect/handler"
	connectservice "freight-connect/internal/software/connect/service"
	listinghandler "freight-connect/internal/software/listing/handler"
	listingservice "freight-connect/internal/software/listing/service"
	pricinghandler "freight-connect/internal/software/pricing/handler"
	pricingservice "freight-connect/internal/software/pricing/service"
	wallethandler "freight-connect/internal/software/wallet/handler"
	walletservice "freight-connect/internal/software/wallet/service"
)

// run wires the marketplace service and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string, maxConcurrent int, rps float64) error {
	logger := logger.New("marketplace-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	mq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}
	defer mq.Close()
	pub := rabbitmq.NewMQPublisher(mq)

	// The trip locator is optional. Without Redis the nearby endpoint
	// falls back to the store on every call.
	var locator ports.TripLocator
	if cfg.Redis.Enabled {
		loc, err := redis.Connect(ctx, cfg)
		if err != nil {
			logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
			return err
		}
		defer loc.Close()
		locator = loc
	} else {
		logger.Info(ctx, "redis_disabled", "Redis disabled, nearby lookups go straight to Postgres", nil)
	}

	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	uow := postgres.NewUnitOfWork(pool)
	connectRepo := postgres.NewConnectRequestRepo()
	leadRepo := postgres.NewLeadRepo()
	tripRepo := postgres.NewTripRepo()
	walletRepo := postgres.NewWalletRepo()
	bandRepo := postgres.NewBandRepo()
	users := postgres.NewUserDirectory()

	connectSvc := connectservice.NewConnectService(logger, uow, connectRepo, leadRepo, tripRepo, walletRepo, bandRepo, users, pub)
	listingSvc := listingservice.NewListingService(logger, cfg, uow, tripRepo, leadRepo, users, locator)
	walletSvc := walletservice.NewWalletService(logger, uow, walletRepo, pub)
	pricingSvc := pricingservice.NewPricingService(logger, uow, bandRepo)

	mux := http.NewServeMux()
	connecthandler.NewConnectHTTPHandler(connectSvc, logger, jwtManager).RegisterRoutes(mux)
	listinghandler.NewListingHTTPHandler(listingSvc, logger, jwtManager).RegisterRoutes(mux)
	wallethandler.NewWalletHTTPHandler(walletSvc, logger, jwtManager).RegisterRoutes(mux)
	pricinghandler.NewPricingHTTPHandler(pricingSvc, logger, jwtManager).RegisterRoutes(mux)

	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// limiters (global): sustained rate first, then in-flight cap
	limited := withConcurrencyLimit(maxConcurrent, withRateLimit(rps, mux))

	logger.Info(ctx, "service_started",
		fmt.Sprintf("Marketplace service started on port %d", cfg.Services.MarketplacePort),
		map[string]any{"port": cfg.Services.MarketplacePort, "max_concurrent": maxConcurrent, "rps": rps},
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.MarketplacePort),
		Handler:           limited,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err,
				map[string]any{"port": cfg.Services.MarketplacePort})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}

// withRateLimit caps the sustained request rate across all clients. Bursts up
// to twice the sustained rate are allowed before requests get 429s.
func withRateLimit(rps float64, next http.Handler) http.Handler {
	if rps <= 0 {
		return next
	}
	limiter := rate.NewLimiter(rate.Limit(rps), int(rps*2))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
