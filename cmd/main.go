package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"w3lottery/internal/api"
	"w3lottery/internal/cache"
	"w3lottery/internal/config"
	"w3lottery/internal/handlers"
	"w3lottery/internal/metrics"
	"w3lottery/internal/services"
	"w3lottery/internal/views"
	"w3lottery/web"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	defer logger.Init("w3lottery", cfg.Log.Verbose, cfg.Log.SystemLog, io.Discard).Close()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	loc, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		logger.Fatalf("Invalid timezone %q: %v", cfg.UI.Timezone, err)
	}
	views.SetLocation(loc)
	gin.SetMode(cfg.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Pick the cache store.
	var (
		store  cache.Store
		memory *cache.MemoryStore
		health func(context.Context) error
	)
	switch cfg.Cache.Backend {
	case "redis":
		rs, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Prefix:     cfg.Cache.Prefix,
		})
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer rs.Close()
		store = rs
		health = rs.Ping
		logger.Infof("Using redis cache at %s", cfg.Redis.Addr)
	default:
		memory = cache.NewMemoryStore()
		store = memory
		logger.Info("Using in-memory cache")
	}

	// 2. Initialize the services.
	client := api.NewClient(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout.Duration),
		api.WithToken(cfg.API.Token),
	)
	ttl := cfg.Cache.TTL
	lotteryService := services.NewLotteryService(client, store, services.TTLs{
		Lotteries:     ttl.Lotteries.Duration,
		Results:       ttl.Results.Duration,
		PastDraws:     ttl.PastDraws.Duration,
		RecentWinners: ttl.RecentWinners.Duration,
		PrizePool:     ttl.PrizePool.Duration,
		Tickets:       ttl.Tickets.Duration,
		Types:         ttl.Types.Duration,
		Issues:        ttl.Issues.Duration,
	})
	userService := services.NewUserService(client, store, ttl.User.Duration)
	walletService := services.NewWalletService(store, ttl.Wallet.Duration, userService)
	tokens := services.NewSessionTokens(cfg.Server.SessionSecret, cfg.Server.SessionTTL.Duration)

	// 3. Load HTML templates from the embedded filesystem.
	templates, err := web.Templates()
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}
	assets, err := web.Assets()
	if err != nil {
		logger.Fatalf("Failed to create assets sub-filesystem: %v", err)
	}

	// 4. Set up the Gin router.
	httpHandler := handlers.NewHTTPHandler(lotteryService, walletService, userService, tokens, templates, handlers.Options{
		DefaultLanguage: cfg.UI.DefaultLanguage,
		PageSize:        cfg.UI.PageSize,
		SecureCookie:    cfg.Server.SecureCookie,
		Health:          health,
	})
	r := gin.Default()
	r.Use(metrics.Middleware())
	r.StaticFS("/assets", http.FS(assets))
	httpHandler.RegisterRoutes(r)

	// 5. Start the background janitors.
	go every(ctx, cfg.Server.JanitorEvery.Duration, func() {
		if n := walletService.CleanUpInactiveSessions(cfg.Server.SessionIdle.Duration); n > 0 {
			logger.Infof("Cleaned up %d inactive sessions.", n)
		}
	})
	if memory != nil {
		go every(ctx, cfg.Cache.SweepInterval.Duration, func() {
			if n := memory.Sweep(); n > 0 {
				logger.Infof("Swept %d expired cache entries.", n)
			}
		})
	}

	// 6. Run the server until interrupted.
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Server starting on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}

// every runs fn on each tick of d until ctx is done.
func every(ctx context.Context, d time.Duration, fn func()) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
