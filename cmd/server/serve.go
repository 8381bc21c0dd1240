package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"paygate/config"
	"paygate/internal/cache"
	"paygate/internal/database"
	"paygate/internal/domain"
	"paygate/internal/middleware"
	"paygate/internal/repository"
	"paygate/internal/router"
	"paygate/internal/service"
	"paygate/internal/settlement"
	"paygate/internal/webhook"
	"paygate/internal/ws"
	"paygate/pkg/payment"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the payment API.

Examples:
  paygate serve
  paygate serve --mode proxy --port 9000`,
		RunE: runServe,
	}
	addServeFlags(cmd)
	return cmd
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "", "payment mode (standalone or proxy), overrides PAYMENT_MODE")
	cmd.Flags().String("port", "", "listen port, overrides PORT")
	cmd.Flags().String("env-file", ".env", "dotenv file to load before reading the environment")
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if f := cmd.Flags().Lookup("env-file"); f != nil {
		config.LoadEnvFile(f.Value.String())
	} else {
		config.LoadEnvFile()
	}
	cfg := config.Load()
	if f := cmd.Flags().Lookup("mode"); f != nil && f.Changed {
		cfg.Payment.Mode = strings.ToLower(f.Value.String())
	}
	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		cfg.Server.Port = f.Value.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}

// app holds what the server needs plus everything to release on shutdown.
type app struct {
	svc     service.PaymentService
	hub     *ws.PaymentHub
	limiter *middleware.InMemoryRateLimiter
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cfg)

	a, err := build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	engine := router.Setup(cfg, a.svc, a.hub, a.limiter)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("[Server] listening", "port", cfg.Server.Port, "mode", cfg.Payment.Mode, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		slog.Info("[Server] shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("[Server] stopped")
	return nil
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a := &app{}
	if cfg.Server.RateLimit > 0 {
		a.limiter = middleware.NewInMemoryRateLimiter(cfg.Server.RateLimit, cfg.Server.RateLimitWindow)
		a.closers = append(a.closers, a.limiter.Stop)
	}

	switch cfg.Payment.Mode {
	case domain.ModeProxy:
		var pc service.PaymentCache
		client, err := cache.NewRedisClient(ctx, &cfg.Cache)
		if err != nil {
			a.close()
			return nil, err
		}
		if client != nil {
			pc = cache.NewPaymentCache(client, cfg.Cache.TTL)
			a.closers = append(a.closers, closeRedis(client))
		}
		provider := payment.NewZendfiProvider(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout)
		a.svc = service.NewProxyService(provider, pc)
	default:
		store, err := openStore(cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, store.close)

		sched := settlement.NewTimerScheduler()
		// pending settlements are dropped on shutdown; the store is closed after
		a.closers = append(a.closers, func() {
			sched.Stop()
			sched.Wait()
		})
		sim := settlement.NewSimulator(store.PaymentStore, sched, cfg.Settlement)
		a.hub = ws.NewPaymentHub()
		sim.OnSettled = service.NewSettlementHook(a.hub, webhook.NewNotifier(cfg.Webhook))
		a.svc = service.NewStandaloneService(store.PaymentStore, sim, a.hub)
	}
	return a, nil
}

type openedStore struct {
	repository.PaymentStore
	close func()
}

func openStore(cfg *config.Config) (openedStore, error) {
	if cfg.Database.Driver == "memory" {
		return openedStore{PaymentStore: repository.NewMemoryPaymentStore(nil), close: func() {}}, nil
	}
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return openedStore{}, fmt.Errorf("database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return openedStore{}, fmt.Errorf("database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		sqlDB.Close()
		return openedStore{}, fmt.Errorf("migrate: %w", err)
	}
	slog.Info("[Database] connected", "driver", cfg.Database.Driver)
	return openedStore{
		PaymentStore: repository.NewPaymentRepository(db, nil),
		close: func() {
			if err := sqlDB.Close(); err != nil {
				slog.Warn("[Database] close failed", "error", err)
			}
		},
	}, nil
}

func closeRedis(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			slog.Warn("[Cache] close failed", "error", err)
		}
	}
}
