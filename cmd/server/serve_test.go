package main

import (
	"context"
	"path/filepath"
	"testing"

	"paygate/config"
	"paygate/internal/domain"
	"paygate/internal/models"

	"github.com/shopspring/decimal"
)

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("PAYMENT_MODE", "standalone")
	t.Setenv("PORT", "8000")
	cmd := serveCmd()
	if err := cmd.ParseFlags([]string{"--port", "9100", "--mode", "STANDALONE", "--env-file", filepath.Join(t.TempDir(), "missing.env")}); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Server.Port != "9100" || cfg.Payment.Mode != domain.ModeStandalone {
		t.Errorf("cfg = %+v / %+v", cfg.Server, cfg.Payment)
	}
}

func TestLoadConfig_RejectsProxyWithoutKey(t *testing.T) {
	t.Setenv("ZENDFI_API_KEY", "")
	cmd := serveCmd()
	if err := cmd.ParseFlags([]string{"--mode", "proxy", "--env-file", filepath.Join(t.TempDir(), "missing.env")}); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(cmd); err == nil {
		t.Fatal("expected an error for proxy mode without an API key")
	}
}

func TestBuild_Standalone(t *testing.T) {
	cfg := config.Load()
	cfg.Payment.Mode = domain.ModeStandalone
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "paygate.db")}
	cfg.Server.RateLimit = 10

	a, err := build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer a.close()

	if a.svc.Mode() != domain.ModeStandalone || a.hub == nil || a.limiter == nil {
		t.Fatalf("app = %+v", a)
	}
	p, err := a.svc.Create(context.Background(), models.CreatePaymentRequest{Amount: decimal.NewFromInt(7), Currency: "USD"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Status != domain.StatusPending {
		t.Errorf("Status = %q", p.Status)
	}
}

func TestBuild_ProxyWithoutCache(t *testing.T) {
	cfg := config.Load()
	cfg.Payment.Mode = domain.ModeProxy
	cfg.Provider.APIKey = "sk_test"
	cfg.Cache.Addr = ""
	cfg.Server.RateLimit = 0

	a, err := build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	defer a.close()
	if a.svc.Mode() != domain.ModeProxy || a.hub != nil || a.limiter != nil {
		t.Errorf("app = %+v", a)
	}
}
