package cache

import (
	"context"
	"testing"
	"time"

	"paygate/config"
	"paygate/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func newTestCache(t *testing.T, ttl time.Duration) (*PaymentCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPaymentCache(client, ttl), mr
}

func TestPaymentCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)

	if _, ok := c.Get(ctx, "pay_1"); ok {
		t.Fatal("Get() hit on empty cache")
	}

	p := &models.Payment{
		ID:       "pay_1",
		Amount:   decimal.RequireFromString("49.99"),
		Currency: "USD",
		Status:   "pending",
		Metadata: models.RawJSON(`{"order":7}`),
		Provider: &models.ProviderDetails{QRCode: "solana:abc", Mode: "test"},
	}
	c.Set(ctx, p)

	if !mr.Exists("paygate:payment:pay_1") {
		t.Fatal("entry not stored under paygate:payment:pay_1")
	}
	if ttl := mr.TTL("paygate:payment:pay_1"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}

	got, ok := c.Get(ctx, "pay_1")
	if !ok {
		t.Fatal("Get() missed after Set()")
	}
	if !got.Amount.Equal(p.Amount) || got.Status != "pending" || string(got.Metadata) != `{"order":7}` {
		t.Errorf("Get() = %+v", got)
	}
	if got.Provider == nil || got.Provider.QRCode != "solana:abc" {
		t.Errorf("Provider = %+v", got.Provider)
	}

	mr.FastForward(time.Minute + time.Second)
	if _, ok := c.Get(ctx, "pay_1"); ok {
		t.Error("Get() hit after TTL expired")
	}
}

func TestPaymentCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	if err := mr.Set("paygate:payment:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(ctx, "bad"); ok {
		t.Error("Get() hit on corrupt entry")
	}
	if mr.Exists("paygate:payment:bad") {
		t.Error("corrupt entry not dropped")
	}
}

func TestPaymentCache_ServerDownIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)
	mr.Close()

	c.Set(ctx, &models.Payment{ID: "x"})
	if _, ok := c.Get(ctx, "x"); ok {
		t.Error("Get() hit with redis down")
	}
}

func TestNewRedisClient(t *testing.T) {
	ctx := context.Background()
	client, err := NewRedisClient(ctx, &config.CacheConfig{})
	if err != nil || client != nil {
		t.Fatalf("NewRedisClient(no addr) = %v, %v, want nil, nil", client, err)
	}

	mr := miniredis.RunT(t)
	client, err = NewRedisClient(ctx, &config.CacheConfig{Addr: mr.Addr()})
	if err != nil || client == nil {
		t.Fatalf("NewRedisClient() = %v, %v", client, err)
	}
	_ = client.Close()
}
