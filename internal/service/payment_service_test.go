package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"paygate/config"
	"paygate/internal/domain"
	"paygate/internal/models"
	"paygate/internal/repository"
	"paygate/internal/settlement"
	"paygate/pkg/payment"

	"github.com/shopspring/decimal"
)

type recordedEvent struct {
	Type string
	ID   string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakePublisher) Publish(eventType string, p *models.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{eventType, p.ID})
}

func (f *fakePublisher) PublishDeleted(eventType, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{eventType, id})
}

type fakeNotifier struct {
	NotifyFunc func(ctx context.Context, event string, p *models.Payment) error
	calls      int
}

func (f *fakeNotifier) Notify(ctx context.Context, event string, p *models.Payment) error {
	f.calls++
	if f.NotifyFunc != nil {
		return f.NotifyFunc(ctx, event, p)
	}
	return nil
}

type standaloneFixture struct {
	svc    *StandaloneService
	store  *repository.MemoryPaymentStore
	sched  *settlement.ManualScheduler
	sim    *settlement.Simulator
	events *fakePublisher
}

func newStandalone(t *testing.T) standaloneFixture {
	t.Helper()
	store := repository.NewMemoryPaymentStore(nil)
	sched := settlement.NewManualScheduler()
	sim := settlement.NewSimulator(store, sched, config.SettlementConfig{Delay: 2 * time.Second, SuccessRate: 0.9})
	sim.Rand = func() float64 { return 0.1 }
	events := &fakePublisher{}
	sim.OnSettled = NewSettlementHook(events, nil)
	return standaloneFixture{
		svc:    NewStandaloneService(store, sim, events),
		store:  store,
		sched:  sched,
		sim:    sim,
		events: events,
	}
}

func usd(amount int64) models.CreatePaymentRequest {
	return models.CreatePaymentRequest{Amount: decimal.NewFromInt(amount), Currency: "USD"}
}

func TestStandaloneService_CreateSchedulesSettlement(t *testing.T) {
	ctx := context.Background()
	f := newStandalone(t)

	p, err := f.svc.Create(ctx, usd(100))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Status != domain.StatusPending {
		t.Errorf("Status = %q, want pending", p.Status)
	}
	if f.sched.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1 scheduled settlement", f.sched.Pending())
	}

	f.sched.Advance(2 * time.Second)
	got, err := f.svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Errorf("Status after settlement = %q, want completed", got.Status)
	}

	want := []recordedEvent{{domain.EventPaymentCreated, p.ID}, {domain.EventPaymentUpdated, p.ID}}
	if len(f.events.events) != len(want) {
		t.Fatalf("events = %v, want %v", f.events.events, want)
	}
	for i := range want {
		if f.events.events[i] != want[i] {
			t.Errorf("event[%d] = %v, want %v", i, f.events.events[i], want[i])
		}
	}
}

func TestStandaloneService_DeleteCancelsSettlement(t *testing.T) {
	ctx := context.Background()
	f := newStandalone(t)
	p, _ := f.svc.Create(ctx, usd(5))

	if err := f.svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.sched.Pending() != 0 {
		t.Errorf("Pending() = %d after delete, want 0", f.sched.Pending())
	}
	if err := f.svc.Delete(ctx, p.ID); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Errorf("second Delete() error = %v, want ErrPaymentNotFound", err)
	}
	if _, err := f.svc.Get(ctx, p.ID); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	last := f.events.events[len(f.events.events)-1]
	if last != (recordedEvent{domain.EventPaymentDeleted, p.ID}) {
		t.Errorf("last event = %v, want payment.deleted", last)
	}
}

func TestStandaloneService_ListInCreationOrder(t *testing.T) {
	ctx := context.Background()
	f := newStandalone(t)
	a, _ := f.svc.Create(ctx, usd(1))
	b, _ := f.svc.Create(ctx, usd(2))

	list, err := f.svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Errorf("List() = %v", list)
	}
	if f.svc.Mode() != domain.ModeStandalone {
		t.Errorf("Mode() = %q", f.svc.Mode())
	}
}

func TestSettlementHook_FiresWebhookOnlyWithURL(t *testing.T) {
	events := &fakePublisher{}
	var gotEvent string
	notifier := &fakeNotifier{NotifyFunc: func(_ context.Context, event string, _ *models.Payment) error {
		gotEvent = event
		return errors.New("endpoint down")
	}}
	hook := NewSettlementHook(events, notifier)

	hook(context.Background(), &models.Payment{ID: "a"})
	if notifier.calls != 0 {
		t.Errorf("webhook fired for payment without webhook_url")
	}

	withURL := &models.Payment{ID: "b"}
	withURL.WebhookURL = "https://merchant.example.com/hook"
	hook(context.Background(), withURL)
	if notifier.calls != 1 || gotEvent != domain.EventPaymentUpdated {
		t.Errorf("calls = %d, event = %q", notifier.calls, gotEvent)
	}
	if len(events.events) != 2 {
		t.Errorf("published %d events, want 2", len(events.events))
	}
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]*models.Payment
	hits int
}

func newFakeCache() *fakeCache { return &fakeCache{data: make(map[string]*models.Payment)} }

func (c *fakeCache) Get(_ context.Context, id string) (*models.Payment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.data[id]
	if ok {
		c.hits++
	}
	return p, ok
}

func (c *fakeCache) Set(_ context.Context, p *models.Payment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[p.ID] = p
}

// countingProvider wraps a provider and counts lookups.
type countingProvider struct {
	payment.Provider
	gets int
}

func (c *countingProvider) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	c.gets++
	return c.Provider.GetPayment(ctx, id)
}

func TestProxyService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	stub := payment.NewStubProvider()
	provider := &countingProvider{Provider: stub}
	cache := newFakeCache()
	svc := NewProxyService(provider, cache)

	desc := "Pro plan"
	url := "https://merchant.example.com/hook"
	req := usd(49)
	req.Description = &desc
	req.Metadata = models.RawJSON(`{"plan":"pro"}`)
	req.WebhookURL = url

	p, err := svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.Status != "pending" {
		t.Errorf("Status = %q, want lowercased pending", p.Status)
	}
	if p.Provider == nil || p.Provider.PaymentURL == "" || p.Provider.Mode != "test" {
		t.Errorf("Provider = %+v", p.Provider)
	}
	if p.Description != "Pro plan" || p.WebhookURL != url || string(p.Metadata) != `{"plan":"pro"}` {
		t.Errorf("Create() = %+v", p)
	}

	if _, err := svc.Get(ctx, p.ID); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if provider.gets != 0 || cache.hits != 1 {
		t.Errorf("gets = %d, hits = %d; want read served from cache", provider.gets, cache.hits)
	}

	stub.SetStatus(p.ID, "Confirmed")
	delete(cache.data, p.ID)
	got, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != "confirmed" || provider.gets != 1 {
		t.Errorf("Status = %q, gets = %d", got.Status, provider.gets)
	}
}

func TestProxyService_Errors(t *testing.T) {
	ctx := context.Background()
	stub := payment.NewStubProvider()
	svc := NewProxyService(stub, nil)

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrPaymentNotFound", err)
	}

	stub.Err = &payment.ProviderError{StatusCode: 502, Body: "bad gateway"}
	_, err := svc.Create(ctx, usd(1))
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("Create() error = %v, want ErrUpstream", err)
	}
	var perr *payment.ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != 502 {
		t.Errorf("wrapped ProviderError = %+v", perr)
	}

	if _, err := svc.List(ctx); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("List() error = %v, want ErrUnsupported", err)
	}
	if err := svc.Delete(ctx, "x"); !errors.Is(err, domain.ErrUnsupported) {
		t.Errorf("Delete() error = %v, want ErrUnsupported", err)
	}
}

func TestToProviderRequest(t *testing.T) {
	minimum := decimal.RequireFromString("5.5")
	allow := true
	req := usd(10)
	req.MinimumAmount = &minimum
	req.AllowCustomAmount = &allow
	req.SplitRecipient = models.RawJSON(`[{"wallet":"w"}]`)

	out := ToProviderRequest(req)
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	_ = json.Unmarshal(b, &got)
	if got["amount"] != 10.0 || got["minimum_amount"] != 5.5 || got["allow_custom_amount"] != true {
		t.Errorf("payload = %s", b)
	}
	if _, ok := got["maximum_amount"]; ok {
		t.Errorf("unset maximum_amount sent: %s", b)
	}
	if _, ok := got["split_recipient"].([]interface{}); !ok {
		t.Errorf("split_recipient = %v", got["split_recipient"])
	}
}

func TestFromProviderPayment(t *testing.T) {
	observed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	created := "2024-03-01T11:59:00Z"
	confirmed := "2024-03-01T12:01:30Z"
	pp := &payment.Payment{
		ID:             "pay_1",
		Amount:         decimal.RequireFromString("20"),
		Currency:       "USD",
		Status:         "Expired",
		CreatedAt:      &created,
		ConfirmedAt:    &confirmed,
		Metadata:       json.RawMessage(`null`),
		SettlementInfo: json.RawMessage(`{"batch_schedule":null}`),
	}
	p := FromProviderPayment(pp, observed)
	if p.Status != "expired" {
		t.Errorf("Status = %q", p.Status)
	}
	if p.Metadata != nil {
		t.Errorf("Metadata = %s, want nil for null", p.Metadata)
	}
	if string(p.Provider.SettlementInfo) != `{"batch_schedule":null}` {
		t.Errorf("SettlementInfo = %s", p.Provider.SettlementInfo)
	}
	if !p.CreatedAt.Equal(time.Date(2024, 3, 1, 11, 59, 0, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", p.CreatedAt)
	}
	if !p.UpdatedAt.Equal(time.Date(2024, 3, 1, 12, 1, 30, 0, time.UTC)) {
		t.Errorf("UpdatedAt = %v", p.UpdatedAt)
	}

	p = FromProviderPayment(&payment.Payment{ID: "pay_2", Status: "Pending"}, observed)
	if !p.CreatedAt.Equal(observed) || !p.UpdatedAt.Equal(observed) {
		t.Errorf("timestamps = %v / %v, want observed time", p.CreatedAt, p.UpdatedAt)
	}
}
