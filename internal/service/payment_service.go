package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"paygate/internal/domain"
	"paygate/internal/models"
	"paygate/internal/repository"
	"paygate/internal/settlement"
	"paygate/pkg/payment"

	"github.com/shopspring/decimal"
)

// PaymentService is what the HTTP handlers call, whatever the mode.
type PaymentService interface {
	Mode() string
	Create(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error)
	Get(ctx context.Context, id string) (*models.Payment, error)
	// List and Delete return domain.ErrUnsupported in proxy mode.
	List(ctx context.Context) ([]models.Payment, error)
	Delete(ctx context.Context, id string) error
}

// EventPublisher receives lifecycle events; ws.PaymentHub implements it.
type EventPublisher interface {
	Publish(eventType string, p *models.Payment)
	PublishDeleted(eventType, id string)
}

// WebhookNotifier delivers events to a payment's webhook_url.
type WebhookNotifier interface {
	Notify(ctx context.Context, event string, p *models.Payment) error
}

// PaymentCache holds provider payments between lookups.
type PaymentCache interface {
	Get(ctx context.Context, id string) (*models.Payment, bool)
	Set(ctx context.Context, p *models.Payment)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, *models.Payment) {}
func (nopPublisher) PublishDeleted(string, string)   {}

// StandaloneService manages the local payment lifecycle: records are
// created pending and settled later by the simulator.
type StandaloneService struct {
	store  repository.PaymentStore
	sim    *settlement.Simulator
	events EventPublisher
}

func NewStandaloneService(store repository.PaymentStore, sim *settlement.Simulator, events EventPublisher) *StandaloneService {
	if events == nil {
		events = nopPublisher{}
	}
	return &StandaloneService{store: store, sim: sim, events: events}
}

func (s *StandaloneService) Mode() string { return domain.ModeStandalone }

func (s *StandaloneService) Create(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	p, err := s.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.sim.Schedule(p.ID)
	slog.Info("[Payments] created", "id", p.ID, "amount", p.Amount.String(), "currency", p.Currency)
	s.events.Publish(domain.EventPaymentCreated, p)
	return p, nil
}

func (s *StandaloneService) Get(ctx context.Context, id string) (*models.Payment, error) {
	return s.store.Get(ctx, id)
}

func (s *StandaloneService) List(ctx context.Context) ([]models.Payment, error) {
	return s.store.List(ctx)
}

func (s *StandaloneService) Delete(ctx context.Context, id string) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPaymentNotFound
	}
	s.sim.Cancel(id)
	slog.Info("[Payments] deleted", "id", id)
	s.events.PublishDeleted(domain.EventPaymentDeleted, id)
	return nil
}

// NewSettlementHook publishes each settled payment and fires its webhook.
func NewSettlementHook(events EventPublisher, webhooks WebhookNotifier) func(context.Context, *models.Payment) {
	return func(ctx context.Context, p *models.Payment) {
		if events != nil {
			events.Publish(domain.EventPaymentUpdated, p)
		}
		if webhooks != nil && p.WebhookURL != "" {
			if err := webhooks.Notify(ctx, domain.EventPaymentUpdated, p); err != nil {
				slog.Warn("[Payments] webhook not delivered", "id", p.ID, "err", err)
			}
		}
	}
}

// ProxyService forwards to the upstream provider and reshapes its answers.
type ProxyService struct {
	provider payment.Provider
	cache    PaymentCache
	now      func() time.Time
}

// NewProxyService wires provider; cache may be nil.
func NewProxyService(provider payment.Provider, cache PaymentCache) *ProxyService {
	return &ProxyService{provider: provider, cache: cache, now: time.Now}
}

func (s *ProxyService) Mode() string { return domain.ModeProxy }

func (s *ProxyService) Create(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	pp, err := s.provider.CreatePayment(ctx, ToProviderRequest(req))
	if err != nil {
		return nil, upstream(err)
	}
	p := FromProviderPayment(pp, s.now())
	p.PaymentOptions = req.PaymentOptions.Clone()
	if p.Metadata == nil {
		p.Metadata = req.Metadata.Clone()
	}
	slog.Info("[Payments] created at provider", "id", p.ID, "status", p.Status)
	if s.cache != nil {
		s.cache.Set(ctx, p)
	}
	return p, nil
}

func (s *ProxyService) Get(ctx context.Context, id string) (*models.Payment, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, id); ok {
			return p, nil
		}
	}
	pp, err := s.provider.GetPayment(ctx, id)
	if err != nil {
		return nil, upstream(err)
	}
	p := FromProviderPayment(pp, s.now())
	if s.cache != nil {
		s.cache.Set(ctx, p)
	}
	return p, nil
}

func (s *ProxyService) List(ctx context.Context) ([]models.Payment, error) {
	return nil, domain.ErrUnsupported
}

func (s *ProxyService) Delete(ctx context.Context, id string) error {
	return domain.ErrUnsupported
}

func upstream(err error) error {
	if errors.Is(err, payment.ErrNotFound) {
		return domain.ErrPaymentNotFound
	}
	return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
}

// ToProviderRequest converts a validated request to the provider payload.
func ToProviderRequest(req models.CreatePaymentRequest) payment.CreatePaymentRequest {
	return payment.CreatePaymentRequest{
		Amount:                       json.Number(req.Amount.String()),
		Currency:                     req.Currency,
		Description:                  req.Description,
		Token:                        req.Token,
		Metadata:                     json.RawMessage(req.Metadata),
		AllowCustomAmount:            req.AllowCustomAmount,
		MinimumAmount:                number(req.MinimumAmount),
		MaximumAmount:                number(req.MaximumAmount),
		SuggestedAmount:              number(req.SuggestedAmount),
		WebhookURL:                   req.WebhookURL,
		SettlementPreferenceOverride: req.SettlementPreferenceOverride,
		SplitRecipient:               json.RawMessage(req.SplitRecipient),
	}
}

func number(d *decimal.Decimal) json.Number {
	if d == nil {
		return ""
	}
	return json.Number(d.String())
}

// FromProviderPayment maps a provider payment onto the local record shape.
// Provider statuses are lowercased; timestamps the provider omits fall back
// to observedAt.
func FromProviderPayment(pp *payment.Payment, observedAt time.Time) *models.Payment {
	p := &models.Payment{
		ID:       pp.ID,
		Amount:   pp.Amount,
		Currency: pp.Currency,
		Status:   strings.ToLower(pp.Status),
		Metadata: rawJSON(pp.Metadata),
		Provider: &models.ProviderDetails{
			QRCode:               pp.QRCode,
			PaymentURL:           pp.PaymentURL,
			Mode:                 pp.Mode,
			ExpiresAt:            pp.ExpiresAt,
			CustomerWallet:       pp.CustomerWallet,
			TransactionSignature: pp.TransactionSignature,
			ConfirmedAt:          pp.ConfirmedAt,
			SettlementInfo:       rawJSON(pp.SettlementInfo),
			SplitIDs:             pp.SplitIDs,
		},
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Token != nil {
		p.Token = *pp.Token
	}
	if !domain.ProviderStates.Known(pp.Status) {
		slog.Warn("[Payments] unknown provider status", "id", pp.ID, "status", pp.Status)
	}

	p.CreatedAt = parseTime(pp.CreatedAt, observedAt)
	p.UpdatedAt = parseTime(pp.ConfirmedAt, p.CreatedAt)
	if p.UpdatedAt.Before(p.CreatedAt) {
		p.UpdatedAt = p.CreatedAt
	}
	return p
}

// rawJSON copies b, treating JSON null as absent.
func rawJSON(b json.RawMessage) models.RawJSON {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}
	return models.RawJSON(b).Clone()
}

func parseTime(s *string, fallback time.Time) time.Time {
	if s == nil || *s == "" {
		return fallback.UTC()
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return fallback.UTC()
	}
	return t.UTC()
}
