package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StubProvider is an in-memory provider for development and tests. Every
// payment it creates stays Pending until SetStatus is called.
type StubProvider struct {
	mu       sync.Mutex
	payments map[string]Payment
	// Err, when set, is returned by every call.
	Err error
}

func NewStubProvider() *StubProvider {
	return &StubProvider{payments: make(map[string]Payment)}
}

func (s *StubProvider) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return nil, &ProviderError{StatusCode: 422, Body: fmt.Sprintf(`{"error":"invalid amount %q"}`, req.Amount)}
	}
	id := "stub_" + uuid.NewString()
	now := time.Now().UTC()
	created := now.Format(time.RFC3339)
	p := Payment{
		ID:          id,
		Amount:      amount,
		Currency:    req.Currency,
		Token:       req.Token,
		Description: req.Description,
		Status:      "Pending",
		QRCode:      "solana:stub?reference=" + id,
		PaymentURL:  "https://checkout.invalid/pay/" + id,
		Mode:        "test",
		ExpiresAt:   now.Add(15 * time.Minute).Format(time.RFC3339),
		CreatedAt:   &created,
		Metadata:    append(json.RawMessage(nil), req.Metadata...),
	}
	s.payments[id] = p
	return &p, nil
}

func (s *StubProvider) GetPayment(ctx context.Context, id string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// SetStatus changes the status reported for id.
func (s *StubProvider) SetStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return false
	}
	p.Status = status
	s.payments[id] = p
	return true
}
