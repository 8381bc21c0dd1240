package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when the provider has no payment with the requested id.
var ErrNotFound = errors.New("payment not found at provider")

// ProviderError is any other non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider responded %d: %s", e.StatusCode, e.Body)
}

// CreatePaymentRequest is the provider's creation payload.
type CreatePaymentRequest struct {
	Amount                       json.Number     `json:"amount"`
	Currency                     string          `json:"currency"`
	Description                  *string         `json:"description,omitempty"`
	Token                        *string         `json:"token,omitempty"`
	Metadata                     json.RawMessage `json:"metadata,omitempty"`
	AllowCustomAmount            *bool           `json:"allow_custom_amount,omitempty"`
	MinimumAmount                json.Number     `json:"minimum_amount,omitempty"`
	MaximumAmount                json.Number     `json:"maximum_amount,omitempty"`
	SuggestedAmount              json.Number     `json:"suggested_amount,omitempty"`
	WebhookURL                   string          `json:"webhook_url,omitempty"`
	SettlementPreferenceOverride string          `json:"settlement_preference_override,omitempty"`
	SplitRecipient               json.RawMessage `json:"split_recipient,omitempty"`
}

// Payment is a payment as the provider reports it.
type Payment struct {
	ID                   string          `json:"id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	Token                *string         `json:"token,omitempty"`
	Description          *string         `json:"description,omitempty"`
	Status               string          `json:"status"`
	QRCode               string          `json:"qr_code"`
	PaymentURL           string          `json:"payment_url"`
	Mode                 string          `json:"mode"`
	ExpiresAt            string          `json:"expires_at"`
	CreatedAt            *string         `json:"created_at,omitempty"`
	CustomerWallet       *string         `json:"customer_wallet,omitempty"`
	TransactionSignature *string         `json:"transaction_signature,omitempty"`
	ConfirmedAt          *string         `json:"confirmed_at,omitempty"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
	SettlementInfo       json.RawMessage `json:"settlement_info,omitempty"`
	SplitIDs             []string        `json:"split_ids,omitempty"`
}

// Provider creates and looks up payments at an upstream processor.
type Provider interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
}
