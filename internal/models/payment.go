package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// PaymentOptions are the optional checkout settings accepted on creation.
// They are stored and echoed back; the provider interprets them in proxy mode.
type PaymentOptions struct {
	AllowCustomAmount            *bool            `gorm:"column:allow_custom_amount" json:"allow_custom_amount,omitempty"`
	MinimumAmount                *decimal.Decimal `gorm:"column:minimum_amount;serializer:decimal;size:32" json:"minimum_amount,omitempty"`
	MaximumAmount                *decimal.Decimal `gorm:"column:maximum_amount;serializer:decimal;size:32" json:"maximum_amount,omitempty"`
	SuggestedAmount              *decimal.Decimal `gorm:"column:suggested_amount;serializer:decimal;size:32" json:"suggested_amount,omitempty"`
	WebhookURL                   string           `gorm:"column:webhook_url;size:2048" json:"webhook_url,omitempty" validate:"omitempty,url,startswith=http"`
	SettlementPreferenceOverride string           `gorm:"column:settlement_preference_override;size:64" json:"settlement_preference_override,omitempty"`
	SplitRecipient               RawJSON          `gorm:"column:split_recipient" json:"split_recipient,omitempty"`
}

// CreatePaymentRequest is a validated, normalized creation request.
type CreatePaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"len=3"`
	Description *string         `json:"description,omitempty" validate:"omitempty,min=1,max=500"`
	Token       *string         `json:"token,omitempty" validate:"omitempty,max=255"`
	Metadata    RawJSON         `json:"metadata,omitempty"`
	PaymentOptions
}

// ProviderDetails are the checkout fields only an upstream provider supplies.
type ProviderDetails struct {
	QRCode               string   `json:"qr_code,omitempty"`
	PaymentURL           string   `json:"payment_url,omitempty"`
	Mode                 string   `json:"mode,omitempty"`
	ExpiresAt            string   `json:"expires_at,omitempty"`
	CustomerWallet       *string  `json:"customer_wallet,omitempty"`
	TransactionSignature *string  `json:"transaction_signature,omitempty"`
	ConfirmedAt          *string  `json:"confirmed_at,omitempty"`
	SettlementInfo       RawJSON  `json:"settlement_info,omitempty"`
	SplitIDs             []string `json:"split_ids,omitempty"`
}

// Payment is the canonical payment record and the response shape of the API.
type Payment struct {
	Seq         uint64          `gorm:"primaryKey;autoIncrement" json:"-"`
	ID          string          `gorm:"size:36;uniqueIndex;not null" json:"id"`
	Amount      decimal.Decimal `gorm:"serializer:decimal;size:32;not null" json:"amount"`
	Currency    string          `gorm:"size:3;not null" json:"currency"`
	Description string          `gorm:"size:500" json:"description,omitempty"`
	Token       string          `gorm:"size:255" json:"token,omitempty"`
	Status      string          `gorm:"size:20;not null;index" json:"status"`
	Metadata    RawJSON         `json:"metadata,omitempty"`
	PaymentOptions
	Provider  *ProviderDetails `gorm:"-" json:"provider,omitempty"`
	CreatedAt time.Time        `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (Payment) TableName() string {
	return "payments"
}

// NewPayment builds a record from a request; identity, status and timestamps are left to the store.
func NewPayment(req CreatePaymentRequest) Payment {
	p := Payment{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Metadata:       req.Metadata.Clone(),
		PaymentOptions: req.PaymentOptions.Clone(),
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Token != nil {
		p.Token = *req.Token
	}
	return p
}

// Clone returns a deep copy safe to hand out of a store.
func (p Payment) Clone() Payment {
	out := p
	out.Metadata = p.Metadata.Clone()
	out.PaymentOptions = p.PaymentOptions.Clone()
	if p.Provider != nil {
		d := *p.Provider
		d.SettlementInfo = p.Provider.SettlementInfo.Clone()
		d.SplitIDs = append([]string(nil), p.Provider.SplitIDs...)
		out.Provider = &d
	}
	return out
}

func (o PaymentOptions) Clone() PaymentOptions {
	out := o
	if o.AllowCustomAmount != nil {
		v := *o.AllowCustomAmount
		out.AllowCustomAmount = &v
	}
	out.MinimumAmount = cloneDecimal(o.MinimumAmount)
	out.MaximumAmount = cloneDecimal(o.MaximumAmount)
	out.SuggestedAmount = cloneDecimal(o.SuggestedAmount)
	out.SplitRecipient = o.SplitRecipient.Clone()
	return out
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
