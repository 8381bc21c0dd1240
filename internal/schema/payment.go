// Package schema validates and normalizes inbound payment requests.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"paygate/internal/domain"
	"paygate/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Accepted amounts have at most 12 integer digits and 8 decimal places.
const (
	maxIntegerDigits = 12
	maxDecimalPlaces = 8
	maxNumberLength  = 64
)

var errOutOfRange = errors.New("number out of range")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ParsePayment decodes a JSON request body and validates it.
func ParsePayment(body []byte) (models.CreatePaymentRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		verr := &domain.ValidationError{}
		verr.Add("body", "Request body must be a JSON object")
		return models.CreatePaymentRequest{}, verr
	}
	return Validate(fields)
}

// Validate turns an untyped request into a CreatePaymentRequest. On failure
// the returned *domain.ValidationError lists every violated field.
func Validate(fields map[string]json.RawMessage) (models.CreatePaymentRequest, error) {
	var req models.CreatePaymentRequest
	verr := &domain.ValidationError{}

	if raw, ok := present(fields, "amount"); !ok {
		verr.Add("amount", "Required")
	} else if d, msg := parseAmount(raw); msg != "" {
		verr.Add("amount", msg)
	} else {
		req.Amount = d
	}

	if raw, ok := present(fields, "currency"); !ok {
		verr.Add("currency", "Required")
	} else if s, err := parseString(raw); err != nil {
		verr.Add("currency", "Expected string")
	} else {
		req.Currency = strings.ToUpper(s)
	}

	req.Description = optionalString(fields, "description", verr)
	req.Token = optionalString(fields, "token", verr)

	if raw, ok := present(fields, "metadata"); ok {
		if !isKind(raw, '{') {
			verr.Add("metadata", "Expected object")
		} else {
			req.Metadata = models.RawJSON(raw)
		}
	}

	if raw, ok := present(fields, "allow_custom_amount"); ok {
		if b, err := parseBool(raw); err != nil {
			verr.Add("allow_custom_amount", "Expected boolean")
		} else {
			req.AllowCustomAmount = &b
		}
	}
	req.MinimumAmount = optionalNumber(fields, "minimum_amount", verr)
	req.MaximumAmount = optionalNumber(fields, "maximum_amount", verr)
	req.SuggestedAmount = optionalNumber(fields, "suggested_amount", verr)
	if req.MinimumAmount != nil && req.MaximumAmount != nil && req.MinimumAmount.GreaterThan(*req.MaximumAmount) {
		verr.Add("minimum_amount", "Minimum amount must not exceed maximum amount")
	}

	if s := optionalString(fields, "webhook_url", verr); s != nil {
		req.WebhookURL = *s
	}
	if s := optionalString(fields, "settlement_preference_override", verr); s != nil {
		req.SettlementPreferenceOverride = *s
	}
	if raw, ok := present(fields, "split_recipient"); ok {
		if !isKind(raw, '[') {
			verr.Add("split_recipient", "Expected array")
		} else {
			req.SplitRecipient = models.RawJSON(raw)
		}
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return models.CreatePaymentRequest{}, err
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), message(fe))
		}
	}

	if err := verr.OrNil(); err != nil {
		return models.CreatePaymentRequest{}, err
	}
	return req, nil
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "currency":
		return "Currency must be a 3-letter code"
	case "description":
		if fe.Tag() == "max" {
			return "Description too long"
		}
		return "Description is required"
	case "webhook_url":
		return "Invalid url"
	}
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	}
	return fmt.Sprintf("Failed %s validation", fe.Tag())
}

// present reports a field that exists and is not JSON null.
func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := fields[name]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil, false
	}
	return raw, true
}

func isKind(raw json.RawMessage, open byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == open
}

func optionalString(fields map[string]json.RawMessage, name string, verr *domain.ValidationError) *string {
	raw, ok := present(fields, name)
	if !ok {
		return nil
	}
	s, err := parseString(raw)
	if err != nil {
		verr.Add(name, "Expected string")
		return nil
	}
	return &s
}

func optionalNumber(fields map[string]json.RawMessage, name string, verr *domain.ValidationError) *decimal.Decimal {
	raw, ok := present(fields, name)
	if !ok {
		return nil
	}
	d, msg := parseAmount(raw)
	if msg != "" {
		verr.Add(name, msg)
		return nil
	}
	return &d
}

// parseAmount returns the amount in raw or the message describing why it is
// not acceptable. Bounds are checked on the coefficient and exponent so huge
// exponents are never expanded.
func parseAmount(raw json.RawMessage) (decimal.Decimal, string) {
	d, err := parseNumber(raw)
	switch {
	case errors.Is(err, errOutOfRange):
		return decimal.Zero, "Amount is out of range"
	case err != nil:
		return decimal.Zero, "Expected number"
	case !d.IsPositive():
		return decimal.Zero, "Amount must be positive"
	case d.Exponent() < -maxDecimalPlaces:
		return decimal.Zero, fmt.Sprintf("Amount must have at most %d decimal places", maxDecimalPlaces)
	case d.NumDigits()+int(d.Exponent()) > maxIntegerDigits:
		return decimal.Zero, fmt.Sprintf("Amount must have at most %d integer digits", maxIntegerDigits)
	}
	return d, ""
}

func parseString(raw json.RawMessage) (string, error) {
	var s string
	err := json.Unmarshal(raw, &s)
	return s, err
}

// parseNumber accepts JSON numbers and numeric strings.
func parseNumber(raw json.RawMessage) (decimal.Decimal, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return decimal.Zero, err
	}
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
	default:
		return decimal.Zero, fmt.Errorf("not a number: %s", raw)
	}
	if len(s) > maxNumberLength {
		return decimal.Zero, errOutOfRange
	}
	return decimal.NewFromString(s)
}

// parseBool accepts JSON booleans and their usual string spellings.
func parseBool(raw json.RawMessage) (bool, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, err
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return cast.ToBoolE(strings.TrimSpace(b))
	}
	return false, fmt.Errorf("not a boolean: %s", raw)
}
