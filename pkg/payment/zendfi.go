package payment

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/oauth2"
)

const DefaultZendfiURL = "https://api.zendfi.tech"

// ZendfiProvider talks to the Zendfi payments API. Each call is a single
// attempt; failures are returned to the caller as-is.
type ZendfiProvider struct {
	BaseURL string
	client  *http.Client
}

// NewZendfiProvider authenticates every request with apiKey as a bearer token.
// A zero timeout keeps the transport default.
func NewZendfiProvider(baseURL, apiKey string, timeout time.Duration) *ZendfiProvider {
	if baseURL == "" {
		baseURL = DefaultZendfiURL
	}
	return &ZendfiProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey}),
				Base:   http.DefaultTransport,
			},
			Timeout: timeout,
		},
	}
}

func (p *ZendfiProvider) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	return p.do(ctx, http.MethodPost, "/api/v1/payments", req)
}

func (p *ZendfiProvider) GetPayment(ctx context.Context, id string) (*Payment, error) {
	return p.do(ctx, http.MethodGet, "/api/v1/payments/"+url.PathEscape(id), nil)
}

func (p *ZendfiProvider) do(ctx context.Context, method, path string, in interface{}) (*Payment, error) {
	var body io.Reader
	if in != nil {
		b, err := sonic.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("zendfi: encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("zendfi %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("zendfi %s %s: read body: %w", method, path, err)
	}
	slog.Debug("[Zendfi] response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	var out Payment
	if err := sonic.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("zendfi: decode response: %w", err)
	}
	return &out, nil
}
