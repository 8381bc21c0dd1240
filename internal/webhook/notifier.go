// Package webhook delivers signed payment events to merchant endpoints.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"paygate/config"
	"paygate/internal/models"

	"github.com/bytedance/sonic"
)

const SignatureHeader = "X-Webhook-Signature"

// ErrBlockedAddress is returned when a webhook resolves to a non-public address.
var ErrBlockedAddress = errors.New("webhook address is not public")

// Event is the body POSTed to a payment's webhook_url.
type Event struct {
	Event     string          `json:"event"`
	Data      *models.Payment `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Notifier POSTs events once, without retries. With an empty secret the
// signature header is omitted.
type Notifier struct {
	secret string
	client *http.Client
	now    func() time.Time
}

// NewNotifier builds a notifier. Unless cfg.AllowPrivate is set, connections
// are refused to any resolved address that is not public.
func NewNotifier(cfg config.WebhookConfig) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}
	if !cfg.AllowPrivate {
		dialer.Control = publicOnly
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: timeout,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Notifier{
		secret: cfg.Secret,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			// redirects are not followed
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		now: time.Now,
	}
}

func publicOnly(network, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip := net.ParseIP(host)
	if ip == nil || !IsPublicIP(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

// IsPublicIP reports whether ip is routable on the public internet.
func IsPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast() || sharedAddressSpace.Contains(ip))
}

// 100.64.0.0/10, carrier-grade NAT
var sharedAddressSpace = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// Notify delivers event for p to p.WebhookURL. Payments without a webhook are skipped.
func (n *Notifier) Notify(ctx context.Context, event string, p *models.Payment) error {
	if p == nil || p.WebhookURL == "" {
		return nil
	}
	body, err := sonic.Marshal(Event{Event: event, Data: p, Timestamp: n.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode webhook: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("[Webhook] delivery failed", "id", p.ID, "url", p.WebhookURL, "err", err)
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("[Webhook] endpoint rejected event", "id", p.ID, "url", p.WebhookURL, "status", resp.StatusCode)
		return fmt.Errorf("webhook endpoint responded %d", resp.StatusCode)
	}
	slog.Info("[Webhook] delivered", "id", p.ID, "event", event, "status", resp.StatusCode)
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a signature produced by Sign in constant time.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(Sign(secret, body)))
}
