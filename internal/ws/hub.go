package ws

import (
	"log/slog"
	"sync"
	"time"

	"paygate/internal/models"

	"github.com/bytedance/sonic"
)

// Event is one message on the payment stream.
type Event struct {
	Type      string          `json:"type"`
	Payment   *models.Payment `json:"payment,omitempty"`
	PaymentID string          `json:"payment_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Client is one connected stream subscriber. An empty PaymentID receives every event.
type Client struct {
	Subject   string
	PaymentID string
	Send      chan []byte
	hub       *PaymentHub
	mu        sync.Mutex
	closed    bool
}

func NewClient(subject, paymentID string) *Client {
	return &Client{Subject: subject, PaymentID: paymentID, Send: make(chan []byte, 256)}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.hub != nil {
		c.hub.unregister(c)
	}
	close(c.Send)
}

func (c *Client) wants(paymentID string) bool {
	return c.PaymentID == "" || c.PaymentID == paymentID
}

// deliver drops the message when the client is closed or its buffer is full.
func (c *Client) deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// PaymentHub fans payment events out to connected clients.
type PaymentHub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	now     func() time.Time
}

func NewPaymentHub() *PaymentHub {
	return &PaymentHub{
		clients: make(map[*Client]struct{}),
		now:     time.Now,
	}
}

func (h *PaymentHub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.hub = h
	h.clients[c] = struct{}{}
}

func (h *PaymentHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Publish sends eventType for p to every interested client.
func (h *PaymentHub) Publish(eventType string, p *models.Payment) {
	if p == nil {
		return
	}
	h.broadcast(p.ID, Event{Type: eventType, Payment: p, Timestamp: h.now().UTC()})
}

// PublishDeleted announces the removal of a payment.
func (h *PaymentHub) PublishDeleted(eventType, id string) {
	h.broadcast(id, Event{Type: eventType, PaymentID: id, Timestamp: h.now().UTC()})
}

func (h *PaymentHub) broadcast(paymentID string, ev Event) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		slog.Error("[WS] encode event", "type", ev.Type, "err", err)
		return
	}
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(paymentID) {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range clients {
		if !c.deliver(data) {
			slog.Debug("[WS] dropped event for slow client", "subject", c.Subject, "type", ev.Type)
		}
	}
}

func (h *PaymentHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
