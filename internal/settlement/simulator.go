package settlement

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"paygate/config"
	"paygate/internal/domain"
	"paygate/internal/models"
)

const (
	DefaultDelay       = 2 * time.Second
	DefaultSuccessRate = 0.9
)

// Transitioner is the part of the payment store the simulator works through.
type Transitioner interface {
	Get(ctx context.Context, id string) (*models.Payment, error)
	Transition(ctx context.Context, id, status string) (*models.Payment, error)
}

// Simulator settles pending payments locally: after Delay each one becomes
// completed with probability SuccessRate, failed otherwise.
type Simulator struct {
	Store       Transitioner
	Scheduler   Scheduler
	Delay       time.Duration
	SuccessRate float64
	// Rand returns values in [0,1).
	Rand func() float64
	// OnSettled runs after every successful transition.
	OnSettled func(ctx context.Context, p *models.Payment)
}

func NewSimulator(store Transitioner, sched Scheduler, cfg config.SettlementConfig) *Simulator {
	sim := &Simulator{
		Store:       store,
		Scheduler:   sched,
		Delay:       cfg.Delay,
		SuccessRate: cfg.SuccessRate,
		Rand:        rand.Float64,
	}
	if sim.Delay <= 0 {
		sim.Delay = DefaultDelay
	}
	if sim.SuccessRate < 0 || sim.SuccessRate > 1 {
		sim.SuccessRate = DefaultSuccessRate
	}
	return sim
}

// Schedule queues settlement of id. It never settles synchronously.
func (s *Simulator) Schedule(id string) {
	s.Scheduler.Schedule(id, s.Delay, func() {
		s.Settle(context.Background(), id)
	})
}

// Cancel drops a queued settlement.
func (s *Simulator) Cancel(id string) bool {
	return s.Scheduler.Cancel(id)
}

// Settle resolves id now. Records that were deleted or already settled are skipped.
func (s *Simulator) Settle(ctx context.Context, id string) {
	cur, err := s.Store.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrPaymentNotFound):
		slog.Debug("[Settlement] payment gone before settlement", "id", id)
		return
	case err != nil:
		slog.Error("[Settlement] lookup failed", "id", id, "err", err)
		return
	case domain.LocalStates.IsTerminal(cur.Status):
		slog.Debug("[Settlement] payment already settled", "id", id, "status", cur.Status)
		return
	}

	// the record may still be deleted or settled between Get and Transition
	status := s.outcome()
	p, err := s.Store.Transition(ctx, id, status)
	switch {
	case errors.Is(err, domain.ErrPaymentNotFound):
		slog.Debug("[Settlement] payment gone before settlement", "id", id)
		return
	case errors.Is(err, domain.ErrInvalidTransition):
		slog.Debug("[Settlement] payment already settled", "id", id, "err", err)
		return
	case err != nil:
		slog.Error("[Settlement] transition failed", "id", id, "status", status, "err", err)
		return
	}
	slog.Info("[Settlement] payment settled", "id", id, "status", p.Status)
	if s.OnSettled != nil {
		s.OnSettled(ctx, p)
	}
}

func (s *Simulator) outcome() string {
	if s.Rand() < s.SuccessRate {
		return domain.StatusCompleted
	}
	return domain.StatusFailed
}
