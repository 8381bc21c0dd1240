package repository

import (
	"context"
	"sync"

	"paygate/internal/domain"
	"paygate/internal/models"

	"github.com/google/uuid"
)

// MemoryPaymentStore keeps records in process memory. Writers are serialized
// under one lock; readers share it and receive copies.
type MemoryPaymentStore struct {
	mu      sync.RWMutex
	records map[string]*models.Payment
	order   []string
	seq     uint64
	states  domain.StateMachine
	now     Clock
}

func NewMemoryPaymentStore(clock Clock) *MemoryPaymentStore {
	if clock == nil {
		clock = systemClock
	}
	return &MemoryPaymentStore{
		records: make(map[string]*models.Payment),
		states:  domain.LocalStates,
		now:     clock,
	}
}

func (s *MemoryPaymentStore) Create(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	p := models.NewPayment(req)
	p.Status = s.states.Initial()

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		p.ID = uuid.NewString()
		if _, taken := s.records[p.ID]; !taken {
			break
		}
	}
	s.seq++
	p.Seq = s.seq
	p.CreatedAt = stamp(s.now())
	p.UpdatedAt = p.CreatedAt
	s.records[p.ID] = &p
	s.order = append(s.order, p.ID)

	out := p.Clone()
	return &out, nil
}

func (s *MemoryPaymentStore) Get(ctx context.Context, id string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.records[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	out := p.Clone()
	return &out, nil
}

func (s *MemoryPaymentStore) List(ctx context.Context) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Payment, 0, len(s.records))
	for _, id := range s.order {
		if p, ok := s.records[id]; ok {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *MemoryPaymentStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryPaymentStore) Transition(ctx context.Context, id, status string) (*models.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.records[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	if !s.states.CanTransition(p.Status, status) {
		return nil, &domain.TransitionError{ID: id, From: p.Status, To: status}
	}
	p.Status = status
	p.UpdatedAt = advance(s.now(), p.UpdatedAt)
	out := p.Clone()
	return &out, nil
}
