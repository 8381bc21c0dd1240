package repository

import (
	"context"
	"errors"
	"fmt"

	"paygate/internal/domain"
	"paygate/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentRepository is the SQL-backed PaymentStore. Status changes are
// conditional updates on the current status, so a transition racing a delete
// or another transition resolves to exactly one outcome.
type PaymentRepository struct {
	db     *gorm.DB
	states domain.StateMachine
	now    Clock
}

func NewPaymentRepository(db *gorm.DB, clock Clock) *PaymentRepository {
	if clock == nil {
		clock = systemClock
	}
	return &PaymentRepository{db: db, states: domain.LocalStates, now: clock}
}

func (r *PaymentRepository) Create(ctx context.Context, req models.CreatePaymentRequest) (*models.Payment, error) {
	p := models.NewPayment(req)
	p.ID = uuid.NewString()
	p.Status = r.states.Initial()
	p.CreatedAt = stamp(r.now())
	p.UpdatedAt = p.CreatedAt
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &p, nil
}

func (r *PaymentRepository) Get(ctx context.Context, id string) (*models.Payment, error) {
	return r.find(r.db.WithContext(ctx), id)
}

func (r *PaymentRepository) List(ctx context.Context) ([]models.Payment, error) {
	var list []models.Payment
	if err := r.db.WithContext(ctx).Order("seq ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return list, nil
}

func (r *PaymentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Payment{})
	if res.Error != nil {
		return false, fmt.Errorf("delete payment %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) Transition(ctx context.Context, id, status string) (*models.Payment, error) {
	var out models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := r.find(tx, id)
		if err != nil {
			return err
		}
		if !r.states.CanTransition(cur.Status, status) {
			return &domain.TransitionError{ID: id, From: cur.Status, To: status}
		}
		updated := advance(r.now(), cur.UpdatedAt)
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", id, cur.Status).
			Updates(map[string]interface{}{"status": status, "updated_at": updated})
		if res.Error != nil {
			return fmt.Errorf("transition payment %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			// lost a race; report against whatever won
			fresh, err := r.find(tx, id)
			if err != nil {
				return err
			}
			return &domain.TransitionError{ID: id, From: fresh.Status, To: status}
		}
		cur.Status = status
		cur.UpdatedAt = updated
		out = *cur
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *PaymentRepository) find(db *gorm.DB, id string) (*models.Payment, error) {
	var p models.Payment
	err := db.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", id, err)
	}
	return &p, nil
}
