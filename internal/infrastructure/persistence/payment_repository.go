package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by id
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByDateRange lists payments with paid_at in [start, end)
func (r *GormPaymentRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*ledger.Payment, error) {
	var rows []models.PaymentModel
	err := r.db.WithContext(ctx).
		Where("paid_at >= ? AND paid_at < ?", start.UTC(), end.UTC()).
		Order("paid_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*ledger.Payment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// Create inserts a payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *ledger.Payment) error {
	return r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error
}

// SaveWithLock persists a status change when the stored version matches
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *ledger.Payment) error {
	updatedAt := payment.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version).
		Updates(map[string]any{
			"status":      string(payment.Status),
			"void_reason": payment.VoidReason,
			"voided_at":   payment.VoidedAt,
			"notes":       payment.Notes,
			"version":     payment.Version + 1,
			"updated_at":  updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("id = ?", payment.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ledger.NewNotFoundError("payment", payment.ID)
		}
		return ledger.NewConcurrencyConflict("payment %s was modified by another transaction", payment.ID)
	}
	payment.Version++
	return nil
}

var _ ledger.PaymentRepository = (*GormPaymentRepository)(nil)
