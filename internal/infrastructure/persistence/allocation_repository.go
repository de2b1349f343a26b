package persistence

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// Create inserts an allocation
func (r *GormAllocationRepository) Create(ctx context.Context, allocation *ledger.Allocation) error {
	return r.db.WithContext(ctx).Create(models.AllocationModelFromDomain(allocation)).Error
}

// FindByPayment lists the allocations of a payment in application order
func (r *GormAllocationRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]*ledger.Allocation, error) {
	return r.findWhere(ctx, "payment_id = ?", paymentID)
}

// FindByReceipt lists the allocations of a receipt in application order
func (r *GormAllocationRepository) FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]*ledger.Allocation, error) {
	return r.findWhere(ctx, "receipt_id = ?", receiptID)
}

func (r *GormAllocationRepository) findWhere(ctx context.Context, cond string, id uuid.UUID) ([]*ledger.Allocation, error) {
	var rows []models.AllocationModel
	if err := r.db.WithContext(ctx).Where(cond, id).Order("applied_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Allocation, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// SumByPayment totals what a payment has covered so far
func (r *GormAllocationRepository) SumByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	return r.sumWhere(ctx, "payment_id = ?", paymentID)
}

// SumByReceipt totals what has been paid against a receipt
func (r *GormAllocationRepository) SumByReceipt(ctx context.Context, receiptID uuid.UUID) (decimal.Decimal, error) {
	return r.sumWhere(ctx, "receipt_id = ?", receiptID)
}

func (r *GormAllocationRepository) sumWhere(ctx context.Context, cond string, id uuid.UUID) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where(cond, id).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total.Round(valueobject.MoneyScale), nil
}

// CountByReceipt counts allocations against a receipt
func (r *GormAllocationRepository) CountByReceipt(ctx context.Context, receiptID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.AllocationModel{}).Where("receipt_id = ?", receiptID).Count(&count).Error
	return count, err
}

// Delete removes an allocation that belongs to a plan being compensated
func (r *GormAllocationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.AllocationModel{}).Error
}

var _ ledger.AllocationRepository = (*GormAllocationRepository)(nil)
