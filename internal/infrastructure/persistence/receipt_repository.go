package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

func (r *GormReceiptRepository) withLines(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_no ASC")
	})
}

// FindByID finds a receipt and its lines
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Receipt, error) {
	var model models.ReceiptModel
	if err := r.withLines(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs loads several receipts in one query. Missing ids are absent from the map.
func (r *GormReceiptRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*ledger.Receipt, error) {
	out := make(map[uuid.UUID]*ledger.Receipt, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.ReceiptModel
	if err := r.withLines(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

// FindAll lists receipts ordered by due date
func (r *GormReceiptRepository) FindAll(ctx context.Context, filter ledger.ReceiptFilter) ([]*ledger.Receipt, error) {
	return r.find(r.applyFilter(r.withLines(ctx), filter), filter.Limit)
}

// FindDefective lists receipts without lines
func (r *GormReceiptRepository) FindDefective(ctx context.Context, filter ledger.ReceiptFilter) ([]*ledger.Receipt, error) {
	query := r.applyFilter(r.withLines(ctx), filter).
		Where("NOT EXISTS (SELECT 1 FROM receipt_lines l WHERE l.receipt_id = receipts.id)")
	return r.find(query, filter.Limit)
}

// FindPastDue lists open receipts whose due date is before asOf
func (r *GormReceiptRepository) FindPastDue(ctx context.Context, asOf time.Time) ([]*ledger.Receipt, error) {
	query := r.withLines(ctx).
		Where("admin_flag = ''").
		Where("balance > 0").
		Where("due_date < ?", asOf.UTC())
	return r.find(query, 0)
}

func (r *GormReceiptRepository) find(query *gorm.DB, limit int) ([]*ledger.Receipt, error) {
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.ReceiptModel
	if err := query.Order("due_date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Receipt, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

func (r *GormReceiptRepository) applyFilter(query *gorm.DB, filter ledger.ReceiptFilter) *gorm.DB {
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.PeriodID != nil {
		query = query.Where("period_id = ?", *filter.PeriodID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		query = query.Where("status IN ?", statuses)
	}
	return query
}

// SumByPeriod aggregates billed, collected and open amounts of one period
func (r *GormReceiptRepository) SumByPeriod(ctx context.Context, periodID uuid.UUID) (*ledger.PeriodTotals, error) {
	var row struct {
		ReceiptCount int64
		Billed       decimal.Decimal
		Collected    decimal.Decimal
		Outstanding  decimal.Decimal
		WrittenOff   decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Select(`COUNT(*) AS receipt_count,
			COALESCE(SUM(total), 0) AS billed,
			COALESCE(SUM(total - balance), 0) AS collected,
			COALESCE(SUM(CASE WHEN admin_flag = '' THEN balance ELSE 0 END), 0) AS outstanding,
			COALESCE(SUM(CASE WHEN admin_flag <> '' THEN balance ELSE 0 END), 0) AS written_off`).
		Where("period_id = ?", periodID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &ledger.PeriodTotals{
		PeriodID:     periodID,
		ReceiptCount: row.ReceiptCount,
		Billed:       row.Billed.Round(valueobject.MoneyScale),
		Collected:    row.Collected.Round(valueobject.MoneyScale),
		Outstanding:  row.Outstanding.Round(valueobject.MoneyScale),
		WrittenOff:   row.WrittenOff.Round(valueobject.MoneyScale),
	}, nil
}

// Create inserts the receipt together with its lines
func (r *GormReceiptRepository) Create(ctx context.Context, receipt *ledger.Receipt) error {
	return r.db.WithContext(ctx).Create(models.ReceiptModelFromDomain(receipt)).Error
}

// SaveWithLock writes the mutable columns when the stored version still
// matches, then advances receipt.Version. Lines are never rewritten here.
func (r *GormReceiptRepository) SaveWithLock(ctx context.Context, receipt *ledger.Receipt) error {
	updatedAt := receipt.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	result := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("id = ? AND version = ?", receipt.ID, receipt.Version).
		Updates(map[string]any{
			"subtotal":     receipt.Subtotal,
			"discount":     receipt.Discount,
			"surcharge":    receipt.Surcharge,
			"total":        receipt.Total,
			"balance":      receipt.Balance,
			"status":       string(receipt.Status),
			"admin_flag":   string(receipt.AdminFlag),
			"admin_reason": receipt.AdminReason,
			"notes":        receipt.Notes,
			"version":      receipt.Version + 1,
			"updated_at":   updatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return r.missingOrStale(ctx, receipt.ID)
	}
	receipt.Version++
	return nil
}

func (r *GormReceiptRepository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ReceiptModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ledger.NewNotFoundError("receipt", id)
	}
	return ledger.NewConcurrencyConflict("receipt %s was modified by another transaction", id)
}

// AddLines inserts new lines for an existing receipt
func (r *GormReceiptRepository) AddLines(ctx context.Context, receiptID uuid.UUID, lines []ledger.ReceiptLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]models.ReceiptLineModel, len(lines))
	for i := range lines {
		rows[i].FromDomain(lines[i])
		rows[i].ReceiptID = receiptID
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// Delete removes a receipt and its lines
func (r *GormReceiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("receipt_id = ?", id).Delete(&models.ReceiptLineModel{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.ReceiptModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ledger.NewNotFoundError("receipt", id)
		}
		return nil
	})
}

var _ ledger.ReceiptRepository = (*GormReceiptRepository)(nil)
