package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// openStatuses are the receipt statuses that still carry a collectible balance
var openStatuses = []string{"PENDING", "PARTIAL", "OVERDUE"}

// GormPortfolioMetricsProvider implements PortfolioMetricsProvider using GORM.
// It queries the receipts table directly for aggregated metrics.
type GormPortfolioMetricsProvider struct {
	db *gorm.DB
}

// NewGormPortfolioMetricsProvider creates a new GormPortfolioMetricsProvider.
func NewGormPortfolioMetricsProvider(db *gorm.DB) *GormPortfolioMetricsProvider {
	return &GormPortfolioMetricsProvider{db: db}
}

// OutstandingBalance sums open balances, split on whether the due date passed.
func (p *GormPortfolioMetricsProvider) OutstandingBalance(ctx context.Context, asOf time.Time) (map[string]decimal.Decimal, error) {
	type result struct {
		State   string          `gorm:"column:state"`
		Balance decimal.Decimal `gorm:"column:balance"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("receipts").
		Select("CASE WHEN due_date < ? THEN 'overdue' ELSE 'current' END AS state, COALESCE(SUM(balance), 0) AS balance", asOf).
		Where("admin_flag = '' AND balance > 0 AND status IN ?", openStatuses).
		Group("state").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	m := map[string]decimal.Decimal{"current": decimal.Zero, "overdue": decimal.Zero}
	for _, r := range results {
		m[r.State] = r.Balance
	}
	return m, nil
}

// OverdueCount counts open receipts past their due date.
func (p *GormPortfolioMetricsProvider) OverdueCount(ctx context.Context, asOf time.Time) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("receipts").
		Where("admin_flag = '' AND balance > 0 AND status IN ?", openStatuses).
		Where("due_date < ?", asOf).
		Count(&count).Error
	return count, err
}
