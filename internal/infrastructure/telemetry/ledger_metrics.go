package telemetry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Metric attribute keys used by the ledger metrics
var (
	AttrReceiptStatus    = attribute.Key("receipt_status")
	AttrErrorCode        = attribute.Key("error_code")
	AttrCompensated      = attribute.Key("compensated")
	AttrConflictSource   = attribute.Key("conflict_source")
	AttrRepairOutcome    = attribute.Key("outcome")
	AttrReceiptsInPlan   = attribute.Key("receipts")
	AttrOutstandingState = attribute.Key("state")
	AttrPaymentMethod    = attribute.Key("payment_method")
)

// PlanSizeBuckets are bucket boundaries for receipts per allocation plan.
var PlanSizeBuckets = []float64{1, 2, 3, 5, 10, 25, 50}

// LedgerMetrics records allocation, repair and payment activity.
type LedgerMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	allocationsTotal   *Counter
	allocatedCents     *Counter
	plansApplied       *Counter
	plansFailed        *Counter
	planDuration       *Histogram
	planSize           *Histogram
	conflictsTotal     *Counter
	lockWait           *Histogram
	receiptsRepaired   *Counter
	paymentsTotal      *Counter
	paymentsCents      *Counter
	outstandingBalance *FloatGauge
	overdueReceipts    *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	portfolioProvider PortfolioMetricsProvider
}

// PortfolioMetricsProvider reads the outstanding portfolio for the periodic
// gauges. It lets telemetry query ledger state without importing the domain.
type PortfolioMetricsProvider interface {
	// OutstandingBalance returns the open balance split into "current" and "overdue"
	OutstandingBalance(ctx context.Context, asOf time.Time) (map[string]decimal.Decimal, error)
	// OverdueCount returns how many open receipts are past their due date
	OverdueCount(ctx context.Context, asOf time.Time) (int64, error)
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	PortfolioProvider PortfolioMetricsProvider
}

// NewLedgerMetrics creates a new LedgerMetrics instance.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{
		meter:             cfg.Meter,
		logger:            logger,
		stopChan:          make(chan struct{}),
		portfolioProvider: cfg.PortfolioProvider,
	}

	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&lm.allocationsTotal, "ledger_allocations_total", "Allocations applied to receipts", "{allocations}"},
		{&lm.allocatedCents, "ledger_allocated_amount_total", "Amount allocated to receipts in cents", "{cents}"},
		{&lm.plansApplied, "ledger_plans_applied_total", "Allocation plans committed", "{plans}"},
		{&lm.plansFailed, "ledger_plans_failed_total", "Allocation plans rejected or rolled back", "{plans}"},
		{&lm.conflictsTotal, "ledger_concurrency_conflicts_total", "Concurrency conflicts detected while applying plans", "{conflicts}"},
		{&lm.receiptsRepaired, "ledger_receipts_repaired_total", "Receipts processed by the repair service", "{receipts}"},
		{&lm.paymentsTotal, "ledger_payments_total", "Payments registered", "{payments}"},
		{&lm.paymentsCents, "ledger_payments_amount_total", "Amount of registered payments in cents", "{cents}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	lm.planDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_plan_duration_seconds",
		Description: "Time to apply an allocation plan",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	lm.planSize, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_plan_receipts",
		Description: "Receipts per committed allocation plan",
		Unit:        "{receipts}",
		Boundaries:  PlanSizeBuckets,
	})
	if err != nil {
		return nil, err
	}
	lm.lockWait, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "ledger_lock_wait_seconds",
		Description: "Time spent waiting for receipt and payment locks",
		Unit:        "s",
		Boundaries:  SmallDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	lm.outstandingBalance, err = NewFloatGauge(cfg.Meter,
		"ledger_outstanding_balance", "Open receipt balance", "{currency}")
	if err != nil {
		return nil, err
	}
	lm.overdueReceipts, err = NewGauge(cfg.Meter,
		"ledger_overdue_receipts", "Open receipts past their due date", "{receipts}")
	if err != nil {
		return nil, err
	}

	return lm, nil
}

func cents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// RecordAllocationApplied counts one committed allocation
func (lm *LedgerMetrics) RecordAllocationApplied(ctx context.Context, newStatus string, amount decimal.Decimal) {
	lm.allocationsTotal.Inc(ctx, AttrReceiptStatus.String(newStatus))
	lm.allocatedCents.Add(ctx, cents(amount), AttrReceiptStatus.String(newStatus))
}

// RecordPlanApplied records a committed plan and how long it took
func (lm *LedgerMetrics) RecordPlanApplied(ctx context.Context, receipts int, d time.Duration) {
	lm.plansApplied.Inc(ctx)
	lm.planDuration.RecordDuration(ctx, d)
	lm.planSize.Record(ctx, float64(receipts))
}

// RecordPlanFailed records a plan that did not commit
func (lm *LedgerMetrics) RecordPlanFailed(ctx context.Context, code string, compensated bool) {
	lm.plansFailed.Inc(ctx,
		AttrErrorCode.String(code),
		AttrCompensated.Bool(compensated),
	)
}

// RecordConcurrencyConflict counts a conflict by where it was detected
func (lm *LedgerMetrics) RecordConcurrencyConflict(ctx context.Context, source string) {
	lm.conflictsTotal.Inc(ctx, AttrConflictSource.String(source))
}

// RecordLockWait records lock acquisition latency
func (lm *LedgerMetrics) RecordLockWait(ctx context.Context, d time.Duration) {
	lm.lockWait.RecordDuration(ctx, d)
}

// RecordReceiptsRepaired records the outcome of a repair run
func (lm *LedgerMetrics) RecordReceiptsRepaired(ctx context.Context, repaired, failed int) {
	if repaired > 0 {
		lm.receiptsRepaired.Add(ctx, int64(repaired), AttrRepairOutcome.String("repaired"))
	}
	if failed > 0 {
		lm.receiptsRepaired.Add(ctx, int64(failed), AttrRepairOutcome.String("failed"))
	}
}

// RecordPaymentRegistered counts a registered payment by method
func (lm *LedgerMetrics) RecordPaymentRegistered(ctx context.Context, methodID int, amount decimal.Decimal) {
	method := AttrPaymentMethod.String(strconv.Itoa(methodID))
	lm.paymentsTotal.Inc(ctx, method)
	lm.paymentsCents.Add(ctx, cents(amount), method)
}

// StartPeriodicCollection refreshes the portfolio gauges every interval
// (default 5 minutes). It is non-blocking; use Stop to end collection.
func (lm *LedgerMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	lm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go lm.runPeriodicCollection(ctx, interval)
	})
}

func (lm *LedgerMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lm.collectPortfolioMetrics(ctx)
	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("Stopping periodic ledger metrics collection")
			return
		case <-ctx.Done():
			lm.logger.Info("Context cancelled, stopping periodic ledger metrics collection")
			return
		case <-ticker.C:
			lm.collectPortfolioMetrics(ctx)
		}
	}
}

func (lm *LedgerMetrics) collectPortfolioMetrics(ctx context.Context) {
	if lm.portfolioProvider == nil {
		lm.logger.Debug("No portfolio provider configured, skipping portfolio metrics collection")
		return
	}
	now := time.Now().UTC()

	balances, err := lm.portfolioProvider.OutstandingBalance(ctx, now)
	if err != nil {
		lm.logger.Warn("Failed to read outstanding balance", zap.Error(err))
	} else {
		for state, amount := range balances {
			lm.outstandingBalance.Record(ctx, amount.InexactFloat64(), AttrOutstandingState.String(state))
		}
	}

	overdue, err := lm.portfolioProvider.OverdueCount(ctx, now)
	if err != nil {
		lm.logger.Warn("Failed to count overdue receipts", zap.Error(err))
	} else {
		lm.overdueReceipts.Record(ctx, overdue)
	}
}

// Stop stops the periodic collection.
func (lm *LedgerMetrics) Stop() {
	lm.stopOnce.Do(func() {
		close(lm.stopChan)
	})
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
