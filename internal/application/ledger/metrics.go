package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerMetrics receives the counters the ledger exposes.
// The telemetry package provides the OpenTelemetry implementation.
type LedgerMetrics interface {
	RecordAllocationApplied(ctx context.Context, newStatus string, amount decimal.Decimal)
	RecordPlanApplied(ctx context.Context, receipts int, duration time.Duration)
	RecordPlanFailed(ctx context.Context, code string, compensated bool)
	RecordConcurrencyConflict(ctx context.Context, source string)
	RecordLockWait(ctx context.Context, wait time.Duration)
	RecordReceiptsRepaired(ctx context.Context, repaired, failed int)
	RecordPaymentRegistered(ctx context.Context, methodID int, amount decimal.Decimal)
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) RecordAllocationApplied(context.Context, string, decimal.Decimal) {}
func (NopMetrics) RecordPlanApplied(context.Context, int, time.Duration) {}
func (NopMetrics) RecordPlanFailed(context.Context, string, bool) {}
func (NopMetrics) RecordConcurrencyConflict(context.Context, string) {}
func (NopMetrics) RecordLockWait(context.Context, time.Duration) {}
func (NopMetrics) RecordReceiptsRepaired(context.Context, int, int) {}
func (NopMetrics) RecordPaymentRegistered(context.Context, int, decimal.Decimal) {}

var _ LedgerMetrics = NopMetrics{}
