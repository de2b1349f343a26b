package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditHandler writes every committed ledger event to the audit log and
// feeds the ledger metrics.
type AuditHandler struct {
	logger  *zap.Logger
	metrics LedgerMetrics
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(logger *zap.Logger, metrics LedgerMetrics) *AuditHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &AuditHandler{logger: logger.Named("audit"), metrics: metrics}
}

// EventTypes subscribes to all ledger events
func (h *AuditHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeReceiptIssued,
		ledger.EventTypeAllocationApplied,
		ledger.EventTypeAllocationRevoked,
		ledger.EventTypeReceiptPaidOff,
		ledger.EventTypeReceiptRepaired,
		ledger.EventTypeReceiptCancelled,
		ledger.EventTypeReceiptWaived,
		ledger.EventTypePaymentRegistered,
		ledger.EventTypePaymentVoided,
	}
}

// Handle logs the event and updates counters
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *ledger.AllocationAppliedEvent:
		fields = append(fields,
			zap.String("payment_id", e.PaymentID.String()),
			zap.String("amount", e.Amount.StringFixed(2)),
			zap.String("previous_balance", e.PreviousBalance.StringFixed(2)),
			zap.String("new_balance", e.NewBalance.StringFixed(2)),
			zap.String("new_status", string(e.NewStatus)),
		)
		h.metrics.RecordAllocationApplied(ctx, string(e.NewStatus), e.Amount)
	case *ledger.PaymentRegisteredEvent:
		fields = append(fields,
			zap.Int("method_id", e.MethodID),
			zap.String("amount", e.Amount.StringFixed(2)),
		)
		h.metrics.RecordPaymentRegistered(ctx, e.MethodID, e.Amount)
	case *ledger.ReceiptVoidedEvent:
		fields = append(fields, zap.String("reason", e.Reason))
	case *ledger.PaymentVoidedEvent:
		fields = append(fields, zap.String("status", string(e.Status)), zap.String("reason", e.Reason))
	case *ledger.ReceiptRepairedEvent:
		fields = append(fields, zap.String("line_id", e.LineID.String()))
	}

	h.logger.Info("Ledger event", fields...)
	return nil
}

var _ shared.EventHandler = (*AuditHandler)(nil)
