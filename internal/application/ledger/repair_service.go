package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RepairService finds receipts without lines and regularizes them
type RepairService struct {
	receiptRepo    ledger.ReceiptRepository
	txScope        TransactionScope
	locker         ReceiptLocker
	eventPublisher shared.EventPublisher
	metrics        LedgerMetrics
	messages       *Messages
	lockTimeout    time.Duration
	logger         *zap.Logger
}

// NewRepairService creates a new RepairService
func NewRepairService(
	receiptRepo ledger.ReceiptRepository,
	txScope TransactionScope,
	locker ReceiptLocker,
	lockTimeout time.Duration,
	language string,
	logger *zap.Logger,
) *RepairService {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RepairService{
		receiptRepo: receiptRepo,
		txScope:     txScope,
		locker:      locker,
		metrics:     NopMetrics{},
		messages:    NewMessages(language),
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *RepairService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics sink
func (s *RepairService) SetMetrics(m LedgerMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// FindDefective lists receipts that have no lines
func (s *RepairService) FindDefective(ctx context.Context, filter ledger.ReceiptFilter) ([]ReceiptResponse, error) {
	receipts, err := s.receiptRepo.FindDefective(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find defective receipts: %w", err)
	}
	now := time.Now().UTC()
	out := make([]ReceiptResponse, len(receipts))
	for i, r := range receipts {
		out[i] = ToReceiptResponse(r, now)
	}
	return out, nil
}

// Repair adds a regularization line to one receipt. It reports false when
// the receipt already had lines.
func (s *RepairService) Repair(ctx context.Context, id uuid.UUID) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "repair", "repair_receipt")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrReceiptID, id.String())

	unlock, err := s.locker.Lock(ctx, ReceiptLockKey(id), s.lockTimeout)
	if err != nil {
		return false, lockError(err, ReceiptLockKey(id))
	}
	defer unlock()

	var repaired *ledger.Receipt
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReceiptRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load receipt: %w", err)
		}
		if r == nil {
			return ledger.NewNotFoundError("receipt", id)
		}
		changed, err := r.AddRegularizationLine()
		if err != nil || !changed {
			return err
		}
		if err := repos.ReceiptRepo().SaveWithLock(ctx, r); err != nil {
			return err
		}
		if err := repos.ReceiptRepo().AddLines(ctx, r.ID, r.Lines); err != nil {
			return fmt.Errorf("failed to store regularization line: %w", err)
		}
		repaired = r
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}
	if repaired == nil {
		return false, nil
	}

	s.logger.Info("Receipt regularized",
		zap.String("receipt_id", id.String()),
		zap.String("total", repaired.Total.StringFixed(2)),
	)
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, repaired.GetDomainEvents()...)
	}
	repaired.ClearDomainEvents()
	return true, nil
}

// RepairAll repairs every defective receipt matching filter. A failure on
// one receipt is recorded in the summary and does not stop the run.
func (s *RepairService) RepairAll(ctx context.Context, filter ledger.ReceiptFilter) (*RepairSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "repair", "repair_all")
	defer span.End()

	receipts, err := s.receiptRepo.FindDefective(ctx, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to find defective receipts: %w", err)
	}

	summary := &RepairSummary{}
	for _, r := range receipts {
		if err := ctx.Err(); err != nil {
			break
		}
		ok, err := s.Repair(ctx, r.ID)
		if err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, RepairFailure{ReceiptID: r.ID, Error: err.Error()})
			s.logger.Warn("Receipt repair failed", zap.String("receipt_id", r.ID.String()), zap.Error(err))
			continue
		}
		if ok {
			summary.Repaired++
		}
	}
	summary.Message = s.messages.RepairSummary(summary.Repaired, summary.Failed)

	telemetry.SetAttributes(span, "repaired", summary.Repaired, "failed", summary.Failed)
	s.metrics.RecordReceiptsRepaired(ctx, summary.Repaired, summary.Failed)
	s.logger.Info("Repair run finished",
		zap.Int("candidates", len(receipts)),
		zap.Int("repaired", summary.Repaired),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}
