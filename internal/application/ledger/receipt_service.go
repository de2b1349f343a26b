package ledger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceiptPrinter renders a receipt as a printable document
type ReceiptPrinter interface {
	PrintReceipt(ctx context.Context, receipt ReceiptResponse) ([]byte, error)
}

// PrintedReceipt is a rendered receipt ready to be served
type PrintedReceipt struct {
	FileName    string
	ContentType string
	Body        []byte
}

// ReceiptService issues receipts and applies the administrative overrides
type ReceiptService struct {
	receiptRepo    ledger.ReceiptRepository
	allocationRepo ledger.AllocationRepository
	txScope        TransactionScope
	locker         ReceiptLocker
	eventPublisher shared.EventPublisher
	printer        ReceiptPrinter
	lockTimeout    time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(
	receiptRepo ledger.ReceiptRepository,
	allocationRepo ledger.AllocationRepository,
	txScope TransactionScope,
	locker ReceiptLocker,
	lockTimeout time.Duration,
	logger *zap.Logger,
) *ReceiptService {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		receiptRepo:    receiptRepo,
		allocationRepo: allocationRepo,
		txScope:        txScope,
		locker:         locker,
		lockTimeout:    lockTimeout,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReceiptService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetPrinter enables Print
func (s *ReceiptService) SetPrinter(printer ReceiptPrinter) {
	s.printer = printer
}

// SetClock overrides the time source
func (s *ReceiptService) SetClock(now func() time.Time) {
	s.now = now
}

// Issue creates every receipt of the request in one unit of work
func (s *ReceiptService) Issue(ctx context.Context, req IssueReceiptsRequest) ([]ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "issue")
	defer span.End()

	if len(req.Receipts) == 0 {
		return nil, ledger.NewValidationError("no receipts to issue")
	}

	now := s.now()
	receipts := make([]*ledger.Receipt, 0, len(req.Receipts))
	for i, draft := range req.Receipts {
		r, err := ledger.IssueReceipt(draft, now)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("receipt %d: %w", i+1, err)
		}
		receipts = append(receipts, r)
	}

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, r := range receipts {
			if err := repos.ReceiptRepo().Create(ctx, r); err != nil {
				return fmt.Errorf("failed to store receipt: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Receipts issued", zap.Int("count", len(receipts)))
	out := make([]ReceiptResponse, len(receipts))
	for i, r := range receipts {
		out[i] = ToReceiptResponse(r, now)
		s.publishDomainEvents(ctx, r)
	}
	return out, nil
}

// List returns receipts matching filter with lines and read-time status.
// Statuses are matched against the status derived now, not the stored
// column, which lags behind due dates until the overdue refresh runs.
func (s *ReceiptService) List(ctx context.Context, filter ledger.ReceiptFilter) ([]ReceiptResponse, error) {
	query := filter
	if len(filter.Statuses) > 0 {
		query.Statuses = storedStatusesFor(filter.Statuses)
		query.Limit = 0
	}
	receipts, err := s.receiptRepo.FindAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	now := s.now()
	out := make([]ReceiptResponse, 0, len(receipts))
	for _, r := range receipts {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, r.StatusAt(now)) {
			continue
		}
		out = append(out, ToReceiptResponse(r, now))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// storedStatusesFor widens wanted to every stored status that can derive
// into one of them. Open receipts move between Pending, Partial and Overdue
// with the clock alone; Paid, Cancelled and Waived never change on read.
func storedStatusesFor(wanted []ledger.ReceiptStatus) []ledger.ReceiptStatus {
	stored := slices.Clone(wanted)
	if slices.ContainsFunc(wanted, ledger.ReceiptStatus.IsOutstanding) {
		stored = append(stored, ledger.OutstandingStatuses()...)
	}
	slices.Sort(stored)
	return slices.Compact(stored)
}

// GetByID returns one receipt with its allocation history
func (s *ReceiptService) GetByID(ctx context.Context, id uuid.UUID) (*ReceiptResponse, error) {
	r, err := s.receiptRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	if r == nil {
		return nil, ledger.NewNotFoundError("receipt", id)
	}
	allocs, err := s.allocationRepo.FindByReceipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}
	resp := ToReceiptResponse(r, s.now())
	resp.Allocations = ToAllocationResponses(allocs)
	return &resp, nil
}

// Print renders a receipt with its allocation history as a PDF
func (s *ReceiptService) Print(ctx context.Context, id uuid.UUID) (*PrintedReceipt, error) {
	if s.printer == nil {
		return nil, ledger.NewInvalidStateError("receipt printing is not configured")
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "print")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrReceiptID, id.String())

	receipt, err := s.GetByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	body, err := s.printer.PrintReceipt(ctx, *receipt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to print receipt %s: %w", id, err)
	}

	name := id.String()
	if receipt.Folio != nil {
		name = *receipt.Folio
	}
	return &PrintedReceipt{
		FileName:    "recibo-" + name + ".pdf",
		ContentType: "application/pdf",
		Body:        body,
	}, nil
}

// Cancel closes a receipt administratively
func (s *ReceiptService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*ReceiptResponse, error) {
	return s.mutate(ctx, "cancel", id, func(r *ledger.Receipt) error { return r.Cancel(reason) })
}

// Waive forgives a receipt's remaining balance
func (s *ReceiptService) Waive(ctx context.Context, id uuid.UUID, reason string) (*ReceiptResponse, error) {
	return s.mutate(ctx, "waive", id, func(r *ledger.Receipt) error { return r.Waive(reason) })
}

func (s *ReceiptService) mutate(ctx context.Context, op string, id uuid.UUID, fn func(*ledger.Receipt) error) (*ReceiptResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", op)
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrReceiptID, id.String())

	unlock, err := s.locker.Lock(ctx, ReceiptLockKey(id), s.lockTimeout)
	if err != nil {
		return nil, lockError(err, ReceiptLockKey(id))
	}
	defer unlock()

	r, err := s.receiptRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt: %w", err)
	}
	if r == nil {
		return nil, ledger.NewNotFoundError("receipt", id)
	}
	if err := fn(r); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.receiptRepo.SaveWithLock(ctx, r); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Receipt closed",
		zap.String("receipt_id", id.String()),
		zap.String("status", string(r.Status)),
		zap.String("reason", r.AdminReason),
	)
	s.publishDomainEvents(ctx, r)
	resp := ToReceiptResponse(r, s.now())
	return &resp, nil
}

// Delete removes a receipt that never received an allocation
func (s *ReceiptService) Delete(ctx context.Context, id uuid.UUID) error {
	unlock, err := s.locker.Lock(ctx, ReceiptLockKey(id), s.lockTimeout)
	if err != nil {
		return lockError(err, ReceiptLockKey(id))
	}
	defer unlock()

	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.ReceiptRepo().FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load receipt: %w", err)
		}
		if r == nil {
			return ledger.NewNotFoundError("receipt", id)
		}
		count, err := repos.AllocationRepo().CountByReceipt(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count allocations: %w", err)
		}
		if count > 0 || !r.Balance.Equal(r.Total) {
			return ledger.NewInvalidStateError("receipt %s has allocations and cannot be deleted", id)
		}
		return repos.ReceiptRepo().Delete(ctx, id)
	})
}

// RefreshOverdue persists the Overdue status of receipts that crossed their
// due date. Reads derive status on their own; this keeps status-filtered
// queries accurate. It returns the number of receipts updated.
func (s *ReceiptService) RefreshOverdue(ctx context.Context, asOf time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "receipt", "refresh_overdue")
	defer span.End()

	receipts, err := s.receiptRepo.FindPastDue(ctx, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("failed to find past due receipts: %w", err)
	}

	updated := 0
	for _, candidate := range receipts {
		if candidate.Status == ledger.ReceiptStatusOverdue {
			continue
		}
		changed, err := s.refreshOne(ctx, candidate.ID, asOf)
		if err != nil {
			s.logger.Warn("Failed to refresh receipt status",
				zap.String("receipt_id", candidate.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if changed {
			updated++
		}
	}
	telemetry.SetAttribute(span, "updated", updated)
	return updated, nil
}

func (s *ReceiptService) refreshOne(ctx context.Context, id uuid.UUID, asOf time.Time) (bool, error) {
	unlock, err := s.locker.Lock(ctx, ReceiptLockKey(id), s.lockTimeout)
	if err != nil {
		return false, lockError(err, ReceiptLockKey(id))
	}
	defer unlock()

	r, err := s.receiptRepo.FindByID(ctx, id)
	if err != nil || r == nil {
		return false, err
	}
	if !r.RefreshStatus(asOf) {
		return false, nil
	}
	if err := s.receiptRepo.SaveWithLock(ctx, r); err != nil {
		return false, err
	}
	return true, nil
}

func (s *ReceiptService) publishDomainEvents(ctx context.Context, r *ledger.Receipt) {
	events := r.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, events...)
	}
	r.ClearDomainEvents()
}
