package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultLockTimeout bounds how long Apply waits for a receipt lock
const DefaultLockTimeout = 3 * time.Second

// EngineConfig holds the tunables of the AllocationEngine
type EngineConfig struct {
	// Currency is the ledger currency; payments in any other are rejected
	Currency    valueobject.Currency
	LockTimeout time.Duration
	Language    string
}

// AllocationEngine validates allocation plans and applies them atomically
type AllocationEngine struct {
	receiptRepo    ledger.ReceiptRepository
	paymentRepo    ledger.PaymentRepository
	allocationRepo ledger.AllocationRepository
	txScope        TransactionScope
	locker         ReceiptLocker
	eventPublisher shared.EventPublisher
	metrics        LedgerMetrics
	messages       *Messages
	logger         *zap.Logger
	cfg            EngineConfig
	now            func() time.Time
}

// NewAllocationEngine creates a new AllocationEngine
func NewAllocationEngine(
	receiptRepo ledger.ReceiptRepository,
	paymentRepo ledger.PaymentRepository,
	allocationRepo ledger.AllocationRepository,
	txScope TransactionScope,
	locker ReceiptLocker,
	cfg EngineConfig,
	logger *zap.Logger,
) *AllocationEngine {
	if cfg.Currency == "" {
		cfg.Currency = valueobject.DefaultCurrency
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationEngine{
		receiptRepo:    receiptRepo,
		paymentRepo:    paymentRepo,
		allocationRepo: allocationRepo,
		txScope:        txScope,
		locker:         locker,
		metrics:        NopMetrics{},
		messages:       NewMessages(cfg.Language),
		logger:         logger,
		cfg:            cfg,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (e *AllocationEngine) SetEventPublisher(publisher shared.EventPublisher) {
	e.eventPublisher = publisher
}

// SetMetrics sets the metrics sink
func (e *AllocationEngine) SetMetrics(m LedgerMetrics) {
	if m != nil {
		e.metrics = m
	}
}

// SetClock overrides the time source
func (e *AllocationEngine) SetClock(now func() time.Time) {
	e.now = now
}

// Currency returns the ledger currency
func (e *AllocationEngine) Currency() valueobject.Currency {
	return e.cfg.Currency
}

// Validate checks a plan for payment against balances read now and returns
// the immutable plan to apply. Nothing is written.
func (e *AllocationEngine) Validate(ctx context.Context, payment *ledger.Payment, entries []ledger.PlanEntry) (*ledger.ValidatedPlan, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "validate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrPlanSize, len(entries),
	)

	plan, err := e.validate(ctx, e.receiptRepo, e.allocationRepo, payment, entries)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return plan, nil
}

// ValidateByID is Validate for a payment that is already recorded
func (e *AllocationEngine) ValidateByID(ctx context.Context, paymentID uuid.UUID, entries []ledger.PlanEntry) (*ledger.ValidatedPlan, error) {
	payment, err := e.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, ledger.NewNotFoundError("payment", paymentID)
	}
	return e.Validate(ctx, payment, entries)
}

func (e *AllocationEngine) validate(
	ctx context.Context,
	receiptRepo ledger.ReceiptRepository,
	allocationRepo ledger.AllocationRepository,
	payment *ledger.Payment,
	entries []ledger.PlanEntry,
) (*ledger.ValidatedPlan, error) {
	if payment.Currency != e.cfg.Currency {
		return nil, ledger.NewValidationError("payment currency %s differs from ledger currency %s", payment.Currency, e.cfg.Currency)
	}

	allocated, err := allocationRepo.SumByPayment(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payment allocations: %w", err)
	}
	remainder := payment.Amount.Sub(allocated)

	ids := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.ReceiptID)
	}
	receipts, err := receiptRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}

	return ledger.ValidatePlan(payment, remainder, entries, receipts, e.now())
}

// Apply commits a validated plan. Receipts are locked and mutated in
// ascending id order inside one unit of work; either every allocation
// commits or none does. Results are returned in the plan's submission order.
// Every receipt lock taken is held until the unit of work commits or rolls
// back, never released between receipts.
func (e *AllocationEngine) Apply(ctx context.Context, plan *ledger.ValidatedPlan, appliedBy *uuid.UUID) (*ApplyResult, error) {
	return e.apply(ctx, plan, nil, appliedBy)
}

// RegisterAndApply records payment and applies plan in the same unit of work
func (e *AllocationEngine) RegisterAndApply(ctx context.Context, payment *ledger.Payment, plan *ledger.ValidatedPlan, appliedBy *uuid.UUID) (*ApplyResult, error) {
	if plan.PaymentID() != payment.ID {
		return nil, ledger.NewValidationError("plan was validated for payment %s", plan.PaymentID())
	}
	return e.apply(ctx, plan, payment, appliedBy)
}

// appliedStep is one entry of the compensation log
type appliedStep struct {
	receipt      *ledger.Receipt
	allocation   *ledger.Allocation
	transition   ledger.ReceiptTransition
	saved        bool
	allocCreated bool
}

func (e *AllocationEngine) apply(ctx context.Context, plan *ledger.ValidatedPlan, newPayment *ledger.Payment, appliedBy *uuid.UUID) (*ApplyResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, plan.PaymentID().String(),
		telemetry.SpanAttrPlanSize, plan.Len(),
		telemetry.SpanAttrAmount, plan.Total().String(),
	)

	start := time.Now()
	var (
		steps     []*appliedStep
		payment   *ledger.Payment
		remainder decimal.Decimal
		locks     heldLocks
		applyErr  error
	)
	defer locks.releaseAll()

	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(telemetry.OperationApplyPlan, nil), func(c context.Context) {
		unlock, err := e.lock(c, PaymentLockKey(plan.PaymentID()))
		if err != nil {
			applyErr = err
			return
		}
		locks.add(unlock)

		applyErr = e.txScope.Execute(c, func(repos TransactionalRepositories) error {
			var err error
			steps = steps[:0]
			payment, remainder, err = e.preparePayment(c, repos, plan, newPayment)
			if err != nil {
				return err
			}

			for _, entry := range plan.LockOrder() {
				if err := c.Err(); err != nil {
					return e.failInScope(c, repos, plan, steps, fmt.Errorf("allocation plan interrupted: %w", err))
				}
				step, err := e.applyEntry(context.WithoutCancel(c), repos, &locks, payment.ID, entry, appliedBy)
				if step != nil {
					steps = append(steps, step)
				}
				if err != nil {
					return e.failInScope(c, repos, plan, steps, err)
				}
			}

			if newPayment == nil {
				// bump the payment version so a concurrent distribution from
				// another process fails its own optimistic check
				if err := repos.PaymentRepo().SaveWithLock(context.WithoutCancel(c), payment); err != nil {
					return e.failInScope(c, repos, plan, steps, err)
				}
			}
			return nil
		})
	})

	if applyErr != nil {
		telemetry.RecordError(span, applyErr)
		e.recordFailure(ctx, plan, applyErr)
		return nil, applyErr
	}

	result := e.buildResult(plan, remainder, steps)
	e.metrics.RecordPlanApplied(ctx, plan.Len(), time.Since(start))
	e.logger.Info("Allocation plan applied",
		zap.String("payment_id", plan.PaymentID().String()),
		zap.Int("receipts", plan.Len()),
		zap.String("amount", plan.Total().StringFixed(2)),
		zap.Duration("duration", time.Since(start)),
	)

	if newPayment != nil {
		e.publishEvents(ctx, newPayment)
	}
	for _, step := range steps {
		e.publishEvents(ctx, step.receipt)
	}
	return result, nil
}

// preparePayment re-reads the payment (or records a new one) and re-checks
// that the plan still accounts for exactly its unallocated amount.
func (e *AllocationEngine) preparePayment(ctx context.Context, repos TransactionalRepositories, plan *ledger.ValidatedPlan, newPayment *ledger.Payment) (*ledger.Payment, decimal.Decimal, error) {
	if newPayment != nil {
		if plan.Total().Sub(newPayment.Amount).Abs().GreaterThan(ledger.AmountEpsilon) {
			return nil, decimal.Zero, ledger.NewValidationError("plan total %s does not match payment amount %s",
				plan.Total().StringFixed(2), newPayment.Amount.StringFixed(2))
		}
		if err := repos.PaymentRepo().Create(ctx, newPayment); err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to record payment: %w", err)
		}
		return newPayment, newPayment.Amount, nil
	}

	payment, err := repos.PaymentRepo().FindByID(ctx, plan.PaymentID())
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, decimal.Zero, ledger.NewNotFoundError("payment", plan.PaymentID())
	}
	if !payment.CanAllocate() {
		return nil, decimal.Zero, ledger.NewInvalidStateError("payment %s is %s and cannot be allocated", payment.ID, payment.Status)
	}
	allocated, err := repos.AllocationRepo().SumByPayment(ctx, payment.ID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to sum payment allocations: %w", err)
	}
	remainder := payment.Amount.Sub(allocated)
	if plan.Total().Sub(remainder).Abs().GreaterThan(ledger.AmountEpsilon) {
		e.metrics.RecordConcurrencyConflict(ctx, "payment_remainder")
		return nil, decimal.Zero, ledger.NewConcurrencyConflict("payment %s was distributed since validation; %s remain",
			payment.ID, remainder.StringFixed(2))
	}
	return payment, remainder, nil
}

// applyEntry runs the per-receipt steps: lock, re-read, re-check, decrement,
// save with version check, append allocation. The returned step records how
// far it got so a failure can be compensated.
func (e *AllocationEngine) applyEntry(
	ctx context.Context,
	repos TransactionalRepositories,
	locks *heldLocks,
	paymentID uuid.UUID,
	entry ledger.ValidatedEntry,
	appliedBy *uuid.UUID,
) (*appliedStep, error) {
	unlock, err := e.lock(ctx, ReceiptLockKey(entry.ReceiptID))
	if err != nil {
		return nil, err
	}
	locks.add(unlock)

	receipt, err := repos.ReceiptRepo().FindByID(ctx, entry.ReceiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt %s: %w", entry.ReceiptID, err)
	}
	if receipt == nil {
		return nil, ledger.NewNotFoundError("receipt", entry.ReceiptID)
	}
	now := e.now()
	if receipt.IsTerminal() {
		return nil, ledger.NewTerminalStateConflict(receipt.ID, receipt.StatusAt(now))
	}
	if entry.Amount.GreaterThan(receipt.Balance) {
		e.metrics.RecordConcurrencyConflict(ctx, "receipt_balance")
		return nil, ledger.NewConcurrencyConflict("balance of receipt %s changed to %s since validation",
			receipt.ID, receipt.Balance.StringFixed(2))
	}

	alloc, transition, err := receipt.ApplyAllocation(paymentID, entry.Amount, appliedBy, now)
	if err != nil {
		return nil, err
	}
	step := &appliedStep{receipt: receipt, allocation: alloc, transition: transition}

	if err := repos.ReceiptRepo().SaveWithLock(ctx, receipt); err != nil {
		if ledger.IsConcurrencyConflict(err) {
			e.metrics.RecordConcurrencyConflict(ctx, "receipt_version")
		}
		return step, err
	}
	step.saved = true

	if err := repos.AllocationRepo().Create(ctx, alloc); err != nil {
		return step, fmt.Errorf("failed to record allocation on receipt %s: %w", receipt.ID, err)
	}
	step.allocCreated = true
	return step, nil
}

func (e *AllocationEngine) lock(ctx context.Context, key string) (func(), error) {
	start := time.Now()
	unlock, err := e.locker.Lock(ctx, key, e.cfg.LockTimeout)
	e.metrics.RecordLockWait(ctx, time.Since(start))
	if err != nil {
		if errors.Is(err, ErrLockTimeout) {
			e.metrics.RecordConcurrencyConflict(ctx, "lock_timeout")
		}
		return nil, lockError(err, key)
	}
	return unlock, nil
}

// failInScope is called with the first error of a plan. Atomic scopes roll
// back on their own; otherwise the applied steps are undone in reverse.
func (e *AllocationEngine) failInScope(ctx context.Context, repos TransactionalRepositories, plan *ledger.ValidatedPlan, steps []*appliedStep, cause error) error {
	if e.txScope.Atomic() || len(steps) == 0 {
		return cause
	}

	ctx = context.WithoutCancel(ctx)
	byReceipt := make(map[uuid.UUID]*appliedStep, len(steps))
	compensated := make(map[uuid.UUID]error, len(steps))
	for i := len(steps) - 1; i >= 0; i-- {
		byReceipt[steps[i].receipt.ID] = steps[i]
		compensated[steps[i].receipt.ID] = e.compensate(ctx, repos, steps[i])
	}

	var failed bool
	outcomes := make([]ledger.ReceiptOutcome, 0, plan.Len())
	for _, entry := range plan.Entries() {
		outcome := ledger.ReceiptOutcome{ReceiptID: entry.ReceiptID, Outcome: ledger.OutcomeNotApplied}
		// a step whose receipt save failed never reached the store
		if step, touched := byReceipt[entry.ReceiptID]; touched && step.saved {
			if compErr := compensated[entry.ReceiptID]; compErr != nil {
				failed = true
				outcome.Outcome = ledger.OutcomeCommitted
				outcome.Error = compErr.Error()
			} else {
				outcome.Outcome = ledger.OutcomeRolledBack
			}
		}
		outcomes = append(outcomes, outcome)
	}

	if !failed {
		e.logger.Warn("Allocation plan compensated",
			zap.String("payment_id", plan.PaymentID().String()),
			zap.Int("steps", len(steps)),
			zap.Error(cause),
		)
		return cause
	}

	e.logger.Error("Allocation plan left partially applied",
		zap.String("payment_id", plan.PaymentID().String()),
		zap.Any("outcomes", outcomes),
		zap.Error(cause),
	)
	return &ledger.PartialApplicationError{
		PaymentID: plan.PaymentID(),
		Outcomes:  outcomes,
		Cause:     cause,
	}
}

// compensate undoes one step: delete the allocation row, then restore the balance
func (e *AllocationEngine) compensate(ctx context.Context, repos TransactionalRepositories, step *appliedStep) error {
	if step.allocCreated {
		if err := repos.AllocationRepo().Delete(ctx, step.allocation.ID); err != nil {
			return fmt.Errorf("failed to delete allocation %s: %w", step.allocation.ID, err)
		}
	}
	if !step.saved {
		return nil
	}
	if err := step.receipt.RevertAllocation(step.allocation, e.now()); err != nil {
		return err
	}
	if err := repos.ReceiptRepo().SaveWithLock(ctx, step.receipt); err != nil {
		return fmt.Errorf("failed to restore balance of receipt %s: %w", step.receipt.ID, err)
	}
	step.receipt.ClearDomainEvents()
	return nil
}

func (e *AllocationEngine) recordFailure(ctx context.Context, plan *ledger.ValidatedPlan, err error) {
	code := "ERR_INTERNAL"
	var de *shared.DomainError
	if errors.As(err, &de) {
		code = de.Code
	}
	var partial *ledger.PartialApplicationError
	compensated := !errors.As(err, &partial)
	e.metrics.RecordPlanFailed(ctx, code, compensated)
	e.logger.Warn("Allocation plan rejected",
		zap.String("payment_id", plan.PaymentID().String()),
		zap.String("code", code),
		zap.Error(err),
	)
}

func (e *AllocationEngine) buildResult(plan *ledger.ValidatedPlan, remainderBefore decimal.Decimal, steps []*appliedStep) *ApplyResult {
	byReceipt := make(map[uuid.UUID]*appliedStep, len(steps))
	for _, s := range steps {
		byReceipt[s.receipt.ID] = s
	}

	applied := decimal.Zero
	apps := make([]ReceiptApplication, 0, plan.Len())
	for _, entry := range plan.Entries() {
		s := byReceipt[entry.ReceiptID]
		t := s.transition
		apps = append(apps, ReceiptApplication{
			ReceiptID:       t.ReceiptID,
			AllocationID:    s.allocation.ID,
			Amount:          t.Amount,
			PreviousBalance: t.PreviousBalance,
			NewBalance:      t.NewBalance,
			PreviousStatus:  t.PreviousStatus,
			NewStatus:       t.NewStatus,
			FullyPaid:       t.FullyPaid(),
		})
		applied = applied.Add(t.Amount)
	}

	return &ApplyResult{
		PaymentID:    plan.PaymentID(),
		Applications: apps,
		Applied:      applied,
		Remainder:    decimal.Max(decimal.Zero, remainderBefore.Sub(applied)),
		Message:      e.messages.PlanApplied(applied, plan.Currency(), len(apps)),
	}
}

func (e *AllocationEngine) publishEvents(ctx context.Context, agg shared.AggregateRoot) {
	events := agg.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if e.eventPublisher != nil {
		// Publish errors are logged by the event bus, not propagated
		_ = e.eventPublisher.Publish(ctx, events...)
	}
	agg.ClearDomainEvents()
}
