package ledger

import (
	"context"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records payments and hands their distribution to the AllocationEngine
type PaymentService struct {
	paymentRepo    ledger.PaymentRepository
	allocationRepo ledger.AllocationRepository
	engine         *AllocationEngine
	locker         ReceiptLocker
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo ledger.PaymentRepository,
	allocationRepo ledger.AllocationRepository,
	engine *AllocationEngine,
	locker ReceiptLocker,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		paymentRepo:    paymentRepo,
		allocationRepo: allocationRepo,
		engine:         engine,
		locker:         locker,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *PaymentService) newPayment(req RegisterPaymentRequest) (*ledger.Payment, error) {
	currency, err := valueobject.ParseCurrency(req.Currency)
	if err != nil {
		return nil, ledger.NewValidationError("%s", err.Error())
	}
	if req.Currency == "" {
		currency = s.engine.Currency()
	}
	if currency != s.engine.Currency() {
		return nil, ledger.NewValidationError("payment currency %s differs from ledger currency %s", currency, s.engine.Currency())
	}
	return ledger.RegisterPayment(ledger.PaymentDraft{
		PaidAt:       req.PaidAt,
		MethodID:     req.MethodID,
		Amount:       req.Amount,
		Currency:     currency,
		Reference:    req.Reference,
		Notes:        req.Notes,
		RegisteredBy: req.RegisteredBy,
	})
}

// Register records a confirmed payment without distributing it
func (s *PaymentService) Register(ctx context.Context, req RegisterPaymentRequest) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "register")
	defer span.End()

	payment, err := s.newPayment(req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		telemetry.SpanAttrAmount, payment.Amount.String(),
	)

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	s.logger.Info("Payment registered",
		zap.String("payment_id", payment.ID.String()),
		zap.Int("method_id", payment.MethodID),
		zap.String("amount", payment.Amount.StringFixed(2)),
	)
	s.publishDomainEvents(ctx, payment)

	resp := ToPaymentResponse(payment, nil)
	return &resp, nil
}

// RegisterAndApply records a payment and applies all of it to one receipt.
// Both writes commit together or not at all.
func (s *PaymentService) RegisterAndApply(ctx context.Context, req RegisterAndApplyRequest) (*ReceiptApplication, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "register_and_apply")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrReceiptID, req.ReceiptID.String())

	payment, err := s.newPayment(RegisterPaymentRequest{
		PaidAt:       req.PaidAt,
		MethodID:     req.MethodID,
		Amount:       req.Amount,
		Reference:    req.Reference,
		Notes:        req.Notes,
		RegisteredBy: req.RegisteredBy,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	plan, err := s.engine.Validate(ctx, payment, []ledger.PlanEntry{{ReceiptID: req.ReceiptID, Amount: payment.Amount}})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result, err := s.engine.RegisterAndApply(ctx, payment, plan, req.RegisteredBy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return &result.Applications[0], nil
}

// ApplyPlan validates and applies a distribution of a recorded payment
func (s *PaymentService) ApplyPlan(ctx context.Context, paymentID uuid.UUID, entries []ledger.PlanEntry, appliedBy *uuid.UUID) (*ApplyResult, error) {
	plan, err := s.engine.ValidateByID(ctx, paymentID, entries)
	if err != nil {
		return nil, err
	}
	return s.engine.Apply(ctx, plan, appliedBy)
}

// GetByID returns a payment with its allocations
func (s *PaymentService) GetByID(ctx context.Context, id uuid.UUID) (*PaymentResponse, error) {
	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, ledger.NewNotFoundError("payment", id)
	}
	allocs, err := s.allocationRepo.FindByPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}
	resp := ToPaymentResponse(payment, allocs)
	return &resp, nil
}

// Cancel voids a payment that has not been allocated
func (s *PaymentService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*PaymentResponse, error) {
	return s.void(ctx, id, func(p *ledger.Payment, allocated decimal.Decimal) error {
		return p.Cancel(reason, allocated)
	})
}

// Reject marks an unallocated payment as refused by the bank
func (s *PaymentService) Reject(ctx context.Context, id uuid.UUID, reason string) (*PaymentResponse, error) {
	return s.void(ctx, id, func(p *ledger.Payment, allocated decimal.Decimal) error {
		return p.Reject(reason, allocated)
	})
}

func (s *PaymentService) void(ctx context.Context, id uuid.UUID, fn func(*ledger.Payment, decimal.Decimal) error) (*PaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "void")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, id.String())

	// the payment lock keeps a concurrent allocation plan out
	unlock, err := s.locker.Lock(ctx, PaymentLockKey(id), s.engine.cfg.LockTimeout)
	if err != nil {
		return nil, lockError(err, PaymentLockKey(id))
	}
	defer unlock()

	payment, err := s.paymentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, ledger.NewNotFoundError("payment", id)
	}
	allocs, err := s.allocationRepo.FindByPayment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocations: %w", err)
	}
	if err := fn(payment, ledger.SumAllocations(allocs)); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Payment voided",
		zap.String("payment_id", payment.ID.String()),
		zap.String("status", string(payment.Status)),
		zap.String("reason", payment.VoidReason),
	)
	s.publishDomainEvents(ctx, payment)
	resp := ToPaymentResponse(payment, allocs)
	return &resp, nil
}

func (s *PaymentService) publishDomainEvents(ctx context.Context, payment *ledger.Payment) {
	events := payment.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, events...)
	}
	payment.ClearDomainEvents()
}
