package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type names
const (
	AggregateTypeReceipt = "Receipt"
	AggregateTypePayment = "Payment"
)

// Event type constants
const (
	EventTypeReceiptIssued     = "ReceiptIssued"
	EventTypeAllocationApplied = "AllocationApplied"
	EventTypeAllocationRevoked = "AllocationRevoked"
	EventTypeReceiptPaidOff    = "ReceiptPaidOff"
	EventTypeReceiptRepaired   = "ReceiptRepaired"
	EventTypeReceiptCancelled  = "ReceiptCancelled"
	EventTypeReceiptWaived     = "ReceiptWaived"
	EventTypePaymentRegistered = "PaymentRegistered"
	EventTypePaymentVoided     = "PaymentVoided"
)

// ReceiptIssuedEvent is raised when a receipt enters the ledger
type ReceiptIssuedEvent struct {
	shared.BaseDomainEvent
	StudentID uuid.UUID       `json:"student_id"`
	PeriodID  uuid.UUID       `json:"period_id"`
	Total     decimal.Decimal `json:"total"`
}

// NewReceiptIssuedEvent creates a new ReceiptIssuedEvent
func NewReceiptIssuedEvent(r *Receipt) *ReceiptIssuedEvent {
	return &ReceiptIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptIssued, AggregateTypeReceipt, r.ID),
		StudentID:       r.StudentID,
		PeriodID:        r.PeriodID,
		Total:           r.Total,
	}
}

// AllocationAppliedEvent is raised for every allocation written against a receipt
type AllocationAppliedEvent struct {
	shared.BaseDomainEvent
	AllocationID    uuid.UUID       `json:"allocation_id"`
	PaymentID       uuid.UUID       `json:"payment_id"`
	Amount          decimal.Decimal `json:"amount"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	PreviousStatus  ReceiptStatus   `json:"previous_status"`
	NewStatus       ReceiptStatus   `json:"new_status"`
}

// NewAllocationAppliedEvent creates a new AllocationAppliedEvent
func NewAllocationAppliedEvent(a *Allocation, t ReceiptTransition) *AllocationAppliedEvent {
	return &AllocationAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationApplied, AggregateTypeReceipt, a.ReceiptID),
		AllocationID:    a.ID,
		PaymentID:       a.PaymentID,
		Amount:          a.Amount,
		PreviousBalance: t.PreviousBalance,
		NewBalance:      t.NewBalance,
		PreviousStatus:  t.PreviousStatus,
		NewStatus:       t.NewStatus,
	}
}

// AllocationRevokedEvent is raised when a compensating rollback restores a balance
type AllocationRevokedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID       `json:"allocation_id"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// NewAllocationRevokedEvent creates a new AllocationRevokedEvent
func NewAllocationRevokedEvent(a *Allocation) *AllocationRevokedEvent {
	return &AllocationRevokedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationRevoked, AggregateTypeReceipt, a.ReceiptID),
		AllocationID:    a.ID,
		PaymentID:       a.PaymentID,
		Amount:          a.Amount,
	}
}

// ReceiptPaidOffEvent is raised when a receipt's balance reaches zero
type ReceiptPaidOffEvent struct {
	shared.BaseDomainEvent
	StudentID uuid.UUID       `json:"student_id"`
	Total     decimal.Decimal `json:"total"`
}

// NewReceiptPaidOffEvent creates a new ReceiptPaidOffEvent
func NewReceiptPaidOffEvent(r *Receipt) *ReceiptPaidOffEvent {
	return &ReceiptPaidOffEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptPaidOff, AggregateTypeReceipt, r.ID),
		StudentID:       r.StudentID,
		Total:           r.Total,
	}
}

// ReceiptRepairedEvent is raised when a regularization line is added
type ReceiptRepairedEvent struct {
	shared.BaseDomainEvent
	LineID uuid.UUID       `json:"line_id"`
	Amount decimal.Decimal `json:"amount"`
}

// NewReceiptRepairedEvent creates a new ReceiptRepairedEvent
func NewReceiptRepairedEvent(r *Receipt, line ReceiptLine) *ReceiptRepairedEvent {
	return &ReceiptRepairedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptRepaired, AggregateTypeReceipt, r.ID),
		LineID:          line.ID,
		Amount:          line.Amount,
	}
}

// ReceiptVoidedEvent covers both administrative end states
type ReceiptVoidedEvent struct {
	shared.BaseDomainEvent
	Reason         string          `json:"reason"`
	BalanceAtClose decimal.Decimal `json:"balance_at_close"`
}

// NewReceiptVoidedEvent creates a ReceiptCancelled or ReceiptWaived event
func NewReceiptVoidedEvent(r *Receipt, eventType, reason string) *ReceiptVoidedEvent {
	return &ReceiptVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeReceipt, r.ID),
		Reason:          reason,
		BalanceAtClose:  r.Balance,
	}
}

// PaymentRegisteredEvent is raised when a payment is recorded
type PaymentRegisteredEvent struct {
	shared.BaseDomainEvent
	MethodID int             `json:"method_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewPaymentRegisteredEvent creates a new PaymentRegisteredEvent
func NewPaymentRegisteredEvent(p *Payment) *PaymentRegisteredEvent {
	return &PaymentRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRegistered, AggregateTypePayment, p.ID),
		MethodID:        p.MethodID,
		Amount:          p.Amount,
		Currency:        string(p.Currency),
	}
}

// PaymentVoidedEvent is raised when a payment is cancelled or rejected
type PaymentVoidedEvent struct {
	shared.BaseDomainEvent
	Status PaymentStatus `json:"status"`
	Reason string        `json:"reason"`
}

// NewPaymentVoidedEvent creates a new PaymentVoidedEvent
func NewPaymentVoidedEvent(p *Payment) *PaymentVoidedEvent {
	return &PaymentVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentVoided, AggregateTypePayment, p.ID),
		Status:          p.Status,
		Reason:          p.VoidReason,
	}
}
