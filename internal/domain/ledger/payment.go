package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle of a recorded payment
type PaymentStatus string

const (
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED" // Money received; may be allocated
	PaymentStatusRejected  PaymentStatus = "REJECTED"  // Bounced or refused by the bank
	PaymentStatusCancelled PaymentStatus = "CANCELLED" // Voided by an operator
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusConfirmed, PaymentStatusRejected, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal is true for Rejected and Cancelled
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusRejected || s == PaymentStatusCancelled
}

// Payment methods known to the cash office. Unknown ids are accepted and
// reported by number.
const (
	PaymentMethodCash     = 1
	PaymentMethodTransfer = 2
	PaymentMethodCard     = 3
	PaymentMethodCheck    = 4
	PaymentMethodDeposit  = 5
)

var paymentMethodNames = map[int]string{
	PaymentMethodCash:     "Cash",
	PaymentMethodTransfer: "Transfer",
	PaymentMethodCard:     "Card",
	PaymentMethodCheck:    "Check",
	PaymentMethodDeposit:  "Deposit",
}

// PaymentMethodName returns a display name for a payment method id
func PaymentMethodName(id int) string {
	if name, ok := paymentMethodNames[id]; ok {
		return name
	}
	return "Method " + strconv.Itoa(id)
}

// Payment is money received. Amount is immutable; only Status may change.
type Payment struct {
	shared.BaseAggregateRoot
	PaidAt       time.Time
	MethodID     int
	Amount       decimal.Decimal
	Currency     valueobject.Currency
	Reference    *string
	Notes        *string
	Status       PaymentStatus
	RegisteredBy *uuid.UUID
	VoidReason   string
	VoidedAt     *time.Time
}

// PaymentDraft is the input to RegisterPayment
type PaymentDraft struct {
	PaidAt       time.Time
	MethodID     int
	Amount       decimal.Decimal
	Currency     valueobject.Currency
	Reference    *string
	Notes        *string
	RegisteredBy *uuid.UUID
}

// RegisterPayment records a confirmed payment
func RegisterPayment(d PaymentDraft) (*Payment, error) {
	if d.PaidAt.IsZero() {
		return nil, NewValidationError("payment date is required")
	}
	if d.MethodID <= 0 {
		return nil, NewValidationError("payment method is required")
	}
	if !d.Amount.IsPositive() {
		return nil, NewValidationError("payment amount must be positive")
	}
	if !d.Amount.Equal(d.Amount.Round(valueobject.MoneyScale)) {
		return nil, NewValidationError("payment amount %s has more than %d decimals", d.Amount, valueobject.MoneyScale)
	}
	currency := d.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PaidAt:            d.PaidAt.UTC(),
		MethodID:          d.MethodID,
		Amount:            d.Amount,
		Currency:          currency,
		Reference:         trimOptional(d.Reference),
		Notes:             trimOptional(d.Notes),
		Status:            PaymentStatusConfirmed,
		RegisteredBy:      d.RegisteredBy,
	}
	p.AddDomainEvent(NewPaymentRegisteredEvent(p))
	return p, nil
}

// Money returns the amount as a Money value
func (p *Payment) Money() valueobject.Money {
	return valueobject.NewMoney(p.Amount, p.Currency)
}

// CanAllocate reports whether the payment may still be distributed
func (p *Payment) CanAllocate() bool {
	return p.Status == PaymentStatusConfirmed
}

// Cancel voids a payment that has nothing allocated
func (p *Payment) Cancel(reason string, allocated decimal.Decimal) error {
	return p.void(PaymentStatusCancelled, reason, allocated)
}

// Reject marks a payment as refused by the bank
func (p *Payment) Reject(reason string, allocated decimal.Decimal) error {
	return p.void(PaymentStatusRejected, reason, allocated)
}

func (p *Payment) void(status PaymentStatus, reason string, allocated decimal.Decimal) error {
	if p.Status.IsTerminal() {
		return NewInvalidStateError("payment %s is already %s", p.ID, p.Status)
	}
	if allocated.IsPositive() {
		return NewInvalidStateError("payment %s has %s allocated to receipts and cannot be voided",
			p.ID, allocated.StringFixed(2))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("a reason is required")
	}
	now := time.Now().UTC()
	p.Status = status
	p.VoidReason = reason
	p.VoidedAt = &now
	p.Touch()
	p.AddDomainEvent(NewPaymentVoidedEvent(p))
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
