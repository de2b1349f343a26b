package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountEpsilon is the tolerance used when comparing plan sums to payment amounts
var AmountEpsilon = decimal.New(1, -2)

// Allocation is the immutable record of part of a payment applied to one receipt
type Allocation struct {
	ID        uuid.UUID
	PaymentID uuid.UUID
	ReceiptID uuid.UUID
	Amount    decimal.Decimal
	AppliedAt time.Time
	AppliedBy *uuid.UUID
}

// NewAllocation creates an allocation stamped at appliedAt
func NewAllocation(paymentID, receiptID uuid.UUID, amount decimal.Decimal, appliedBy *uuid.UUID, appliedAt time.Time) (*Allocation, error) {
	if paymentID == uuid.Nil {
		return nil, NewValidationError("allocation requires a payment")
	}
	if receiptID == uuid.Nil {
		return nil, NewValidationError("allocation requires a receipt")
	}
	if !amount.IsPositive() {
		return nil, NewValidationError("allocation amount must be positive, got %s", amount.StringFixed(2))
	}
	return &Allocation{
		ID:        uuid.New(),
		PaymentID: paymentID,
		ReceiptID: receiptID,
		Amount:    amount,
		AppliedAt: appliedAt.UTC(),
		AppliedBy: appliedBy,
	}, nil
}

// ReceiptTransition describes the effect of one allocation on its receipt
type ReceiptTransition struct {
	ReceiptID       uuid.UUID
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	PreviousStatus  ReceiptStatus
	NewStatus       ReceiptStatus
}

// FullyPaid reports whether the allocation settled the receipt
func (t ReceiptTransition) FullyPaid() bool {
	return t.NewBalance.IsZero()
}

// SumAllocations totals the amounts of allocs
func SumAllocations(allocs []*Allocation) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range allocs {
		sum = sum.Add(a.Amount)
	}
	return sum
}
