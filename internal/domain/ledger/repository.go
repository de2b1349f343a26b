package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptFilter narrows receipt queries. Zero values mean "any".
type ReceiptFilter struct {
	StudentID *uuid.UUID
	PeriodID  *uuid.UUID
	Statuses  []ReceiptStatus
	Limit     int
}

// PeriodTotals aggregates the receipts of one period.
// Collected is sum(total - balance) over every receipt; Outstanding only
// counts receipts without an administrative flag and WrittenOff the rest.
type PeriodTotals struct {
	PeriodID     uuid.UUID
	ReceiptCount int64
	Billed       decimal.Decimal
	Collected    decimal.Decimal
	Outstanding  decimal.Decimal
	WrittenOff   decimal.Decimal
}

// ReceiptRepository persists receipts and their lines.
// Find methods return nil, nil when nothing matches an id.
type ReceiptRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Receipt, error)
	FindAll(ctx context.Context, filter ReceiptFilter) ([]*Receipt, error)
	// FindDefective returns receipts that have no lines
	FindDefective(ctx context.Context, filter ReceiptFilter) ([]*Receipt, error)
	// FindPastDue returns non-terminal receipts with balance > 0 and dueDate < asOf
	FindPastDue(ctx context.Context, asOf time.Time) ([]*Receipt, error)
	SumByPeriod(ctx context.Context, periodID uuid.UUID) (*PeriodTotals, error)
	Create(ctx context.Context, receipt *Receipt) error
	// SaveWithLock writes balance, status, amounts and flag when the stored
	// version matches receipt.Version, then bumps the version.
	SaveWithLock(ctx context.Context, receipt *Receipt) error
	// AddLines inserts lines that are not persisted yet
	AddLines(ctx context.Context, receiptID uuid.UUID, lines []ReceiptLine) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PaymentRepository persists payments
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	// FindByDateRange returns payments with PaidAt in [start, end)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*Payment, error)
	Create(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment) error
}

// AllocationRepository persists allocations. Rows are append-only; Delete
// exists only to compensate a plan that did not commit.
type AllocationRepository interface {
	Create(ctx context.Context, allocation *Allocation) error
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]*Allocation, error)
	FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]*Allocation, error)
	SumByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error)
	SumByReceipt(ctx context.Context, receiptID uuid.UUID) (decimal.Decimal, error)
	CountByReceipt(ctx context.Context, receiptID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
