package ledger

import (
	"strings"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegularizationDescription is the description of lines added by repair
const RegularizationDescription = "Regularization"

// ReceiptLine is one billed item of a receipt
type ReceiptLine struct {
	ID          uuid.UUID
	ReceiptID   uuid.UUID
	LineNo      int
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
}

// LineDraft is the caller-provided part of a receipt line
type LineDraft struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// NewReceiptLine creates a line with amount = quantity × unitPrice
func NewReceiptLine(receiptID uuid.UUID, lineNo int, d LineDraft) (ReceiptLine, error) {
	desc := strings.TrimSpace(d.Description)
	if desc == "" {
		return ReceiptLine{}, NewValidationError("line %d: description cannot be empty", lineNo)
	}
	if !d.Quantity.IsPositive() {
		return ReceiptLine{}, NewValidationError("line %d: quantity must be positive", lineNo)
	}
	if d.UnitPrice.IsNegative() {
		return ReceiptLine{}, NewValidationError("line %d: unit price cannot be negative", lineNo)
	}
	return ReceiptLine{
		ID:          uuid.New(),
		ReceiptID:   receiptID,
		LineNo:      lineNo,
		Description: desc,
		Quantity:    d.Quantity,
		UnitPrice:   d.UnitPrice,
		Amount:      d.Quantity.Mul(d.UnitPrice).Round(valueobject.MoneyScale),
	}, nil
}

// Receipt is a bill issued to a student for one period.
// Total is fixed at issuance; only allocations move Balance, and only
// administrative actions set the flag.
type Receipt struct {
	shared.BaseAggregateRoot
	Folio       *string
	StudentID   uuid.UUID
	PeriodID    uuid.UUID
	Concept     string
	IssueDate   time.Time
	DueDate     time.Time
	Currency    valueobject.Currency
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	Surcharge   decimal.Decimal
	Total       decimal.Decimal
	Balance     decimal.Decimal
	Status      ReceiptStatus
	AdminFlag   AdminFlag
	AdminReason string
	Notes       string
	Lines       []ReceiptLine
}

// ReceiptDraft carries everything needed to issue a receipt.
// Subtotal is only read when Lines is empty, which models receipts imported
// without a breakdown.
type ReceiptDraft struct {
	Folio     *string
	StudentID uuid.UUID
	PeriodID  uuid.UUID
	Concept   string
	IssueDate time.Time
	DueDate   time.Time
	Currency  valueobject.Currency
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Surcharge decimal.Decimal
	Notes     string
	Lines     []LineDraft
}

// IssueReceipt creates a receipt with balance = total and its status derived at now
func IssueReceipt(d ReceiptDraft, now time.Time) (*Receipt, error) {
	if d.StudentID == uuid.Nil {
		return nil, NewValidationError("receipt requires a student")
	}
	if d.PeriodID == uuid.Nil {
		return nil, NewValidationError("receipt requires a period")
	}
	concept := strings.TrimSpace(d.Concept)
	if concept == "" {
		return nil, NewValidationError("receipt concept cannot be empty")
	}
	if d.DueDate.IsZero() {
		return nil, NewValidationError("receipt requires a due date")
	}
	if d.Discount.IsNegative() || d.Surcharge.IsNegative() {
		return nil, NewValidationError("discount and surcharge cannot be negative")
	}
	if d.Folio != nil && strings.TrimSpace(*d.Folio) == "" {
		d.Folio = nil
	}
	currency := d.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	issueDate := d.IssueDate
	if issueDate.IsZero() {
		issueDate = now
	}

	r := &Receipt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Folio:             d.Folio,
		StudentID:         d.StudentID,
		PeriodID:          d.PeriodID,
		Concept:           concept,
		IssueDate:         issueDate.UTC(),
		DueDate:           d.DueDate.UTC(),
		Currency:          currency,
		Discount:          d.Discount.Round(valueobject.MoneyScale),
		Surcharge:         d.Surcharge.Round(valueobject.MoneyScale),
		Notes:             d.Notes,
		AdminFlag:         AdminFlagNone,
	}

	subtotal := d.Subtotal.Round(valueobject.MoneyScale)
	if len(d.Lines) > 0 {
		subtotal = decimal.Zero
		r.Lines = make([]ReceiptLine, 0, len(d.Lines))
		for i, ld := range d.Lines {
			line, err := NewReceiptLine(r.ID, i+1, ld)
			if err != nil {
				return nil, err
			}
			r.Lines = append(r.Lines, line)
			subtotal = subtotal.Add(line.Amount)
		}
	}
	if subtotal.IsNegative() {
		return nil, NewValidationError("subtotal cannot be negative")
	}
	r.Subtotal = subtotal
	r.Total = subtotal.Sub(r.Discount).Add(r.Surcharge)
	if r.Total.IsNegative() {
		return nil, NewValidationError("discount %s exceeds subtotal plus surcharge", r.Discount.StringFixed(2))
	}
	r.Balance = r.Total
	r.Status = r.StatusAt(now)

	r.AddDomainEvent(NewReceiptIssuedEvent(r))
	return r, nil
}

// StatusAt derives the receipt's status at instant now
func (r *Receipt) StatusAt(now time.Time) ReceiptStatus {
	return DeriveStatus(r.Total, r.Balance, r.DueDate, r.AdminFlag, now)
}

// RefreshStatus re-derives the stored status and reports whether it changed
func (r *Receipt) RefreshStatus(now time.Time) bool {
	next := r.StatusAt(now)
	if next == r.Status {
		return false
	}
	r.Status = next
	r.Touch()
	return true
}

// AmountPaid is total minus balance
func (r *Receipt) AmountPaid() decimal.Decimal {
	return r.Total.Sub(r.Balance)
}

// IsTerminal reports an administrative end state
func (r *Receipt) IsTerminal() bool {
	return r.AdminFlag != AdminFlagNone
}

// IsDefective reports a receipt that has no lines
func (r *Receipt) IsDefective() bool {
	return len(r.Lines) == 0
}

// DaysOverdue counts calendar days past due at asOf, zero for settled receipts
func (r *Receipt) DaysOverdue(asOf time.Time) int {
	if !r.Balance.IsPositive() || r.IsTerminal() {
		return 0
	}
	return DaysOverdue(r.DueDate, asOf)
}

// CheckPayable rejects an allocation of amount against the current balance
func (r *Receipt) CheckPayable(amount decimal.Decimal) error {
	if r.IsTerminal() {
		return NewTerminalStateConflict(r.ID, r.StatusAt(time.Now()))
	}
	if !amount.IsPositive() {
		return NewValidationError("amount for receipt %s must be positive", r.ID)
	}
	if amount.GreaterThan(r.Balance) {
		return NewValidationError("amount %s exceeds balance %s of receipt %s",
			amount.StringFixed(2), r.Balance.StringFixed(2), r.ID)
	}
	return nil
}

// ApplyAllocation decrements the balance by the payment's amount and re-derives
// the status. It returns the new allocation and the receipt transition.
func (r *Receipt) ApplyAllocation(paymentID uuid.UUID, amount decimal.Decimal, appliedBy *uuid.UUID, now time.Time) (*Allocation, ReceiptTransition, error) {
	if err := r.CheckPayable(amount); err != nil {
		return nil, ReceiptTransition{}, err
	}
	alloc, err := NewAllocation(paymentID, r.ID, amount, appliedBy, now)
	if err != nil {
		return nil, ReceiptTransition{}, err
	}

	t := ReceiptTransition{
		ReceiptID:       r.ID,
		Amount:          amount,
		PreviousBalance: r.Balance,
		PreviousStatus:  r.StatusAt(now),
	}
	r.Balance = r.Balance.Sub(amount)
	r.Status = r.StatusAt(now)
	r.Touch()
	t.NewBalance = r.Balance
	t.NewStatus = r.Status

	r.AddDomainEvent(NewAllocationAppliedEvent(alloc, t))
	if t.FullyPaid() {
		r.AddDomainEvent(NewReceiptPaidOffEvent(r))
	}
	return alloc, t, nil
}

// RevertAllocation restores the balance taken by alloc. It is only used to
// compensate an allocation whose plan failed to commit as a whole.
func (r *Receipt) RevertAllocation(alloc *Allocation, now time.Time) error {
	if alloc.ReceiptID != r.ID {
		return NewValidationError("allocation %s does not belong to receipt %s", alloc.ID, r.ID)
	}
	restored := r.Balance.Add(alloc.Amount)
	if restored.GreaterThan(r.Total) {
		return NewInvalidStateError("reverting allocation %s would exceed receipt total", alloc.ID)
	}
	r.Balance = restored
	r.Status = r.StatusAt(now)
	r.Touch()
	r.AddDomainEvent(NewAllocationRevokedEvent(alloc))
	return nil
}

// Cancel closes the receipt administratively. Paid receipts cannot be cancelled.
func (r *Receipt) Cancel(reason string) error {
	return r.close(AdminFlagCancelled, EventTypeReceiptCancelled, reason)
}

// Waive forgives the remaining balance administratively
func (r *Receipt) Waive(reason string) error {
	return r.close(AdminFlagWaived, EventTypeReceiptWaived, reason)
}

func (r *Receipt) close(flag AdminFlag, eventType, reason string) error {
	if r.IsTerminal() {
		return NewTerminalStateConflict(r.ID, r.StatusAt(time.Now()))
	}
	if !r.Balance.IsPositive() {
		return NewInvalidStateError("receipt %s is already paid", r.ID)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewValidationError("a reason is required")
	}
	r.AdminFlag = flag
	r.AdminReason = reason
	r.Status = r.StatusAt(time.Now())
	r.Touch()
	r.AddDomainEvent(NewReceiptVoidedEvent(r, eventType, reason))
	return nil
}

// AddRegularizationLine repairs a receipt without lines by adding a single
// line worth its total. Subtotal becomes the total and the adjustments are
// folded in, so total, balance and status are untouched. It is a no-op for
// receipts that already have lines.
func (r *Receipt) AddRegularizationLine() (bool, error) {
	if !r.IsDefective() {
		return false, nil
	}
	line, err := NewReceiptLine(r.ID, 1, LineDraft{
		Description: RegularizationDescription,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   r.Total,
	})
	if err != nil {
		return false, err
	}
	line.Amount = r.Total
	r.Lines = []ReceiptLine{line}
	r.Subtotal = r.Total
	r.Discount = decimal.Zero
	r.Surcharge = decimal.Zero
	r.Touch()
	r.AddDomainEvent(NewReceiptRepairedEvent(r, line))
	return true, nil
}

// CheckInvariants verifies the arithmetic relations between the amounts
func (r *Receipt) CheckInvariants() error {
	if r.Balance.IsNegative() {
		return NewInvalidStateError("receipt %s has negative balance", r.ID)
	}
	if r.Balance.GreaterThan(r.Total) {
		return NewInvalidStateError("receipt %s balance exceeds total", r.ID)
	}
	if !r.Subtotal.Sub(r.Discount).Add(r.Surcharge).Equal(r.Total) {
		return NewInvalidStateError("receipt %s total does not match subtotal and adjustments", r.ID)
	}
	if len(r.Lines) > 0 {
		sum := decimal.Zero
		for _, l := range r.Lines {
			sum = sum.Add(l.Amount)
		}
		if !sum.Equal(r.Subtotal) {
			return NewInvalidStateError("receipt %s lines sum %s, subtotal is %s",
				r.ID, sum.StringFixed(2), r.Subtotal.StringFixed(2))
		}
	}
	return nil
}
