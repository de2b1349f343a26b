package ledger

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptApplication is the effect of one plan entry on its receipt
type ReceiptApplication struct {
	ReceiptID       uuid.UUID            `json:"receipt_id"`
	AllocationID    uuid.UUID            `json:"allocation_id"`
	Amount          decimal.Decimal      `json:"amount"`
	PreviousBalance decimal.Decimal      `json:"previous_balance"`
	NewBalance      decimal.Decimal      `json:"new_balance"`
	PreviousStatus  ledger.ReceiptStatus `json:"previous_status"`
	NewStatus       ledger.ReceiptStatus `json:"new_status"`
	FullyPaid       bool                 `json:"fully_paid"`
}

// ApplyResult is returned when a plan committed. Applications follow the
// order of the submitted plan.
type ApplyResult struct {
	PaymentID    uuid.UUID            `json:"payment_id"`
	Applications []ReceiptApplication `json:"applications"`
	Applied      decimal.Decimal      `json:"applied"`
	Remainder    decimal.Decimal      `json:"remainder"`
	Message      string               `json:"message"`
}

// RegisterPaymentRequest is the input for recording a payment
type RegisterPaymentRequest struct {
	PaidAt       time.Time
	MethodID     int
	Amount       decimal.Decimal
	Currency     string
	Reference    *string
	Notes        *string
	RegisteredBy *uuid.UUID
}

// RegisterAndApplyRequest records a payment and settles one receipt with it
type RegisterAndApplyRequest struct {
	ReceiptID    uuid.UUID
	PaidAt       time.Time
	MethodID     int
	Amount       decimal.Decimal
	Reference    *string
	Notes        *string
	RegisteredBy *uuid.UUID
}

// AllocationResponse is an allocation as seen by callers
type AllocationResponse struct {
	ID        uuid.UUID       `json:"id"`
	PaymentID uuid.UUID       `json:"payment_id"`
	ReceiptID uuid.UUID       `json:"receipt_id"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedAt time.Time       `json:"applied_at"`
	AppliedBy *uuid.UUID      `json:"applied_by,omitempty"`
}

// PaymentResponse is a payment with its distribution
type PaymentResponse struct {
	ID           uuid.UUID            `json:"id"`
	PaidAt       time.Time            `json:"paid_at"`
	MethodID     int                  `json:"method_id"`
	MethodName   string               `json:"method_name"`
	Amount       decimal.Decimal      `json:"amount"`
	Currency     string               `json:"currency"`
	Reference    *string              `json:"reference,omitempty"`
	Notes        *string              `json:"notes,omitempty"`
	Status       ledger.PaymentStatus `json:"status"`
	VoidReason   string               `json:"void_reason,omitempty"`
	RegisteredBy *uuid.UUID           `json:"registered_by,omitempty"`
	Allocated    decimal.Decimal      `json:"allocated"`
	Remainder    decimal.Decimal      `json:"remainder"`
	Allocations  []AllocationResponse `json:"allocations"`
	CreatedAt    time.Time            `json:"created_at"`
}

// ReceiptLineResponse is one line of a receipt
type ReceiptLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	LineNo      int             `json:"line_no"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// ReceiptResponse is a receipt with its status derived at read time
type ReceiptResponse struct {
	ID          uuid.UUID             `json:"id"`
	Folio       *string               `json:"folio,omitempty"`
	StudentID   uuid.UUID             `json:"student_id"`
	PeriodID    uuid.UUID             `json:"period_id"`
	Concept     string                `json:"concept"`
	IssueDate   time.Time             `json:"issue_date"`
	DueDate     time.Time             `json:"due_date"`
	Currency    string                `json:"currency"`
	Subtotal    decimal.Decimal       `json:"subtotal"`
	Discount    decimal.Decimal       `json:"discount"`
	Surcharge   decimal.Decimal       `json:"surcharge"`
	Total       decimal.Decimal       `json:"total"`
	Balance     decimal.Decimal       `json:"balance"`
	Status      ledger.ReceiptStatus  `json:"status"`
	AdminReason string                `json:"admin_reason,omitempty"`
	Notes       string                `json:"notes,omitempty"`
	DaysOverdue int                   `json:"days_overdue"`
	Lines       []ReceiptLineResponse `json:"lines"`
	Allocations []AllocationResponse  `json:"allocations,omitempty"`
	Version     int                   `json:"version"`
}

// IssueReceiptsRequest issues a batch of receipts atomically
type IssueReceiptsRequest struct {
	Receipts []ledger.ReceiptDraft
}

// RepairFailure is one receipt the repair run could not fix
type RepairFailure struct {
	ReceiptID uuid.UUID `json:"receipt_id"`
	Error     string    `json:"error"`
}

// RepairSummary is the outcome of RepairAll
type RepairSummary struct {
	Repaired int             `json:"repaired"`
	Failed   int             `json:"failed"`
	Message  string          `json:"message"`
	Errors   []RepairFailure `json:"errors,omitempty"`
}

// PaymentSummary is a payment line of the cash cut
type PaymentSummary struct {
	ID        uuid.UUID            `json:"id"`
	PaidAt    time.Time            `json:"paid_at"`
	MethodID  int                  `json:"method_id"`
	Amount    decimal.Decimal      `json:"amount"`
	Reference *string              `json:"reference,omitempty"`
	Status    ledger.PaymentStatus `json:"status"`
}

// CashCutGroup totals confirmed payments of one method
type CashCutGroup struct {
	MethodID   int             `json:"method_id"`
	MethodName string          `json:"method_name"`
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
}

// CashCutReport covers payments with date in [Start, End)
type CashCutReport struct {
	Start        time.Time        `json:"start"`
	End          time.Time        `json:"end"`
	Currency     string           `json:"currency"`
	Groups       []CashCutGroup   `json:"groups"`
	PaymentCount int              `json:"payment_count"`
	GrandTotal   decimal.Decimal  `json:"grand_total"`
	Payments     []PaymentSummary `json:"payments"`
	Voided       []PaymentSummary `json:"voided"`
	VoidedCount  int              `json:"voided_count"`
	VoidedTotal  decimal.Decimal  `json:"voided_total"`
	GeneratedAt  time.Time        `json:"generated_at"`
}

// OverdueEntry is one receipt of the overdue portfolio
type OverdueEntry struct {
	ReceiptID   uuid.UUID            `json:"receipt_id"`
	Folio       *string              `json:"folio,omitempty"`
	StudentID   uuid.UUID            `json:"student_id"`
	PeriodID    uuid.UUID            `json:"period_id"`
	Concept     string               `json:"concept"`
	DueDate     time.Time            `json:"due_date"`
	Total       decimal.Decimal      `json:"total"`
	Balance     decimal.Decimal      `json:"balance"`
	DaysOverdue int                  `json:"days_overdue"`
	Status      ledger.ReceiptStatus `json:"status"`
}

// OverduePortfolio lists receipts past due at AsOf, most overdue first
type OverduePortfolio struct {
	AsOf         time.Time       `json:"as_of"`
	Entries      []OverdueEntry  `json:"entries"`
	ReceiptCount int             `json:"receipt_count"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

// PeriodIncomeReport aggregates the receipts of one academic period
type PeriodIncomeReport struct {
	PeriodID     uuid.UUID       `json:"period_id"`
	ReceiptCount int64           `json:"receipt_count"`
	Billed       decimal.Decimal `json:"billed"`
	Income       decimal.Decimal `json:"income"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	WrittenOff   decimal.Decimal `json:"written_off"`
}

// CashCutArchive reports where a rendered cash cut was stored
type CashCutArchive struct {
	Key      string    `json:"key"`
	Location string    `json:"location"`
	Size     int       `json:"size"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// ToAllocationResponse converts a domain allocation
func ToAllocationResponse(a *ledger.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:        a.ID,
		PaymentID: a.PaymentID,
		ReceiptID: a.ReceiptID,
		Amount:    a.Amount,
		AppliedAt: a.AppliedAt,
		AppliedBy: a.AppliedBy,
	}
}

// ToAllocationResponses converts a slice of domain allocations
func ToAllocationResponses(allocs []*ledger.Allocation) []AllocationResponse {
	out := make([]AllocationResponse, len(allocs))
	for i, a := range allocs {
		out[i] = ToAllocationResponse(a)
	}
	return out
}

// ToReceiptResponse converts a receipt, deriving its status at now
func ToReceiptResponse(r *ledger.Receipt, now time.Time) ReceiptResponse {
	lines := make([]ReceiptLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ReceiptLineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		}
	}
	return ReceiptResponse{
		ID:          r.ID,
		Folio:       r.Folio,
		StudentID:   r.StudentID,
		PeriodID:    r.PeriodID,
		Concept:     r.Concept,
		IssueDate:   r.IssueDate,
		DueDate:     r.DueDate,
		Currency:    string(r.Currency),
		Subtotal:    r.Subtotal,
		Discount:    r.Discount,
		Surcharge:   r.Surcharge,
		Total:       r.Total,
		Balance:     r.Balance,
		Status:      r.StatusAt(now),
		AdminReason: r.AdminReason,
		Notes:       r.Notes,
		DaysOverdue: r.DaysOverdue(now),
		Lines:       lines,
		Version:     r.Version,
	}
}

// ToPaymentResponse converts a payment and its allocations
func ToPaymentResponse(p *ledger.Payment, allocs []*ledger.Allocation) PaymentResponse {
	allocated := ledger.SumAllocations(allocs)
	return PaymentResponse{
		ID:           p.ID,
		PaidAt:       p.PaidAt,
		MethodID:     p.MethodID,
		MethodName:   ledger.PaymentMethodName(p.MethodID),
		Amount:       p.Amount,
		Currency:     string(p.Currency),
		Reference:    p.Reference,
		Notes:        p.Notes,
		Status:       p.Status,
		VoidReason:   p.VoidReason,
		RegisteredBy: p.RegisteredBy,
		Allocated:    allocated,
		Remainder:    p.Amount.Sub(allocated),
		Allocations:  ToAllocationResponses(allocs),
		CreatedAt:    p.CreatedAt,
	}
}

func toPaymentSummary(p *ledger.Payment) PaymentSummary {
	return PaymentSummary{
		ID:        p.ID,
		PaidAt:    p.PaidAt,
		MethodID:  p.MethodID,
		Amount:    p.Amount,
		Reference: p.Reference,
		Status:    p.Status,
	}
}
