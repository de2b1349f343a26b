package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptModel is the persistence model for the Receipt aggregate root.
// Status holds the last persisted derivation; reads re-derive it.
type ReceiptModel struct {
	AggregateModel
	Folio       *string            `gorm:"type:varchar(50);uniqueIndex"`
	StudentID   uuid.UUID          `gorm:"type:uuid;not null;index:idx_receipt_student_due,priority:1"`
	PeriodID    uuid.UUID          `gorm:"type:uuid;not null;index"`
	Concept     string             `gorm:"type:varchar(200);not null"`
	IssueDate   time.Time          `gorm:"not null"`
	DueDate     time.Time          `gorm:"not null;index:idx_receipt_student_due,priority:2"`
	Currency    string             `gorm:"type:varchar(3);not null;default:'MXN'"`
	Subtotal    decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Discount    decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
	Surcharge   decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
	Total       decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Balance     decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Status      string             `gorm:"type:varchar(20);not null;index"`
	AdminFlag   string             `gorm:"type:varchar(20);not null;default:''"`
	AdminReason string             `gorm:"type:varchar(500)"`
	Notes       string             `gorm:"type:text"`
	Lines       []ReceiptLineModel `gorm:"foreignKey:ReceiptID;references:ID"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to a domain Receipt
func (m *ReceiptModel) ToDomain() *ledger.Receipt {
	r := &ledger.Receipt{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Folio:             m.Folio,
		StudentID:         m.StudentID,
		PeriodID:          m.PeriodID,
		Concept:           m.Concept,
		IssueDate:         m.IssueDate.UTC(),
		DueDate:           m.DueDate.UTC(),
		Currency:          valueobject.Currency(m.Currency),
		Subtotal:          m.Subtotal,
		Discount:          m.Discount,
		Surcharge:         m.Surcharge,
		Total:             m.Total,
		Balance:           m.Balance,
		Status:            ledger.ReceiptStatus(m.Status),
		AdminFlag:         ledger.AdminFlag(m.AdminFlag),
		AdminReason:       m.AdminReason,
		Notes:             m.Notes,
		Lines:             make([]ledger.ReceiptLine, len(m.Lines)),
	}
	for i := range m.Lines {
		r.Lines[i] = m.Lines[i].ToDomain()
	}
	return r
}

// FromDomain populates the persistence model from a domain Receipt
func (m *ReceiptModel) FromDomain(r *ledger.Receipt) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Folio = r.Folio
	m.StudentID = r.StudentID
	m.PeriodID = r.PeriodID
	m.Concept = r.Concept
	m.IssueDate = r.IssueDate
	m.DueDate = r.DueDate
	m.Currency = string(r.Currency)
	m.Subtotal = r.Subtotal
	m.Discount = r.Discount
	m.Surcharge = r.Surcharge
	m.Total = r.Total
	m.Balance = r.Balance
	m.Status = string(r.Status)
	m.AdminFlag = string(r.AdminFlag)
	m.AdminReason = r.AdminReason
	m.Notes = r.Notes
	m.Lines = make([]ReceiptLineModel, len(r.Lines))
	for i := range r.Lines {
		m.Lines[i].FromDomain(r.Lines[i])
	}
}

// ReceiptModelFromDomain creates a new persistence model from domain.
func ReceiptModelFromDomain(r *ledger.Receipt) *ReceiptModel {
	m := &ReceiptModel{}
	m.FromDomain(r)
	return m
}

// ReceiptLineModel is the persistence model for ReceiptLine.
type ReceiptLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_receipt_line_no,priority:1"`
	LineNo      int             `gorm:"not null;uniqueIndex:idx_receipt_line_no,priority:2"`
	Description string          `gorm:"type:varchar(300);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (ReceiptLineModel) TableName() string {
	return "receipt_lines"
}

// ToDomain converts the persistence model to a domain ReceiptLine
func (m *ReceiptLineModel) ToDomain() ledger.ReceiptLine {
	return ledger.ReceiptLine{
		ID:          m.ID,
		ReceiptID:   m.ReceiptID,
		LineNo:      m.LineNo,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
	}
}

// FromDomain populates the persistence model from a domain ReceiptLine
func (m *ReceiptLineModel) FromDomain(l ledger.ReceiptLine) {
	m.ID = l.ID
	m.ReceiptID = l.ReceiptID
	m.LineNo = l.LineNo
	m.Description = l.Description
	m.Quantity = l.Quantity
	m.UnitPrice = l.UnitPrice
	m.Amount = l.Amount
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	AggregateModel
	PaidAt       time.Time       `gorm:"not null;index"`
	MethodID     int             `gorm:"not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'MXN'"`
	Reference    *string         `gorm:"type:varchar(100)"`
	Notes        *string         `gorm:"type:text"`
	Status       string          `gorm:"type:varchar(20);not null;default:'CONFIRMED';index"`
	RegisteredBy *uuid.UUID      `gorm:"type:uuid"`
	VoidReason   string          `gorm:"type:varchar(500)"`
	VoidedAt     *time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *ledger.Payment {
	return &ledger.Payment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PaidAt:            m.PaidAt.UTC(),
		MethodID:          m.MethodID,
		Amount:            m.Amount,
		Currency:          valueobject.Currency(m.Currency),
		Reference:         m.Reference,
		Notes:             m.Notes,
		Status:            ledger.PaymentStatus(m.Status),
		RegisteredBy:      m.RegisteredBy,
		VoidReason:        m.VoidReason,
		VoidedAt:          m.VoidedAt,
	}
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.PaidAt = p.PaidAt
	m.MethodID = p.MethodID
	m.Amount = p.Amount
	m.Currency = string(p.Currency)
	m.Reference = p.Reference
	m.Notes = p.Notes
	m.Status = string(p.Status)
	m.RegisteredBy = p.RegisteredBy
	m.VoidReason = p.VoidReason
	m.VoidedAt = p.VoidedAt
}

// PaymentModelFromDomain creates a new persistence model from domain.
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// AllocationModel is the persistence model for Allocation.
type AllocationModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ReceiptID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AppliedAt time.Time       `gorm:"not null"`
	AppliedBy *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// ToDomain converts the persistence model to a domain Allocation
func (m *AllocationModel) ToDomain() *ledger.Allocation {
	return &ledger.Allocation{
		ID:        m.ID,
		PaymentID: m.PaymentID,
		ReceiptID: m.ReceiptID,
		Amount:    m.Amount,
		AppliedAt: m.AppliedAt.UTC(),
		AppliedBy: m.AppliedBy,
	}
}

// AllocationModelFromDomain creates a new persistence model from domain.
func AllocationModelFromDomain(a *ledger.Allocation) *AllocationModel {
	return &AllocationModel{
		ID:        a.ID,
		PaymentID: a.PaymentID,
		ReceiptID: a.ReceiptID,
		Amount:    a.Amount,
		AppliedAt: a.AppliedAt,
		AppliedBy: a.AppliedBy,
	}
}

// LedgerModels lists the models AutoMigrate creates for the ledger
func LedgerModels() []any {
	return []any{
		&ReceiptModel{},
		&ReceiptLineModel{},
		&PaymentModel{},
		&AllocationModel{},
	}
}
