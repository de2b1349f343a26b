package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus is always derived, never assigned by callers
type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "PENDING"
	ReceiptStatusPartial   ReceiptStatus = "PARTIAL"
	ReceiptStatusPaid      ReceiptStatus = "PAID"
	ReceiptStatusOverdue   ReceiptStatus = "OVERDUE"
	ReceiptStatusCancelled ReceiptStatus = "CANCELLED"
	ReceiptStatusWaived    ReceiptStatus = "WAIVED"
)

// IsValid checks if the status is a known ReceiptStatus
func (s ReceiptStatus) IsValid() bool {
	switch s {
	case ReceiptStatusPending, ReceiptStatusPartial, ReceiptStatusPaid,
		ReceiptStatusOverdue, ReceiptStatusCancelled, ReceiptStatusWaived:
		return true
	}
	return false
}

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// IsTerminal is true for the administrative end states
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusCancelled || s == ReceiptStatusWaived
}

// IsOutstanding is true while money is still owed
func (s ReceiptStatus) IsOutstanding() bool {
	return s == ReceiptStatusPending || s == ReceiptStatusPartial || s == ReceiptStatusOverdue
}

// OutstandingStatuses lists the statuses the overdue portfolio considers
func OutstandingStatuses() []ReceiptStatus {
	return []ReceiptStatus{ReceiptStatusPending, ReceiptStatusPartial, ReceiptStatusOverdue}
}

// AdminFlag is the administrative override on a receipt
type AdminFlag string

const (
	AdminFlagNone      AdminFlag = ""
	AdminFlagCancelled AdminFlag = "CANCELLED"
	AdminFlagWaived    AdminFlag = "WAIVED"
)

// DeriveStatus maps a receipt's (total, balance, dueDate, flag) to its status
// at instant now. Overdue applies on top of Pending and Partial whenever a
// balance remains past the due date; a zero due date never goes overdue.
func DeriveStatus(total, balance decimal.Decimal, dueDate time.Time, flag AdminFlag, now time.Time) ReceiptStatus {
	switch flag {
	case AdminFlagCancelled:
		return ReceiptStatusCancelled
	case AdminFlagWaived:
		return ReceiptStatusWaived
	}

	if !balance.IsPositive() {
		return ReceiptStatusPaid
	}
	if !dueDate.IsZero() && dueDate.Before(now) {
		return ReceiptStatusOverdue
	}
	if balance.GreaterThanOrEqual(total) {
		return ReceiptStatusPending
	}
	return ReceiptStatusPartial
}

// DaysOverdue counts whole calendar days (UTC) between dueDate and asOf.
// It is zero when the receipt is not past due.
func DaysOverdue(dueDate, asOf time.Time) int {
	if dueDate.IsZero() || !dueDate.Before(asOf) {
		return 0
	}
	d := truncateToDay(dueDate)
	a := truncateToDay(asOf)
	days := int(a.Sub(d).Hours() / 24)
	if days < 1 {
		// past the due instant but still on the due day
		return 0
	}
	return days
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last instant of t's UTC calendar day. Due dates given
// as plain dates are stored this way so a receipt is payable all day long.
func EndOfDay(t time.Time) time.Time {
	return truncateToDay(t).Add(24*time.Hour - time.Second)
}
