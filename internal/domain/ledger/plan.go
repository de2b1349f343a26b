package ledger

import (
	"bytes"
	"slices"
	"time"

	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanEntry is one requested (receipt, amount) pair of an allocation plan
type PlanEntry struct {
	ReceiptID uuid.UUID
	Amount    decimal.Decimal
}

// ValidatedEntry is a plan entry together with the receipt state it was checked against
type ValidatedEntry struct {
	ReceiptID           uuid.UUID
	Amount              decimal.Decimal
	BalanceAtValidation decimal.Decimal
	StatusAtValidation  ReceiptStatus
}

// ValidatedPlan is an allocation plan that passed validation. It cannot be
// modified after construction; accessors return copies.
type ValidatedPlan struct {
	paymentID   uuid.UUID
	currency    valueobject.Currency
	entries     []ValidatedEntry
	total       decimal.Decimal
	validatedAt time.Time
}

// PaymentID is the payment being distributed
func (p *ValidatedPlan) PaymentID() uuid.UUID { return p.paymentID }

// Currency is the payment currency
func (p *ValidatedPlan) Currency() valueobject.Currency { return p.currency }

// Total is the sum of all entry amounts
func (p *ValidatedPlan) Total() decimal.Decimal { return p.total }

// ValidatedAt is when the balances were read
func (p *ValidatedPlan) ValidatedAt() time.Time { return p.validatedAt }

// Len is the number of entries
func (p *ValidatedPlan) Len() int { return len(p.entries) }

// Entries returns the entries in the order the caller submitted them
func (p *ValidatedPlan) Entries() []ValidatedEntry {
	return slices.Clone(p.entries)
}

// ReceiptIDs returns the receipt ids in submission order
func (p *ValidatedPlan) ReceiptIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p.entries))
	for i, e := range p.entries {
		ids[i] = e.ReceiptID
	}
	return ids
}

// LockOrder returns the entries sorted by ascending receipt id, the order in
// which receipts are locked and mutated.
func (p *ValidatedPlan) LockOrder() []ValidatedEntry {
	ordered := slices.Clone(p.entries)
	slices.SortFunc(ordered, func(a, b ValidatedEntry) int {
		return bytes.Compare(a.ReceiptID[:], b.ReceiptID[:])
	})
	return ordered
}

// ValidatePlan checks a proposed distribution of payment against freshly read
// receipts. remainder is the part of the payment not yet allocated; the plan
// must account for all of it within AmountEpsilon.
func ValidatePlan(
	payment *Payment,
	remainder decimal.Decimal,
	entries []PlanEntry,
	receipts map[uuid.UUID]*Receipt,
	now time.Time,
) (*ValidatedPlan, error) {
	if !payment.CanAllocate() {
		return nil, NewInvalidStateError("payment %s is %s and cannot be allocated", payment.ID, payment.Status)
	}
	if len(entries) == 0 {
		return nil, NewValidationError("allocation plan is empty")
	}

	seen := make(map[uuid.UUID]struct{}, len(entries))
	validated := make([]ValidatedEntry, 0, len(entries))
	total := decimal.Zero
	for i, e := range entries {
		if e.ReceiptID == uuid.Nil {
			return nil, NewValidationError("entry %d: receipt id is required", i+1)
		}
		if !e.Amount.IsPositive() {
			return nil, NewValidationError("entry %d: amount must be greater than zero", i+1)
		}
		if !e.Amount.Equal(e.Amount.Round(valueobject.MoneyScale)) {
			return nil, NewValidationError("entry %d: amount %s has more than %d decimals", i+1, e.Amount, valueobject.MoneyScale)
		}
		if _, dup := seen[e.ReceiptID]; dup {
			return nil, NewValidationError("receipt %s appears more than once in the plan", e.ReceiptID)
		}
		seen[e.ReceiptID] = struct{}{}

		r, ok := receipts[e.ReceiptID]
		if !ok || r == nil {
			return nil, NewNotFoundError("receipt", e.ReceiptID)
		}
		if r.IsTerminal() {
			return nil, NewTerminalStateConflict(r.ID, r.StatusAt(now))
		}
		if r.Currency != payment.Currency {
			return nil, NewValidationError("receipt %s is billed in %s, payment is in %s", r.ID, r.Currency, payment.Currency)
		}
		if err := r.CheckPayable(e.Amount); err != nil {
			return nil, err
		}

		validated = append(validated, ValidatedEntry{
			ReceiptID:           r.ID,
			Amount:              e.Amount,
			BalanceAtValidation: r.Balance,
			StatusAtValidation:  r.StatusAt(now),
		})
		total = total.Add(e.Amount)
	}

	if total.Sub(remainder).Abs().GreaterThan(AmountEpsilon) {
		return nil, NewValidationError("plan total %s does not match the payment's unallocated amount %s",
			total.StringFixed(2), remainder.StringFixed(2))
	}

	return &ValidatedPlan{
		paymentID:   payment.ID,
		currency:    payment.Currency,
		entries:     validated,
		total:       total,
		validatedAt: now,
	}, nil
}
