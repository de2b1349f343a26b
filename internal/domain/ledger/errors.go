package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Error codes surfaced by the ledger. The HTTP layer maps them to status codes.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeNotFound            = "NOT_FOUND"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeTerminalState       = "TERMINAL_STATE_CONFLICT"
	CodePartialApplication  = "PARTIAL_APPLICATION_FAILURE"
	CodeInvalidState        = "INVALID_STATE"
)

// NewValidationError is returned before any mutation for a rejected request
func NewValidationError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports a missing receipt, payment or allocation
func NewNotFoundError(kind string, id uuid.UUID) *shared.DomainError {
	return shared.NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", kind, id))
}

// NewConcurrencyConflict is retryable: re-read balances, re-plan, resubmit
func NewConcurrencyConflict(format string, args ...any) *shared.DomainError {
	return shared.NewRetryableError(CodeConcurrencyConflict, fmt.Sprintf(format, args...))
}

// NewTerminalStateConflict rejects any allocation against a Cancelled or Waived receipt
func NewTerminalStateConflict(receiptID uuid.UUID, status ReceiptStatus) *shared.DomainError {
	return shared.NewDomainError(CodeTerminalState,
		fmt.Sprintf("receipt %s is %s and no longer payable", receiptID, status))
}

// NewInvalidStateError rejects an operation the aggregate's state does not allow
func NewInvalidStateError(format string, args ...any) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidState, fmt.Sprintf(format, args...))
}

// HasCode reports whether err is a domain error with the given code
func HasCode(err error, code string) bool {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsValidationError reports a ValidationError
func IsValidationError(err error) bool { return HasCode(err, CodeValidation) }

// IsConcurrencyConflict reports a ConcurrencyConflict
func IsConcurrencyConflict(err error) bool { return HasCode(err, CodeConcurrencyConflict) }

// IsTerminalStateConflict reports a TerminalStateConflict
func IsTerminalStateConflict(err error) bool { return HasCode(err, CodeTerminalState) }

// IsNotFound reports a NotFound
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// ApplicationOutcome is what happened to one receipt of a failed plan
type ApplicationOutcome string

const (
	OutcomeCommitted  ApplicationOutcome = "COMMITTED"
	OutcomeRolledBack ApplicationOutcome = "ROLLED_BACK"
	OutcomeNotApplied ApplicationOutcome = "NOT_APPLIED"
)

// ReceiptOutcome reports the final state of one plan entry
type ReceiptOutcome struct {
	ReceiptID uuid.UUID          `json:"receipt_id"`
	Outcome   ApplicationOutcome `json:"outcome"`
	Error     string             `json:"error,omitempty"`
}

// PartialApplicationError is only produced when a compensating rollback could
// not undo every applied allocation. It lists per receipt what stayed
// committed so nothing is silently dropped.
type PartialApplicationError struct {
	PaymentID uuid.UUID
	Outcomes  []ReceiptOutcome
	Cause     error
}

// Error implements error
func (e *PartialApplicationError) Error() string {
	committed := make([]string, 0, len(e.Outcomes))
	for _, o := range e.Outcomes {
		if o.Outcome == OutcomeCommitted {
			committed = append(committed, o.ReceiptID.String())
		}
	}
	return fmt.Sprintf("payment %s partially applied; still committed on receipts [%s]: %v",
		e.PaymentID, strings.Join(committed, ", "), e.Cause)
}

// Unwrap exposes the domain error code and the original cause
func (e *PartialApplicationError) Unwrap() []error {
	return []error{
		shared.NewDomainError(CodePartialApplication, "payment was only partially applied"),
		e.Cause,
	}
}
