package ledger

import (
	"context"

	"github.com/erp/ledger/internal/domain/ledger"
)

// TransactionScope provides transactional access to the ledger repositories.
// When a function is executed within a transaction scope, all repository
// operations are part of the same unit of work.
type TransactionScope interface {
	// Execute runs fn within a read-write unit of work. If fn returns an
	// error the unit is rolled back, otherwise it is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
	// ExecuteReadOnly runs fn on a single consistent snapshot
	ExecuteReadOnly(ctx context.Context, fn func(repos TransactionalRepositories) error) error
	// Atomic reports whether Execute discards every write when fn fails.
	// Callers compensate their own writes on non-atomic scopes.
	Atomic() bool
}

// TransactionalRepositories provides access to the repositories within a unit of work.
// All repositories returned share the same underlying transaction.
type TransactionalRepositories interface {
	ReceiptRepo() ledger.ReceiptRepository
	PaymentRepo() ledger.PaymentRepository
	AllocationRepo() ledger.AllocationRepository
}

// NoOpTransactionScope runs functions directly against the given repositories.
// Writes are not rolled back on error.
type NoOpTransactionScope struct {
	receiptRepo    ledger.ReceiptRepository
	paymentRepo    ledger.PaymentRepository
	allocationRepo ledger.AllocationRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	receiptRepo ledger.ReceiptRepository,
	paymentRepo ledger.PaymentRepository,
	allocationRepo ledger.AllocationRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		receiptRepo:    receiptRepo,
		paymentRepo:    paymentRepo,
		allocationRepo: allocationRepo,
	}
}

// Execute runs the function directly without transaction support.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// ExecuteReadOnly runs the function directly without snapshot isolation.
func (s *NoOpTransactionScope) ExecuteReadOnly(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Atomic is always false
func (s *NoOpTransactionScope) Atomic() bool { return false }

// ReceiptRepo returns the receipt repository.
func (s *NoOpTransactionScope) ReceiptRepo() ledger.ReceiptRepository { return s.receiptRepo }

// PaymentRepo returns the payment repository.
func (s *NoOpTransactionScope) PaymentRepo() ledger.PaymentRepository { return s.paymentRepo }

// AllocationRepo returns the allocation repository.
func (s *NoOpTransactionScope) AllocationRepo() ledger.AllocationRepository { return s.allocationRepo }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
