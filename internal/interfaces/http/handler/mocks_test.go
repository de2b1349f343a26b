package handler

import (
	"context"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockPaymentService implements PaymentService for testing
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Register(ctx context.Context, req ledgerapp.RegisterPaymentRequest) (*ledgerapp.PaymentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) RegisterAndApply(ctx context.Context, req ledgerapp.RegisterAndApplyRequest) (*ledgerapp.ReceiptApplication, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.ReceiptApplication), args.Error(1)
}

func (m *MockPaymentService) ApplyPlan(ctx context.Context, paymentID uuid.UUID, entries []ledger.PlanEntry, appliedBy *uuid.UUID) (*ledgerapp.ApplyResult, error) {
	args := m.Called(ctx, paymentID, entries, appliedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.ApplyResult), args.Error(1)
}

func (m *MockPaymentService) GetByID(ctx context.Context, id uuid.UUID) (*ledgerapp.PaymentResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*ledgerapp.PaymentResponse, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PaymentResponse), args.Error(1)
}

func (m *MockPaymentService) Reject(ctx context.Context, id uuid.UUID, reason string) (*ledgerapp.PaymentResponse, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PaymentResponse), args.Error(1)
}

// MockReceiptService implements ReceiptService for testing
type MockReceiptService struct {
	mock.Mock
}

func (m *MockReceiptService) Issue(ctx context.Context, req ledgerapp.IssueReceiptsRequest) ([]ledgerapp.ReceiptResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.ReceiptResponse), args.Error(1)
}

func (m *MockReceiptService) List(ctx context.Context, filter ledger.ReceiptFilter) ([]ledgerapp.ReceiptResponse, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.ReceiptResponse), args.Error(1)
}

func (m *MockReceiptService) GetByID(ctx context.Context, id uuid.UUID) (*ledgerapp.ReceiptResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.ReceiptResponse), args.Error(1)
}

func (m *MockReceiptService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*ledgerapp.ReceiptResponse, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.ReceiptResponse), args.Error(1)
}

func (m *MockReceiptService) Waive(ctx context.Context, id uuid.UUID, reason string) (*ledgerapp.ReceiptResponse, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.ReceiptResponse), args.Error(1)
}

func (m *MockReceiptService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockReceiptService) Print(ctx context.Context, id uuid.UUID) (*ledgerapp.PrintedReceipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PrintedReceipt), args.Error(1)
}

// MockRepairService implements RepairService for testing
type MockRepairService struct {
	mock.Mock
}

func (m *MockRepairService) FindDefective(ctx context.Context, filter ledger.ReceiptFilter) ([]ledgerapp.ReceiptResponse, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledgerapp.ReceiptResponse), args.Error(1)
}

func (m *MockRepairService) RepairAll(ctx context.Context, filter ledger.ReceiptFilter) (*ledgerapp.RepairSummary, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.RepairSummary), args.Error(1)
}

// MockReportingService implements ReportingService for testing
type MockReportingService struct {
	mock.Mock
}

func (m *MockReportingService) CashCut(ctx context.Context, start, end time.Time) (*ledgerapp.CashCutReport, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.CashCutReport), args.Error(1)
}

func (m *MockReportingService) OverduePortfolio(ctx context.Context, asOf time.Time) (*ledgerapp.OverduePortfolio, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.OverduePortfolio), args.Error(1)
}

func (m *MockReportingService) PeriodIncome(ctx context.Context, periodID uuid.UUID) (*ledgerapp.PeriodIncomeReport, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.PeriodIncomeReport), args.Error(1)
}

func (m *MockReportingService) ArchiveCashCut(ctx context.Context, start, end time.Time) (*ledgerapp.CashCutArchive, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgerapp.CashCutArchive), args.Error(1)
}

// MockPinger implements Pinger for testing
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
