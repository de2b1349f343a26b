package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ArchiveStore keeps rendered reports
type ArchiveStore interface {
	// Put stores body under key and returns where it can be fetched
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ReportingService serves the read-side aggregations over committed state
type ReportingService struct {
	txScope  TransactionScope
	archive  ArchiveStore
	currency string
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportingService creates a new ReportingService
func NewReportingService(txScope TransactionScope, currency string, logger *zap.Logger) *ReportingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportingService{
		txScope:  txScope,
		currency: currency,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetArchiveStore enables ArchiveCashCut
func (s *ReportingService) SetArchiveStore(store ArchiveStore) {
	s.archive = store
}

// CashCut summarizes payments dated in [start, end). Only confirmed payments
// count toward the totals; voided ones are listed apart.
func (s *ReportingService) CashCut(ctx context.Context, start, end time.Time) (*CashCutReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "cash_cut")
	defer span.End()

	if start.IsZero() || end.IsZero() {
		return nil, ledger.NewValidationError("cash cut requires start and end")
	}
	if !start.Before(end) {
		return nil, ledger.NewValidationError("cash cut start %s must be before end %s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	var payments []*ledger.Payment
	err := s.txScope.ExecuteReadOnly(ctx, func(repos TransactionalRepositories) error {
		var err error
		payments, err = repos.PaymentRepo().FindByDateRange(ctx, start.UTC(), end.UTC())
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}

	report := &CashCutReport{
		Start:       start.UTC(),
		End:         end.UTC(),
		Currency:    s.currency,
		GrandTotal:  decimal.Zero,
		VoidedTotal: decimal.Zero,
		Groups:      make([]CashCutGroup, 0),
		Payments:    make([]PaymentSummary, 0, len(payments)),
		Voided:      make([]PaymentSummary, 0),
		GeneratedAt: s.now(),
	}
	groups := make(map[int]*CashCutGroup)
	for _, p := range payments {
		if p.Status != ledger.PaymentStatusConfirmed {
			report.Voided = append(report.Voided, toPaymentSummary(p))
			report.VoidedCount++
			report.VoidedTotal = report.VoidedTotal.Add(p.Amount)
			continue
		}
		report.Payments = append(report.Payments, toPaymentSummary(p))
		g, ok := groups[p.MethodID]
		if !ok {
			g = &CashCutGroup{MethodID: p.MethodID, MethodName: ledger.PaymentMethodName(p.MethodID), Total: decimal.Zero}
			groups[p.MethodID] = g
		}
		g.Count++
		g.Total = g.Total.Add(p.Amount)
		report.PaymentCount++
		report.GrandTotal = report.GrandTotal.Add(p.Amount)
	}
	for _, g := range groups {
		report.Groups = append(report.Groups, *g)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return report.Groups[i].MethodID < report.Groups[j].MethodID
	})

	telemetry.SetAttributes(span, "payments", report.PaymentCount, "grand_total", report.GrandTotal.String())
	return report, nil
}

// OverduePortfolio lists outstanding receipts whose due date is before asOf
func (s *ReportingService) OverduePortfolio(ctx context.Context, asOf time.Time) (*OverduePortfolio, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "overdue_portfolio")
	defer span.End()

	if asOf.IsZero() {
		return nil, ledger.NewValidationError("overdue portfolio requires an as-of date")
	}

	var receipts []*ledger.Receipt
	err := s.txScope.ExecuteReadOnly(ctx, func(repos TransactionalRepositories) error {
		var err error
		receipts, err = repos.ReceiptRepo().FindPastDue(ctx, asOf.UTC())
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to read past due receipts: %w", err)
	}

	report := &OverduePortfolio{
		AsOf:         asOf.UTC(),
		Entries:      make([]OverdueEntry, 0, len(receipts)),
		TotalBalance: decimal.Zero,
	}
	for _, r := range receipts {
		status := r.StatusAt(asOf)
		if !status.IsOutstanding() || !r.Balance.IsPositive() || !r.DueDate.Before(asOf) {
			continue
		}
		report.Entries = append(report.Entries, OverdueEntry{
			ReceiptID:   r.ID,
			Folio:       r.Folio,
			StudentID:   r.StudentID,
			PeriodID:    r.PeriodID,
			Concept:     r.Concept,
			DueDate:     r.DueDate,
			Total:       r.Total,
			Balance:     r.Balance,
			DaysOverdue: r.DaysOverdue(asOf),
			Status:      status,
		})
		report.TotalBalance = report.TotalBalance.Add(r.Balance)
	}
	sort.SliceStable(report.Entries, func(i, j int) bool {
		return report.Entries[i].DueDate.Before(report.Entries[j].DueDate)
	})
	report.ReceiptCount = len(report.Entries)
	return report, nil
}

// PeriodIncome aggregates what was billed and collected for one period
func (s *ReportingService) PeriodIncome(ctx context.Context, periodID uuid.UUID) (*PeriodIncomeReport, error) {
	if periodID == uuid.Nil {
		return nil, ledger.NewValidationError("period id is required")
	}

	var totals *ledger.PeriodTotals
	err := s.txScope.ExecuteReadOnly(ctx, func(repos TransactionalRepositories) error {
		var err error
		totals, err = repos.ReceiptRepo().SumByPeriod(ctx, periodID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate period: %w", err)
	}
	return &PeriodIncomeReport{
		PeriodID:     periodID,
		ReceiptCount: totals.ReceiptCount,
		Billed:       totals.Billed,
		Income:       totals.Collected,
		Outstanding:  totals.Outstanding,
		WrittenOff:   totals.WrittenOff,
	}, nil
}

// ArchiveCashCut renders the cash cut for [start, end) as CSV and stores it
func (s *ReportingService) ArchiveCashCut(ctx context.Context, start, end time.Time) (*CashCutArchive, error) {
	if s.archive == nil {
		return nil, ledger.NewInvalidStateError("report archive is not configured")
	}
	report, err := s.CashCut(ctx, start, end)
	if err != nil {
		return nil, err
	}
	body, err := RenderCashCutCSV(report)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("cash-cuts/%s/%s_%s.csv",
		report.Start.Format("2006/01"),
		report.Start.Format("20060102T150405Z"),
		report.End.Format("20060102T150405Z"),
	)
	location, err := s.archive.Put(ctx, key, body, "text/csv")
	if err != nil {
		return nil, fmt.Errorf("failed to archive cash cut: %w", err)
	}
	s.logger.Info("Cash cut archived", zap.String("key", key), zap.Int("bytes", len(body)))
	return &CashCutArchive{Key: key, Location: location, Size: len(body), Start: report.Start, End: report.End}, nil
}

// RenderCashCutCSV writes one row per payment followed by per-method totals
func RenderCashCutCSV(report *CashCutReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{{"payment_id", "paid_at", "method", "amount", "status", "reference"}}
	appendPayment := func(p PaymentSummary) {
		ref := ""
		if p.Reference != nil {
			ref = *p.Reference
		}
		rows = append(rows, []string{
			p.ID.String(),
			p.PaidAt.Format(time.RFC3339),
			ledger.PaymentMethodName(p.MethodID),
			p.Amount.StringFixed(2),
			string(p.Status),
			ref,
		})
	}
	for _, p := range report.Payments {
		appendPayment(p)
	}
	for _, p := range report.Voided {
		appendPayment(p)
	}
	rows = append(rows, []string{})
	rows = append(rows, []string{"method", "count", "total"})
	for _, g := range report.Groups {
		rows = append(rows, []string{g.MethodName, strconv.Itoa(g.Count), g.Total.StringFixed(2)})
	}
	rows = append(rows, []string{"TOTAL", strconv.Itoa(report.PaymentCount), report.GrandTotal.StringFixed(2)})

	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to render cash cut: %w", err)
	}
	return buf.Bytes(), nil
}
