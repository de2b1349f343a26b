package persistence

import (
	"context"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	domain "github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march1 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func issue(t *testing.T, student, period uuid.UUID, due time.Time, prices ...string) *domain.Receipt {
	t.Helper()
	draft := domain.ReceiptDraft{
		StudentID: student,
		PeriodID:  period,
		Concept:   "Colegiatura",
		IssueDate: march1,
		DueDate:   due,
	}
	for _, p := range prices {
		draft.Lines = append(draft.Lines, domain.LineDraft{Description: "Mensualidad", Quantity: decimal.NewFromInt(1), UnitPrice: dec(p)})
	}
	if len(prices) == 0 {
		draft.Subtotal = dec("500")
	}
	r, err := domain.IssueReceipt(draft, march1)
	require.NoError(t, err)
	return r
}

func TestGormReceiptRepository_CreateAndFind(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormReceiptRepository(db.DB)
	ctx := context.Background()

	student, period := uuid.New(), uuid.New()
	r := issue(t, student, period, march1.AddDate(0, 0, 10), "300", "150.25")
	require.NoError(t, repo.Create(ctx, r))

	got, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, dec("450.25").Equal(got.Total))
	assert.True(t, got.Total.Equal(got.Balance))
	assert.Equal(t, domain.ReceiptStatusPending, got.Status)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, 1, got.Lines[0].LineNo)
	assert.True(t, dec("150.25").Equal(got.Lines[1].Amount))
	assert.Equal(t, 1, got.Version)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	byIDs, err := repo.FindByIDs(ctx, []uuid.UUID{r.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)
	assert.Contains(t, byIDs, r.ID)
}

func TestGormReceiptRepository_Queries(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormReceiptRepository(db.DB)
	ctx := context.Background()

	student, period := uuid.New(), uuid.New()
	later := issue(t, student, period, march1.AddDate(0, 1, 0), "200")
	earlier := issue(t, student, period, march1.AddDate(0, 0, -5), "100")
	defective := issue(t, student, period, march1.AddDate(0, 0, -1))
	other := issue(t, uuid.New(), uuid.New(), march1.AddDate(0, 0, -30), "900")
	cancelled := issue(t, student, period, march1.AddDate(0, 0, -40), "50")
	require.NoError(t, cancelled.Cancel("duplicated"))
	for _, r := range []*domain.Receipt{later, earlier, defective, other, cancelled} {
		require.NoError(t, repo.Create(ctx, r))
	}

	all, err := repo.FindAll(ctx, domain.ReceiptFilter{StudentID: &student})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, cancelled.ID, all[0].ID, "ordered by due date")
	assert.Equal(t, later.ID, all[3].ID)

	limited, err := repo.FindAll(ctx, domain.ReceiptFilter{PeriodID: &period, Statuses: []domain.ReceiptStatus{domain.ReceiptStatusCancelled}, Limit: 5})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, cancelled.ID, limited[0].ID)

	defects, err := repo.FindDefective(ctx, domain.ReceiptFilter{})
	require.NoError(t, err)
	require.Len(t, defects, 1)
	assert.Equal(t, defective.ID, defects[0].ID)

	pastDue, err := repo.FindPastDue(ctx, march1)
	require.NoError(t, err)
	ids := make([]uuid.UUID, len(pastDue))
	for i, r := range pastDue {
		ids[i] = r.ID
	}
	assert.Equal(t, []uuid.UUID{other.ID, earlier.ID, defective.ID}, ids)

	totals, err := repo.SumByPeriod(ctx, period)
	require.NoError(t, err)
	assert.Equal(t, int64(4), totals.ReceiptCount)
	assert.True(t, dec("850").Equal(totals.Billed), totals.Billed.String())
	assert.True(t, dec("800").Equal(totals.Outstanding), totals.Outstanding.String())
	assert.True(t, dec("50").Equal(totals.WrittenOff), totals.WrittenOff.String())
	assert.True(t, totals.Collected.IsZero())
}

func TestGormReceiptRepository_SaveWithLock(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormReceiptRepository(db.DB)
	ctx := context.Background()

	r := issue(t, uuid.New(), uuid.New(), march1.AddDate(0, 0, 10), "300")
	require.NoError(t, repo.Create(ctx, r))

	stale, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)

	_, _, err = r.ApplyAllocation(uuid.New(), dec("120"), nil, march1)
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, r))
	assert.Equal(t, 2, r.Version)

	got, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, dec("180").Equal(got.Balance))
	assert.Equal(t, domain.ReceiptStatusPartial, got.Status)
	assert.Len(t, got.Lines, 1, "lines survive a save")

	err = repo.SaveWithLock(ctx, stale)
	assert.True(t, domain.IsConcurrencyConflict(err), "got %v", err)

	ghost := issue(t, uuid.New(), uuid.New(), march1, "1")
	assert.True(t, domain.IsNotFound(repo.SaveWithLock(ctx, ghost)))
}

func TestGormReceiptRepository_AddLinesAndDelete(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormReceiptRepository(db.DB)
	ctx := context.Background()

	r := issue(t, uuid.New(), uuid.New(), march1)
	require.NoError(t, repo.Create(ctx, r))

	added, err := r.AddRegularizationLine()
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, repo.AddLines(ctx, r.ID, r.Lines))

	got, err := repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, domain.RegularizationDescription, got.Lines[0].Description)

	require.NoError(t, repo.Delete(ctx, r.ID))
	got, err = repo.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, r.ID)))
}

func TestGormPaymentRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormPaymentRepository(db.DB)
	ctx := context.Background()

	var created []*domain.Payment
	for i, hour := range []int{9, 18, 23} {
		ref := "REF-" + string(rune('A'+i))
		p, err := domain.RegisterPayment(domain.PaymentDraft{
			PaidAt:    time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC),
			MethodID:  1,
			Amount:    dec("100.50"),
			Reference: &ref,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, p))
		created = append(created, p)
	}

	day, err := repo.FindByDateRange(ctx, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, day, 2, "end is exclusive")
	assert.Equal(t, created[0].ID, day[0].ID)
	assert.Equal(t, "REF-A", *day[0].Reference)

	p := created[0]
	require.NoError(t, p.Cancel("bounced", decimal.Zero))
	require.NoError(t, repo.SaveWithLock(ctx, p))
	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCancelled, got.Status)
	assert.Equal(t, 2, got.Version)

	got.Version = 1
	assert.True(t, domain.IsConcurrencyConflict(repo.SaveWithLock(ctx, got)))

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGormAllocationRepository(t *testing.T) {
	db := newTestDatabase(t)
	repo := NewGormAllocationRepository(db.DB)
	ctx := context.Background()

	paymentID, receiptA, receiptB := uuid.New(), uuid.New(), uuid.New()
	var ids []uuid.UUID
	for i, row := range []struct {
		receipt uuid.UUID
		amount  string
	}{{receiptA, "300"}, {receiptB, "150.25"}, {receiptA, "0.10"}} {
		a, err := domain.NewAllocation(paymentID, row.receipt, dec(row.amount), nil, march1.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, a))
		ids = append(ids, a.ID)
	}

	byPayment, err := repo.FindByPayment(ctx, paymentID)
	require.NoError(t, err)
	require.Len(t, byPayment, 3)
	assert.Equal(t, ids[0], byPayment[0].ID)

	sum, err := repo.SumByPayment(ctx, paymentID)
	require.NoError(t, err)
	assert.True(t, dec("450.35").Equal(sum), sum.String())

	sum, err = repo.SumByReceipt(ctx, receiptA)
	require.NoError(t, err)
	assert.True(t, dec("300.10").Equal(sum), sum.String())

	count, err := repo.CountByReceipt(ctx, receiptA)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.Delete(ctx, ids[2]))
	byReceipt, err := repo.FindByReceipt(ctx, receiptA)
	require.NoError(t, err)
	assert.Len(t, byReceipt, 1)

	none, err := repo.SumByReceipt(ctx, uuid.New())
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestGormTransactionScope(t *testing.T) {
	db := newTestDatabase(t)
	scope := NewGormTransactionScope(db.DB)
	ctx := context.Background()
	assert.True(t, scope.Atomic())

	r := issue(t, uuid.New(), uuid.New(), march1.AddDate(0, 0, 10), "300")
	err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		require.NoError(t, repos.ReceiptRepo().Create(ctx, r))
		a, err := domain.NewAllocation(uuid.New(), r.ID, dec("100"), nil, march1)
		require.NoError(t, err)
		require.NoError(t, repos.AllocationRepo().Create(ctx, a))
		return domain.NewConcurrencyConflict("simulated")
	})
	require.Error(t, err)

	err = scope.ExecuteReadOnly(ctx, func(repos appledger.TransactionalRepositories) error {
		got, err := repos.ReceiptRepo().FindByID(ctx, r.ID)
		require.NoError(t, err)
		assert.Nil(t, got, "rolled back")
		count, err := repos.AllocationRepo().CountByReceipt(ctx, r.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		return repos.ReceiptRepo().Create(ctx, r)
	}))
	got, err := NewGormReceiptRepository(db.DB).FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}
