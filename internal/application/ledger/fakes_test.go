package ledger

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// memStore is an in-memory ledger that stores copies, checks versions and
// can be told to fail specific writes.
type memStore struct {
	mu          sync.Mutex
	receipts    map[uuid.UUID]*ledger.Receipt
	payments    map[uuid.UUID]*ledger.Payment
	allocations map[uuid.UUID]*ledger.Allocation
	allocOrder  []uuid.UUID

	failAllocCreate map[uuid.UUID]error // by receipt id
	failReceiptSave map[uuid.UUID]error
	failAllocDelete error
}

func newMemStore() *memStore {
	return &memStore{
		receipts:        make(map[uuid.UUID]*ledger.Receipt),
		payments:        make(map[uuid.UUID]*ledger.Payment),
		allocations:     make(map[uuid.UUID]*ledger.Allocation),
		failAllocCreate: make(map[uuid.UUID]error),
		failReceiptSave: make(map[uuid.UUID]error),
	}
}

func cloneReceipt(r *ledger.Receipt) *ledger.Receipt {
	c := *r
	c.Lines = slices.Clone(r.Lines)
	c.ClearDomainEvents()
	return &c
}

func clonePayment(p *ledger.Payment) *ledger.Payment {
	c := *p
	c.ClearDomainEvents()
	return &c
}

func cloneAllocation(a *ledger.Allocation) *ledger.Allocation {
	c := *a
	return &c
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := newMemStore()
	for id, r := range s.receipts {
		snap.receipts[id] = cloneReceipt(r)
	}
	for id, p := range s.payments {
		snap.payments[id] = clonePayment(p)
	}
	for id, a := range s.allocations {
		snap.allocations[id] = cloneAllocation(a)
	}
	snap.allocOrder = slices.Clone(s.allocOrder)
	return snap
}

func (s *memStore) restore(snap *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = snap.receipts
	s.payments = snap.payments
	s.allocations = snap.allocations
	s.allocOrder = snap.allocOrder
}

func (s *memStore) receipt(id uuid.UUID) *ledger.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneReceipt(s.receipts[id])
}

func (s *memStore) allocationsFor(receiptID uuid.UUID) []*ledger.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ledger.Allocation
	for _, id := range s.allocOrder {
		if a, ok := s.allocations[id]; ok && a.ReceiptID == receiptID {
			out = append(out, cloneAllocation(a))
		}
	}
	return out
}

type memReceiptRepo struct{ s *memStore }

func (r memReceiptRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.receipts[id]
	if !ok {
		return nil, nil
	}
	return cloneReceipt(rec), nil
}

func (r memReceiptRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*ledger.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uuid.UUID]*ledger.Receipt, len(ids))
	for _, id := range ids {
		if rec, ok := r.s.receipts[id]; ok {
			out[id] = cloneReceipt(rec)
		}
	}
	return out, nil
}

func (r memReceiptRepo) matching(filter ledger.ReceiptFilter, pred func(*ledger.Receipt) bool) []*ledger.Receipt {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.Receipt
	for _, rec := range r.s.receipts {
		if filter.StudentID != nil && rec.StudentID != *filter.StudentID {
			continue
		}
		if filter.PeriodID != nil && rec.PeriodID != *filter.PeriodID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, rec.Status) {
			continue
		}
		if pred != nil && !pred(rec) {
			continue
		}
		out = append(out, cloneReceipt(rec))
	}
	slices.SortFunc(out, func(a, b *ledger.Receipt) int { return a.DueDate.Compare(b.DueDate) })
	return out
}

func (r memReceiptRepo) FindAll(_ context.Context, filter ledger.ReceiptFilter) ([]*ledger.Receipt, error) {
	return r.matching(filter, nil), nil
}

func (r memReceiptRepo) FindDefective(_ context.Context, filter ledger.ReceiptFilter) ([]*ledger.Receipt, error) {
	return r.matching(filter, func(rec *ledger.Receipt) bool { return len(rec.Lines) == 0 }), nil
}

func (r memReceiptRepo) FindPastDue(_ context.Context, asOf time.Time) ([]*ledger.Receipt, error) {
	return r.matching(ledger.ReceiptFilter{}, func(rec *ledger.Receipt) bool {
		return !rec.IsTerminal() && rec.Balance.IsPositive() && rec.DueDate.Before(asOf)
	}), nil
}

func (r memReceiptRepo) SumByPeriod(_ context.Context, periodID uuid.UUID) (*ledger.PeriodTotals, error) {
	totals := &ledger.PeriodTotals{PeriodID: periodID}
	for _, rec := range r.matching(ledger.ReceiptFilter{PeriodID: &periodID}, nil) {
		totals.ReceiptCount++
		totals.Billed = totals.Billed.Add(rec.Total)
		totals.Collected = totals.Collected.Add(rec.Total.Sub(rec.Balance))
		if rec.IsTerminal() {
			totals.WrittenOff = totals.WrittenOff.Add(rec.Balance)
		} else {
			totals.Outstanding = totals.Outstanding.Add(rec.Balance)
		}
	}
	return totals, nil
}

func (r memReceiptRepo) Create(_ context.Context, rec *ledger.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.receipts[rec.ID] = cloneReceipt(rec)
	return nil
}

func (r memReceiptRepo) SaveWithLock(_ context.Context, rec *ledger.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failReceiptSave[rec.ID]; err != nil {
		return err
	}
	stored, ok := r.s.receipts[rec.ID]
	if !ok {
		return ledger.NewNotFoundError("receipt", rec.ID)
	}
	if stored.Version != rec.Version {
		return ledger.NewConcurrencyConflict("receipt %s was modified", rec.ID)
	}
	rec.Version++
	lines := stored.Lines
	c := cloneReceipt(rec)
	c.Lines = lines
	r.s.receipts[rec.ID] = c
	return nil
}

func (r memReceiptRepo) AddLines(_ context.Context, receiptID uuid.UUID, lines []ledger.ReceiptLine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := r.s.receipts[receiptID]
	stored.Lines = append(stored.Lines, lines...)
	return nil
}

func (r memReceiptRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.receipts, id)
	return nil
}

type memPaymentRepo struct{ s *memStore }

func (r memPaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*ledger.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return clonePayment(p), nil
}

func (r memPaymentRepo) FindByDateRange(_ context.Context, start, end time.Time) ([]*ledger.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.Payment
	for _, p := range r.s.payments {
		if !p.PaidAt.Before(start) && p.PaidAt.Before(end) {
			out = append(out, clonePayment(p))
		}
	}
	slices.SortFunc(out, func(a, b *ledger.Payment) int { return a.PaidAt.Compare(b.PaidAt) })
	return out, nil
}

func (r memPaymentRepo) Create(_ context.Context, p *ledger.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payments[p.ID] = clonePayment(p)
	return nil
}

func (r memPaymentRepo) SaveWithLock(_ context.Context, p *ledger.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.payments[p.ID]
	if !ok {
		return ledger.NewNotFoundError("payment", p.ID)
	}
	if stored.Version != p.Version {
		return ledger.NewConcurrencyConflict("payment %s was modified", p.ID)
	}
	p.Version++
	r.s.payments[p.ID] = clonePayment(p)
	return nil
}

type memAllocationRepo struct{ s *memStore }

func (r memAllocationRepo) Create(_ context.Context, a *ledger.Allocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failAllocCreate[a.ReceiptID]; err != nil {
		return err
	}
	r.s.allocations[a.ID] = cloneAllocation(a)
	r.s.allocOrder = append(r.s.allocOrder, a.ID)
	return nil
}

func (r memAllocationRepo) find(pred func(*ledger.Allocation) bool) []*ledger.Allocation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*ledger.Allocation
	for _, id := range r.s.allocOrder {
		if a, ok := r.s.allocations[id]; ok && pred(a) {
			out = append(out, cloneAllocation(a))
		}
	}
	return out
}

func (r memAllocationRepo) FindByPayment(_ context.Context, paymentID uuid.UUID) ([]*ledger.Allocation, error) {
	return r.find(func(a *ledger.Allocation) bool { return a.PaymentID == paymentID }), nil
}

func (r memAllocationRepo) FindByReceipt(_ context.Context, receiptID uuid.UUID) ([]*ledger.Allocation, error) {
	return r.find(func(a *ledger.Allocation) bool { return a.ReceiptID == receiptID }), nil
}

func (r memAllocationRepo) SumByPayment(ctx context.Context, paymentID uuid.UUID) (decimal.Decimal, error) {
	allocs, _ := r.FindByPayment(ctx, paymentID)
	return ledger.SumAllocations(allocs), nil
}

func (r memAllocationRepo) SumByReceipt(ctx context.Context, receiptID uuid.UUID) (decimal.Decimal, error) {
	allocs, _ := r.FindByReceipt(ctx, receiptID)
	return ledger.SumAllocations(allocs), nil
}

func (r memAllocationRepo) CountByReceipt(ctx context.Context, receiptID uuid.UUID) (int64, error) {
	allocs, _ := r.FindByReceipt(ctx, receiptID)
	return int64(len(allocs)), nil
}

func (r memAllocationRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAllocDelete != nil {
		return r.s.failAllocDelete
	}
	delete(r.s.allocations, id)
	return nil
}

// atomicScope restores a snapshot of the store when fn fails. It is not
// safe for concurrent plans.
type atomicScope struct {
	store *memStore
	repos *NoOpTransactionScope
}

func (a *atomicScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	snap := a.store.snapshot()
	if err := fn(a.repos); err != nil {
		a.store.restore(snap)
		return err
	}
	return nil
}

func (a *atomicScope) ExecuteReadOnly(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(a.repos)
}

func (a *atomicScope) Atomic() bool { return true }

// testLocker is a per-key semaphore
type testLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newTestLocker() *testLocker {
	return &testLocker{held: make(map[string]chan struct{})}
}

func (l *testLocker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	ch, ok := l.held[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.held[key] = ch
	}
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-timer.C:
		return nil, ErrLockTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// hookLocker calls onAcquire with every key it hands out
type hookLocker struct {
	*testLocker
	onAcquire func(key string)
}

func (l hookLocker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	unlock, err := l.testLocker.Lock(ctx, key, timeout)
	if err == nil {
		l.onAcquire(key)
	}
	return unlock, err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	store    *memStore
	locker   *testLocker
	events   *recordingPublisher
	scope    TransactionScope
	engine   *AllocationEngine
	payments *PaymentService
	receipts *ReceiptService
	repair   *RepairService
	reports  *ReportingService
}

func newFixture(t *testing.T, atomic bool) *fixture {
	t.Helper()
	store := newMemStore()
	receiptRepo := memReceiptRepo{store}
	paymentRepo := memPaymentRepo{store}
	allocationRepo := memAllocationRepo{store}
	noop := NewNoOpTransactionScope(receiptRepo, paymentRepo, allocationRepo)

	var scope TransactionScope = noop
	if atomic {
		scope = &atomicScope{store: store, repos: noop}
	}
	locker := newTestLocker()
	events := &recordingPublisher{}

	engine := NewAllocationEngine(receiptRepo, paymentRepo, allocationRepo, scope, locker,
		EngineConfig{LockTimeout: 200 * time.Millisecond, Language: "en"}, nil)
	engine.SetEventPublisher(events)

	payments := NewPaymentService(paymentRepo, allocationRepo, engine, locker, nil)
	payments.SetEventPublisher(events)
	receipts := NewReceiptService(receiptRepo, allocationRepo, scope, locker, 200*time.Millisecond, nil)
	receipts.SetEventPublisher(events)
	repair := NewRepairService(receiptRepo, scope, locker, 200*time.Millisecond, "es-MX", nil)
	repair.SetEventPublisher(events)

	return &fixture{
		store:    store,
		locker:   locker,
		events:   events,
		scope:    scope,
		engine:   engine,
		payments: payments,
		receipts: receipts,
		repair:   repair,
		reports:  NewReportingService(scope, "MXN", nil),
	}
}

func (f *fixture) seedReceipt(t *testing.T, total string) *ledger.Receipt {
	t.Helper()
	r, err := ledger.IssueReceipt(ledger.ReceiptDraft{
		StudentID: uuid.New(),
		PeriodID:  uuid.New(),
		Concept:   "Tuition",
		DueDate:   ledger.EndOfDay(time.Now().AddDate(0, 0, 30)),
		Lines: []ledger.LineDraft{
			{Description: "Tuition", Quantity: decimal.NewFromInt(1), UnitPrice: dec(total)},
		},
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, memReceiptRepo{f.store}.Create(context.Background(), r))
	return r
}

func (f *fixture) seedPayment(t *testing.T, amount string) *ledger.Payment {
	t.Helper()
	resp, err := f.payments.Register(context.Background(), RegisterPaymentRequest{
		PaidAt:   time.Now(),
		MethodID: ledger.PaymentMethodCash,
		Amount:   dec(amount),
	})
	require.NoError(t, err)
	p, err := memPaymentRepo{f.store}.FindByID(context.Background(), resp.ID)
	require.NoError(t, err)
	return p
}

// assertLedgerConsistent checks balance == total - allocations and status derivation
func (f *fixture) assertLedgerConsistent(t *testing.T, receiptIDs ...uuid.UUID) {
	t.Helper()
	now := time.Now()
	for _, id := range receiptIDs {
		r := f.store.receipt(id)
		sum := ledger.SumAllocations(f.store.allocationsFor(id))
		require.False(t, r.Balance.IsNegative(), "receipt %s balance negative", id)
		require.True(t, r.Total.Sub(sum).Equal(r.Balance),
			"receipt %s: total %s - allocations %s != balance %s", id, r.Total, sum, r.Balance)
		require.Equal(t, ledger.DeriveStatus(r.Total, r.Balance, r.DueDate, r.AdminFlag, now), r.StatusAt(now))
		if r.Balance.IsZero() && !r.IsTerminal() {
			require.Equal(t, ledger.ReceiptStatusPaid, r.StatusAt(now))
		}
	}
}
