package handler

import (
	"net/http"
	"testing"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var reportNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func setupReportRouter(svc ReportingService) *gin.Engine {
	h := NewReportHandler(svc)
	h.now = func() time.Time { return reportNow }
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/pagos/corte-caja", h.CashCut)
	r.POST("/reportes/corte-caja/archivar", h.ArchiveCashCut)
	r.GET("/reportes/cartera-vencida", h.OverduePortfolio)
	r.GET("/reportes/ingreso-periodo", h.PeriodIncome)
	return r
}

func TestReportHandler_CashCut(t *testing.T) {
	svc := new(MockReportingService)
	r := setupReportRouter(svc)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	cancelled := uuid.New()

	svc.On("CashCut", mock.Anything, start, end).Return(&ledgerapp.CashCutReport{
		Start:    start,
		End:      end,
		Currency: "MXN",
		Groups: []ledgerapp.CashCutGroup{
			{MethodID: ledger.PaymentMethodCash, MethodName: "Cash", Count: 2, Total: decimal.RequireFromString("1500")},
			{MethodID: ledger.PaymentMethodCard, MethodName: "Card", Count: 1, Total: decimal.RequireFromString("99.5")},
		},
		PaymentCount: 3,
		GrandTotal:   decimal.RequireFromString("1599.5"),
		Payments:     []ledgerapp.PaymentSummary{},
		Voided: []ledgerapp.PaymentSummary{
			{ID: cancelled, PaidAt: start.Add(time.Hour), MethodID: ledger.PaymentMethodCheck, Amount: decimal.NewFromInt(300), Status: ledger.PaymentStatusRejected},
		},
		VoidedCount: 1,
		VoidedTotal: decimal.NewFromInt(300),
		GeneratedAt: reportNow,
	}, nil)

	// a plain date as fin covers that whole day
	w := perform(r, http.MethodGet, "/pagos/corte-caja?inicio=2026-03-01&fin=2026-03-01", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, `"granTotal":1599.50`)
	assert.Contains(t, body, `"totalPagos":3`)
	assert.Contains(t, body, `"medioPago":"Card","cantidad":1,"total":99.50`)
	assert.Contains(t, body, `"totalCancelados":1`)
	assert.Contains(t, body, `"montoCancelado":300.00`)
	assert.Contains(t, body, `"estatus":"REJECTED"`)
	svc.AssertExpectations(t)
}

func TestReportHandler_CashCut_RFC3339Window(t *testing.T) {
	svc := new(MockReportingService)
	r := setupReportRouter(svc)
	start := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	svc.On("CashCut", mock.Anything, start, end).Return(&ledgerapp.CashCutReport{Start: start, End: end}, nil)

	w := perform(r, http.MethodGet, "/pagos/corte-caja?inicio=2026-03-01T00:00:00-06:00&fin=2026-03-01T18:00:00Z", "")

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestReportHandler_CashCut_BadWindow(t *testing.T) {
	svc := new(MockReportingService)
	r := setupReportRouter(svc)
	svc.On("CashCut", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, ledger.NewValidationError("window start must be before its end"))

	for _, q := range []string{"", "?inicio=2026-03-01", "?inicio=yesterday&fin=2026-03-01"} {
		w := perform(r, http.MethodGet, "/pagos/corte-caja"+q, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
	svc.AssertNotCalled(t, "CashCut", mock.Anything, mock.Anything, mock.Anything)

	w := perform(r, http.MethodGet, "/pagos/corte-caja?inicio=2026-03-05&fin=2026-03-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "window start")
}

func TestReportHandler_ArchiveCashCut(t *testing.T) {
	svc := new(MockReportingService)
	r := setupReportRouter(svc)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	svc.On("ArchiveCashCut", mock.Anything, start, end).Return(&ledgerapp.CashCutArchive{
		Key:      "cash-cuts/2026/03/20260301T000000Z_20260302T000000Z.csv",
		Location: "s3://ledger-reports/cash-cuts/2026/03/20260301T000000Z_20260302T000000Z.csv",
		Size:     512,
		Start:    start,
		End:      end,
	}, nil)

	w := perform(r, http.MethodPost, "/reportes/corte-caja/archivar?inicio=2026-03-01&fin=2026-03-01", "")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"ubicacion":"s3://ledger-reports/`)
	assert.Contains(t, w.Body.String(), `"tamano":512`)
}

func TestReportHandler_OverduePortfolio(t *testing.T) {
	svc := new(MockReportingService)
	r := setupReportRouter(svc)
	receiptID := uuid.New()
	asOf := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	svc.On("OverduePortfolio", mock.Anything, reportNow).Return(&ledgerapp.OverduePortfolio{AsOf: reportNow}, nil)
	svc.On("OverduePortfolio", mock.Anything, asOf).Return(&ledgerapp.OverduePortfolio{
		AsOf: asOf,
		Entries: []ledgerapp.OverdueEntry{{
			ReceiptID: receiptID, Concept: "Colegiatura", Total: decimal.NewFromInt(2500),
			Balance: decimal.NewFromInt(1000), DaysOverdue: 21, Status: ledger.ReceiptStatusOverdue,
		}},
		ReceiptCount: 1,
		TotalBalance: decimal.NewFromInt(1000),
	}, nil)

	w := perform(r, http.MethodGet, "/reportes/cartera-vencida", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalRecibos":0`)

	w = perform(r, http.MethodGet, "/reportes/cartera-vencida?fecha=2026-04-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"diasVencido":21`)
	assert.Contains(t, body, `"saldoTotal":1000.00`)
	assert.Contains(t, body, `"estatus":"OVERDUE"`)

	w = perform(r, http.MethodGet, "/reportes/cartera-vencida?fecha=abril", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestReportHandler_PeriodIncome(t *testing.T) {
	svc := new(MockReportingService)
	r := setupReportRouter(svc)
	periodID := uuid.New()
	svc.On("PeriodIncome", mock.Anything, periodID).Return(&ledgerapp.PeriodIncomeReport{
		PeriodID:     periodID,
		ReceiptCount: 4,
		Billed:       decimal.NewFromInt(10000),
		Income:       decimal.NewFromInt(6500),
		Outstanding:  decimal.NewFromInt(3000),
		WrittenOff:   decimal.NewFromInt(500),
	}, nil)

	w := perform(r, http.MethodGet, "/reportes/ingreso-periodo?idPeriodo="+periodID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{
		"idPeriodo":"`+periodID.String()+`",
		"totalRecibos":4,
		"facturado":10000.00,
		"ingreso":6500.00,
		"pendiente":3000.00,
		"condonado":500.00
	}}`, w.Body.String())

	w = perform(r, http.MethodGet, "/reportes/ingreso-periodo", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
