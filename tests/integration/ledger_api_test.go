package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issueViaAPI(t *testing.T, engine *gin.Engine, student, period uuid.UUID, amounts ...string) []handler.ReceiptDTO {
	t.Helper()

	recibos := make([]gin.H, len(amounts))
	for i, amount := range amounts {
		recibos[i] = gin.H{
			"idEstudiante":     student,
			"idPeriodo":        period,
			"concepto":         fmt.Sprintf("Colegiatura %d", i+1),
			"fechaVencimiento": nextWeek().Format(time.RFC3339),
			"detalles": []gin.H{
				{"descripcion": "Colegiatura", "cantidad": 1, "precioUnitario": amount},
			},
		}
	}
	w := testutil.PerformJSON(t, engine, http.MethodPost, "/api/v1/recibos/generar", gin.H{"recibos": recibos}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return testutil.DecodeData[[]handler.ReceiptDTO](t, w)
}

func TestLedgerAPI_PaymentDistribution(t *testing.T) {
	tdb := NewSharedTestDB(t)
	s := newLedgerStack(t, tdb)
	student, period := uuid.New(), uuid.New()

	receipts := issueViaAPI(t, s.api, student, period, "1000.00", "500.00")
	require.Len(t, receipts, 2)
	assert.Equal(t, "PENDING", receipts[0].Estatus)
	assert.Equal(t, "1000.00", receipts[0].Saldo.String())

	w := testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos", gin.H{
		"fechaPagoUtc": time.Now().UTC().Format(time.RFC3339),
		"idMedioPago":  1,
		"monto":        "1200.00",
		"referencia":   "CAJA-001",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	payment := testutil.DecodeData[handler.PaymentDTO](t, w)
	assert.Equal(t, "CONFIRMED", payment.Estatus)
	assert.Equal(t, "1200.00", payment.Remanente.String())

	w = testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos/aplicar", gin.H{
		"idPago": payment.IDPago,
		"aplicaciones": []gin.H{
			{"idReciboDetalle": receipts[0].IDRecibo, "monto": "1000.00"},
			{"idReciboDetalle": receipts[1].IDRecibo, "monto": "200.00"},
		},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := testutil.DecodeData[handler.ApplyResultDTO](t, w)
	require.Len(t, result.Aplicaciones, 2)
	assert.True(t, result.Aplicaciones[0].ReciboPagadoCompletamente)
	assert.Equal(t, "PAID", result.Aplicaciones[0].EstatusReciboNuevo)
	assert.Equal(t, "300.00", result.Aplicaciones[1].SaldoNuevo.String())
	assert.Equal(t, "PARTIAL", result.Aplicaciones[1].EstatusReciboNuevo)
	assert.Equal(t, "0.00", result.Remanente.String())

	w = testutil.PerformJSON(t, s.api, http.MethodGet, "/api/v1/recibos/"+receipts[1].IDRecibo.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	partial := testutil.DecodeData[handler.ReceiptDTO](t, w)
	assert.Equal(t, "300.00", partial.Saldo.String())
	assert.Equal(t, "PARTIAL", partial.Estatus)
	require.Len(t, partial.Aplicaciones, 1)

	w = testutil.PerformJSON(t, s.api, http.MethodGet, "/api/v1/recibos?idEstudiante="+student.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := testutil.DecodeEnvelope(t, w)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 2, env.Meta.Total)

	w = testutil.PerformJSON(t, s.api, http.MethodGet, "/api/v1/pagos/"+payment.IDPago.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored := testutil.DecodeData[handler.PaymentDTO](t, w)
	assert.Equal(t, "1200.00", stored.MontoAplicado.String())
	assert.Len(t, stored.Aplicaciones, 2)
}

func TestLedgerAPI_RejectedDistribution(t *testing.T) {
	tdb := NewSharedTestDB(t)
	s := newLedgerStack(t, tdb)

	receipts := issueViaAPI(t, s.api, uuid.New(), uuid.New(), "100.00")
	payment := s.register(t, "150.00", time.Now().UTC())

	w := testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos/aplicar", gin.H{
		"idPago": payment.ID,
		"aplicaciones": []gin.H{
			{"idReciboDetalle": receipts[0].IDRecibo, "monto": "150.00"},
		},
	}, nil)
	testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "ERR_VALIDATION")
	assert.Zero(t, tdb.Count("allocations", ""))

	w = testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos/aplicar", gin.H{
		"idPago": payment.ID,
		"aplicaciones": []gin.H{
			{"idReciboDetalle": uuid.New(), "monto": "150.00"},
		},
	}, nil)
	testutil.AssertErrorResponse(t, w, http.StatusNotFound, "ERR_NOT_FOUND")

	w = testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos/aplicar", `{"idPago": "nope"`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/recibos/"+receipts[0].IDRecibo.String()+"/cancelar",
		gin.H{"motivo": "Baja del alumno"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos/registrar-y-aplicar", gin.H{
		"idRecibo":    receipts[0].IDRecibo,
		"idMedioPago": 1,
		"monto":       "100.00",
	}, nil)
	testutil.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, "ERR_TERMINAL_STATE")
	assert.EqualValues(t, 1, tdb.Count("payments", ""), "the rejected payment is not recorded")
}

func TestLedgerAPI_IdempotentRegistration(t *testing.T) {
	tdb := NewSharedTestDB(t)
	s := newLedgerStack(t, tdb)

	receipts := issueViaAPI(t, s.api, uuid.New(), uuid.New(), "250.00")
	body := gin.H{
		"idRecibo":    receipts[0].IDRecibo,
		"idMedioPago": 3,
		"monto":       "250.00",
	}
	headers := map[string]string{middleware.IdempotencyKeyHeader: "caja-7-ticket-1182"}

	first := testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos/registrar-y-aplicar", body, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos/registrar-y-aplicar", body, headers)
	require.Equal(t, http.StatusCreated, replay.Code, replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get(middleware.IdempotencyReplayedHeader))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	assert.EqualValues(t, 1, tdb.Count("payments", ""))
	assert.EqualValues(t, 1, tdb.Count("allocations", ""))

	body["monto"] = "200.00"
	reused := testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/pagos/registrar-y-aplicar", body, headers)
	testutil.AssertErrorResponse(t, reused, http.StatusUnprocessableEntity, "ERR_IDEMPOTENCY_KEY_REUSED")
}

func TestLedgerAPI_RepairAndReports(t *testing.T) {
	tdb := NewSharedTestDB(t)
	s := newLedgerStack(t, tdb)
	student, period := uuid.New(), uuid.New()

	w := testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/recibos/generar", gin.H{
		"recibos": []gin.H{{
			"idEstudiante":     student,
			"idPeriodo":        period,
			"concepto":         "Inscripcion",
			"fechaVencimiento": time.Now().UTC().Add(-72 * time.Hour).Format(time.RFC3339),
			"subtotal":         "900.00",
		}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.PerformJSON(t, s.api, http.MethodGet, "/api/v1/recibos/defectuosos?idPeriodo="+period.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, testutil.DecodeData[[]handler.ReceiptDTO](t, w), 1)

	w = testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/recibos/reparar?idPeriodo="+period.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	repaired := testutil.DecodeData[handler.RepairResultDTO](t, w)
	assert.Equal(t, 1, repaired.Reparados)
	assert.NotEmpty(t, repaired.Mensaje)

	w = testutil.PerformJSON(t, s.api, http.MethodGet, "/api/v1/reportes/cartera-vencida", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	portfolio := testutil.DecodeData[handler.OverduePortfolioDTO](t, w)
	require.Equal(t, 1, portfolio.TotalRecibos)
	assert.Equal(t, "OVERDUE", portfolio.Recibos[0].Estatus)
	assert.Equal(t, "900.00", portfolio.SaldoTotal.String())

	w = testutil.PerformJSON(t, s.api, http.MethodGet, "/api/v1/reportes/ingreso-periodo?idPeriodo="+period.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	income := testutil.DecodeData[handler.PeriodIncomeDTO](t, w)
	assert.EqualValues(t, 1, income.TotalRecibos)
	assert.Equal(t, "900.00", income.Facturado.String())
	assert.Equal(t, "0.00", income.Ingreso.String())

	s.register(t, "75.50", time.Now().UTC().Add(-time.Hour))
	// date-only fin covers the whole day
	now := time.Now().UTC()
	inicio, fin := now.Add(-time.Hour).Format(time.DateOnly), now.Format(time.DateOnly)
	w = testutil.PerformJSON(t, s.api, http.MethodGet, "/api/v1/pagos/corte-caja?inicio="+inicio+"&fin="+fin, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cut := testutil.DecodeData[handler.CashCutDTO](t, w)
	assert.Equal(t, 1, cut.TotalPagos)
	assert.Equal(t, "75.50", cut.GranTotal.String())
}

func TestLedgerAPI_AdminRoutesRequireRole(t *testing.T) {
	tdb := NewSharedTestDB(t)
	s := newLedgerStack(t, tdb)
	cashier := s.newHTTPEngine(middleware.RoleCashier)

	receipts := issueViaAPI(t, cashier, uuid.New(), uuid.New(), "100.00")

	w := testutil.PerformJSON(t, cashier, http.MethodPost, "/api/v1/recibos/"+receipts[0].IDRecibo.String()+"/condonar",
		gin.H{"motivo": "Beca"}, nil)
	testutil.AssertErrorResponse(t, w, http.StatusForbidden, "ERR_FORBIDDEN")

	w = testutil.PerformJSON(t, s.api, http.MethodPost, "/api/v1/recibos/"+receipts[0].IDRecibo.String()+"/condonar",
		gin.H{"motivo": "Beca"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "WAIVED", testutil.DecodeData[handler.ReceiptDTO](t, w).Estatus)
}
