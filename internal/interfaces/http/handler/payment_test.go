package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var operatorID = uuid.MustParse("7d1c2d8e-3f3a-4a44-9a5e-1b0c7e0f6a10")

func withOperator(c *gin.Context) {
	c.Set(middleware.JWTOperatorIDKey, operatorID)
}

func setupPaymentRouter(svc PaymentService) (*PaymentHandler, *gin.Engine) {
	h := NewPaymentHandler(svc)
	h.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.Use(middleware.RequestID(), withOperator)
	r.POST("/pagos", h.Register)
	r.POST("/pagos/registrar-y-aplicar", h.RegisterAndApply)
	r.POST("/pagos/aplicar", h.Apply)
	r.GET("/pagos/:id", h.GetByID)
	r.POST("/pagos/:id/cancelar", h.Cancel)
	r.POST("/pagos/:id/rechazar", h.Reject)
	return h, r
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func samplePayment(id uuid.UUID, amount string) *ledgerapp.PaymentResponse {
	amt := decimal.RequireFromString(amount)
	return &ledgerapp.PaymentResponse{
		ID:           id,
		PaidAt:       time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC),
		MethodID:     ledger.PaymentMethodCash,
		MethodName:   ledger.PaymentMethodName(ledger.PaymentMethodCash),
		Amount:       amt,
		Currency:     "MXN",
		Status:       ledger.PaymentStatusConfirmed,
		RegisteredBy: &operatorID,
		Allocated:    decimal.Zero,
		Remainder:    amt,
		Allocations:  []ledgerapp.AllocationResponse{},
		CreatedAt:    time.Date(2026, 3, 1, 15, 0, 1, 0, time.UTC),
	}
}

func TestPaymentHandler_Register(t *testing.T) {
	svc := new(MockPaymentService)
	_, r := setupPaymentRouter(svc)
	paymentID := uuid.New()

	svc.On("Register", mock.Anything, mock.MatchedBy(func(req ledgerapp.RegisterPaymentRequest) bool {
		return req.Amount.Equal(decimal.RequireFromString("1500")) &&
			req.MethodID == 1 &&
			req.Currency == "MXN" &&
			req.PaidAt.Equal(time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)) &&
			req.RegisteredBy != nil && *req.RegisteredBy == operatorID &&
			*req.Reference == "caja-1"
	})).Return(samplePayment(paymentID, "1500"), nil)

	w := perform(r, http.MethodPost, "/pagos",
		`{"fechaPagoUtc":"2026-03-01T15:00:00Z","idMedioPago":1,"monto":1500,"moneda":"MXN","referencia":"caja-1"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, `"idPago":"`+paymentID.String()+`"`)
	assert.Contains(t, body, `"monto":1500.00`)
	assert.Contains(t, body, `"remanente":1500.00`)
	assert.Contains(t, body, `"estatus":"CONFIRMED"`)
	assert.Contains(t, body, `"medioPago":"`)
	svc.AssertExpectations(t)
}

func TestPaymentHandler_Register_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"zero amount", `{"fechaPagoUtc":"2026-03-01T15:00:00Z","idMedioPago":1,"monto":0}`, "monto"},
		{"negative amount", `{"fechaPagoUtc":"2026-03-01T15:00:00Z","idMedioPago":1,"monto":-5}`, "monto"},
		{"unknown method", `{"fechaPagoUtc":"2026-03-01T15:00:00Z","idMedioPago":9,"monto":10}`, "idMedioPago"},
		{"bad currency", `{"fechaPagoUtc":"2026-03-01T15:00:00Z","idMedioPago":1,"monto":10,"moneda":"PESOS"}`, "moneda"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPaymentService)
			_, r := setupPaymentRouter(svc)

			w := perform(r, http.MethodPost, "/pagos", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Details)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
			svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		})
	}
}

func TestPaymentHandler_Register_CurrencyMismatch(t *testing.T) {
	svc := new(MockPaymentService)
	_, r := setupPaymentRouter(svc)
	svc.On("Register", mock.Anything, mock.Anything).
		Return(nil, ledger.NewValidationError("payment currency USD differs from ledger currency MXN"))

	w := perform(r, http.MethodPost, "/pagos", `{"fechaPagoUtc":"2026-03-01T15:00:00Z","idMedioPago":2,"monto":10,"moneda":"USD"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "differs from ledger currency")
}

func TestPaymentHandler_RegisterAndApply(t *testing.T) {
	svc := new(MockPaymentService)
	_, r := setupPaymentRouter(svc)
	receiptID := uuid.New()

	svc.On("RegisterAndApply", mock.Anything, mock.MatchedBy(func(req ledgerapp.RegisterAndApplyRequest) bool {
		return req.ReceiptID == receiptID &&
			req.Amount.Equal(decimal.RequireFromString("300")) &&
			req.PaidAt.Equal(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	})).Return(&ledgerapp.ReceiptApplication{
		ReceiptID:       receiptID,
		AllocationID:    uuid.New(),
		Amount:          decimal.RequireFromString("300"),
		PreviousBalance: decimal.RequireFromString("1000"),
		NewBalance:      decimal.RequireFromString("700"),
		PreviousStatus:  ledger.ReceiptStatusPending,
		NewStatus:       ledger.ReceiptStatusPartial,
	}, nil)

	w := perform(r, http.MethodPost, "/pagos/registrar-y-aplicar",
		`{"idRecibo":"`+receiptID.String()+`","idMedioPago":2,"monto":"300"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.JSONEq(t, `{
		"success": true,
		"data": {
			"saldoAnterior": 1000.00,
			"saldoNuevo": 700.00,
			"estatusReciboAnterior": "PENDING",
			"estatusReciboNuevo": "PARTIAL",
			"reciboPagadoCompletamente": false,
			"montoAplicado": 300.00
		}
	}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestPaymentHandler_RegisterAndApply_Errors(t *testing.T) {
	receiptID := uuid.New()
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"overpayment", ledger.NewValidationError("amount 1200.00 exceeds receipt balance 1000.00"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"cancelled receipt", ledger.NewTerminalStateConflict(receiptID, ledger.ReceiptStatusCancelled), http.StatusUnprocessableEntity, dto.ErrCodeTerminalState},
		{"missing receipt", ledger.NewNotFoundError("receipt", receiptID), http.StatusNotFound, dto.ErrCodeNotFound},
		{"busy receipt", ledger.NewConcurrencyConflict("receipt %s is locked", receiptID), http.StatusConflict, dto.ErrCodeConcurrencyConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPaymentService)
			_, r := setupPaymentRouter(svc)
			svc.On("RegisterAndApply", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := perform(r, http.MethodPost, "/pagos/registrar-y-aplicar",
				`{"idRecibo":"`+receiptID.String()+`","idMedioPago":1,"monto":1200}`)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeResponse(t, w).Error.Code)
		})
	}
}

func TestPaymentHandler_Apply(t *testing.T) {
	svc := new(MockPaymentService)
	_, r := setupPaymentRouter(svc)
	paymentID, first, second := uuid.New(), uuid.New(), uuid.New()
	firstAlloc, secondAlloc := uuid.New(), uuid.New()

	svc.On("ApplyPlan", mock.Anything, paymentID, mock.MatchedBy(func(entries []ledger.PlanEntry) bool {
		return len(entries) == 2 &&
			entries[0].ReceiptID == first && entries[0].Amount.Equal(decimal.NewFromInt(1000)) &&
			entries[1].ReceiptID == second && entries[1].Amount.Equal(decimal.NewFromInt(500))
	}), &operatorID).Return(&ledgerapp.ApplyResult{
		PaymentID: paymentID,
		Applications: []ledgerapp.ReceiptApplication{
			{ReceiptID: first, AllocationID: firstAlloc, Amount: decimal.NewFromInt(1000), PreviousBalance: decimal.NewFromInt(1000), NewBalance: decimal.Zero, PreviousStatus: ledger.ReceiptStatusPending, NewStatus: ledger.ReceiptStatusPaid, FullyPaid: true},
			{ReceiptID: second, AllocationID: secondAlloc, Amount: decimal.NewFromInt(500), PreviousBalance: decimal.NewFromInt(1000), NewBalance: decimal.NewFromInt(500), PreviousStatus: ledger.ReceiptStatusPending, NewStatus: ledger.ReceiptStatusPartial},
		},
		Applied:   decimal.NewFromInt(1500),
		Remainder: decimal.Zero,
		Message:   "Applied $1,500.00 to 2 receipts",
	}, nil)

	w := perform(r, http.MethodPost, "/pagos/aplicar", `{
		"idPago": "`+paymentID.String()+`",
		"aplicaciones": [
			{"idReciboDetalle": "`+first.String()+`", "monto": 1000},
			{"idReciboDetalle": "`+second.String()+`", "monto": 500}
		]
	}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Less(t, strings.Index(body, first.String()), strings.Index(body, second.String()), "request order kept")
	assert.Contains(t, body, `"idAplicacion":"`+firstAlloc.String()+`"`)
	assert.Contains(t, body, `"reciboPagadoCompletamente":true`)
	assert.Contains(t, body, `"montoAplicado":1500.00`)
	assert.Contains(t, body, `"remanente":0.00`)
	svc.AssertExpectations(t)
}

func TestPaymentHandler_Apply_PartialFailure(t *testing.T) {
	svc := new(MockPaymentService)
	_, r := setupPaymentRouter(svc)
	paymentID, receiptID := uuid.New(), uuid.New()

	svc.On("ApplyPlan", mock.Anything, paymentID, mock.Anything, mock.Anything).Return(nil, &ledger.PartialApplicationError{
		PaymentID: paymentID,
		Outcomes:  []ledger.ReceiptOutcome{{ReceiptID: receiptID, Outcome: ledger.OutcomeCommitted}},
		Cause:     errors.New("compensation failed"),
	})

	w := perform(r, http.MethodPost, "/pagos/aplicar",
		`{"idPago":"`+paymentID.String()+`","aplicaciones":[{"idReciboDetalle":"`+receiptID.String()+`","monto":10}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"outcomes"`)
	assert.Contains(t, w.Body.String(), receiptID.String())
}

func TestPaymentHandler_Apply_EmptyPlan(t *testing.T) {
	svc := new(MockPaymentService)
	_, r := setupPaymentRouter(svc)

	w := perform(r, http.MethodPost, "/pagos/aplicar", `{"idPago":"`+uuid.NewString()+`","aplicaciones":[]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ApplyPlan", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentHandler_GetByID(t *testing.T) {
	svc := new(MockPaymentService)
	_, r := setupPaymentRouter(svc)
	paymentID := uuid.New()
	payment := samplePayment(paymentID, "800")
	payment.Allocated = decimal.NewFromInt(500)
	payment.Remainder = decimal.NewFromInt(300)
	payment.Allocations = []ledgerapp.AllocationResponse{{ID: uuid.New(), PaymentID: paymentID, ReceiptID: uuid.New(), Amount: decimal.NewFromInt(500)}}
	svc.On("GetByID", mock.Anything, paymentID).Return(payment, nil)

	w := perform(r, http.MethodGet, "/pagos/"+paymentID.String(), "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"montoAplicado":500.00`)
	assert.Contains(t, w.Body.String(), `"remanente":300.00`)

	w = perform(r, http.MethodGet, "/pagos/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandler_CancelAndReject(t *testing.T) {
	svc := new(MockPaymentService)
	_, r := setupPaymentRouter(svc)
	paymentID := uuid.New()

	cancelled := samplePayment(paymentID, "100")
	cancelled.Status = ledger.PaymentStatusCancelled
	cancelled.VoidReason = "captured twice"
	svc.On("Cancel", mock.Anything, paymentID, "captured twice").Return(cancelled, nil)
	svc.On("Reject", mock.Anything, paymentID, "cheque devuelto").
		Return(nil, ledger.NewInvalidStateError("payment %s is CANCELLED", paymentID))

	w := perform(r, http.MethodPost, "/pagos/"+paymentID.String()+"/cancelar", `{"motivo":"captured twice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"motivoCancelacion":"captured twice"`)

	w = perform(r, http.MethodPost, "/pagos/"+paymentID.String()+"/rechazar", `{"motivo":"cheque devuelto"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = perform(r, http.MethodPost, "/pagos/"+paymentID.String()+"/cancelar", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "reason is required")
	svc.AssertExpectations(t)
}
