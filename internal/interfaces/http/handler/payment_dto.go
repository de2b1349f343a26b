package handler

import (
	"encoding/json"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterPaymentBody is the body of POST /pagos
// @name RegisterPaymentBody
type RegisterPaymentBody struct {
	FechaPagoUtc time.Time       `json:"fechaPagoUtc" example:"2026-03-01T15:04:05Z"`
	IDMedioPago  int             `json:"idMedioPago" binding:"required,min=1,max=5" example:"1"`
	Monto        decimal.Decimal `json:"monto" binding:"decimal_gt0" swaggertype:"number" example:"1500.00"`
	Moneda       string          `json:"moneda" binding:"omitempty,len=3" example:"MXN"`
	Referencia   *string         `json:"referencia" binding:"omitempty,max=100"`
	Notas        *string         `json:"notas" binding:"omitempty,max=500"`
}

// RegisterAndApplyBody is the body of POST /pagos/registrar-y-aplicar.
// fechaPagoUtc defaults to the time of the request.
// @name RegisterAndApplyBody
type RegisterAndApplyBody struct {
	IDRecibo     uuid.UUID       `json:"idRecibo" binding:"required"`
	FechaPagoUtc *time.Time      `json:"fechaPagoUtc"`
	IDMedioPago  int             `json:"idMedioPago" binding:"required,min=1,max=5" example:"1"`
	Monto        decimal.Decimal `json:"monto" binding:"decimal_gt0" swaggertype:"number" example:"1500.00"`
	Referencia   *string         `json:"referencia" binding:"omitempty,max=100"`
	Notas        *string         `json:"notas" binding:"omitempty,max=500"`
}

// PlanEntryBody is one line of a distribution. idReciboDetalle identifies
// the receipt being paid.
type PlanEntryBody struct {
	IDReciboDetalle uuid.UUID       `json:"idReciboDetalle" binding:"required"`
	Monto           decimal.Decimal `json:"monto" binding:"decimal_gt0" swaggertype:"number" example:"500.00"`
}

// ApplyPaymentBody is the body of POST /pagos/aplicar
// @name ApplyPaymentBody
type ApplyPaymentBody struct {
	IDPago       uuid.UUID       `json:"idPago" binding:"required"`
	Aplicaciones []PlanEntryBody `json:"aplicaciones" binding:"required,min=1,max=200,dive"`
}

// VoidBody carries the reason of a cancellation, rejection or waiver
// @name VoidBody
type VoidBody struct {
	Motivo string `json:"motivo" binding:"required,max=500" example:"Cheque devuelto"`
}

// AllocationDTO is one applied portion of a payment
type AllocationDTO struct {
	IDAplicacion    uuid.UUID   `json:"idAplicacion"`
	IDPago          uuid.UUID   `json:"idPago"`
	IDRecibo        uuid.UUID   `json:"idRecibo"`
	Monto           json.Number `json:"monto" swaggertype:"number"`
	FechaAplicacion time.Time   `json:"fechaAplicacion"`
	AplicadoPor     *uuid.UUID  `json:"aplicadoPor,omitempty"`
}

// PaymentDTO is a payment as returned by the API
// @name PaymentDTO
type PaymentDTO struct {
	IDPago            uuid.UUID       `json:"idPago"`
	FechaPagoUtc      time.Time       `json:"fechaPagoUtc"`
	IDMedioPago       int             `json:"idMedioPago"`
	MedioPago         string          `json:"medioPago"`
	Monto             json.Number     `json:"monto" swaggertype:"number"`
	Moneda            string          `json:"moneda"`
	Referencia        *string         `json:"referencia,omitempty"`
	Notas             *string         `json:"notas,omitempty"`
	Estatus           string          `json:"estatus"`
	MotivoCancelacion string          `json:"motivoCancelacion,omitempty"`
	RegistradoPor     *uuid.UUID      `json:"registradoPor,omitempty"`
	MontoAplicado     json.Number     `json:"montoAplicado" swaggertype:"number"`
	Remanente         json.Number     `json:"remanente" swaggertype:"number"`
	Aplicaciones      []AllocationDTO `json:"aplicaciones"`
	FechaCreacion     time.Time       `json:"fechaCreacion"`
}

// ApplicationDTO is the effect of a payment on one receipt
// @name ApplicationDTO
type ApplicationDTO struct {
	SaldoAnterior             json.Number `json:"saldoAnterior" swaggertype:"number"`
	SaldoNuevo                json.Number `json:"saldoNuevo" swaggertype:"number"`
	EstatusReciboAnterior     string      `json:"estatusReciboAnterior"`
	EstatusReciboNuevo        string      `json:"estatusReciboNuevo"`
	ReciboPagadoCompletamente bool        `json:"reciboPagadoCompletamente"`
	MontoAplicado             json.Number `json:"montoAplicado" swaggertype:"number"`
}

// PlanApplicationDTO is an ApplicationDTO tagged with its receipt
type PlanApplicationDTO struct {
	IDRecibo     uuid.UUID `json:"idRecibo"`
	IDAplicacion uuid.UUID `json:"idAplicacion"`
	ApplicationDTO
}

// ApplyResultDTO is the response of POST /pagos/aplicar. Applications keep
// the order of the request.
// @name ApplyResultDTO
type ApplyResultDTO struct {
	IDPago        uuid.UUID            `json:"idPago"`
	Aplicaciones  []PlanApplicationDTO `json:"aplicaciones"`
	MontoAplicado json.Number          `json:"montoAplicado" swaggertype:"number"`
	Remanente     json.Number          `json:"remanente" swaggertype:"number"`
	Mensaje       string               `json:"mensaje"`
}

func (b RegisterPaymentBody) toRequest(operator *uuid.UUID) ledgerapp.RegisterPaymentRequest {
	return ledgerapp.RegisterPaymentRequest{
		PaidAt:       b.FechaPagoUtc,
		MethodID:     b.IDMedioPago,
		Amount:       b.Monto,
		Currency:     b.Moneda,
		Reference:    b.Referencia,
		Notes:        b.Notas,
		RegisteredBy: operator,
	}
}

func (b RegisterAndApplyBody) toRequest(operator *uuid.UUID, now time.Time) ledgerapp.RegisterAndApplyRequest {
	return ledgerapp.RegisterAndApplyRequest{
		ReceiptID:    b.IDRecibo,
		PaidAt:       optionalTime(b.FechaPagoUtc, now),
		MethodID:     b.IDMedioPago,
		Amount:       b.Monto,
		Reference:    b.Referencia,
		Notes:        b.Notas,
		RegisteredBy: operator,
	}
}

func (b ApplyPaymentBody) toPlan() []ledger.PlanEntry {
	entries := make([]ledger.PlanEntry, len(b.Aplicaciones))
	for i, a := range b.Aplicaciones {
		entries[i] = ledger.PlanEntry{ReceiptID: a.IDReciboDetalle, Amount: a.Monto}
	}
	return entries
}

func toAllocationDTOs(allocs []ledgerapp.AllocationResponse) []AllocationDTO {
	out := make([]AllocationDTO, len(allocs))
	for i, a := range allocs {
		out[i] = AllocationDTO{
			IDAplicacion:    a.ID,
			IDPago:          a.PaymentID,
			IDRecibo:        a.ReceiptID,
			Monto:           money(a.Amount),
			FechaAplicacion: a.AppliedAt,
			AplicadoPor:     a.AppliedBy,
		}
	}
	return out
}

func toPaymentDTO(p *ledgerapp.PaymentResponse) PaymentDTO {
	return PaymentDTO{
		IDPago:            p.ID,
		FechaPagoUtc:      p.PaidAt,
		IDMedioPago:       p.MethodID,
		MedioPago:         p.MethodName,
		Monto:             money(p.Amount),
		Moneda:            p.Currency,
		Referencia:        p.Reference,
		Notas:             p.Notes,
		Estatus:           string(p.Status),
		MotivoCancelacion: p.VoidReason,
		RegistradoPor:     p.RegisteredBy,
		MontoAplicado:     money(p.Allocated),
		Remanente:         money(p.Remainder),
		Aplicaciones:      toAllocationDTOs(p.Allocations),
		FechaCreacion:     p.CreatedAt,
	}
}

func toApplicationDTO(a ledgerapp.ReceiptApplication) ApplicationDTO {
	return ApplicationDTO{
		SaldoAnterior:             money(a.PreviousBalance),
		SaldoNuevo:                money(a.NewBalance),
		EstatusReciboAnterior:     string(a.PreviousStatus),
		EstatusReciboNuevo:        string(a.NewStatus),
		ReciboPagadoCompletamente: a.FullyPaid,
		MontoAplicado:             money(a.Amount),
	}
}

func toApplyResultDTO(r *ledgerapp.ApplyResult) ApplyResultDTO {
	apps := make([]PlanApplicationDTO, len(r.Applications))
	for i, a := range r.Applications {
		apps[i] = PlanApplicationDTO{
			IDRecibo:       a.ReceiptID,
			IDAplicacion:   a.AllocationID,
			ApplicationDTO: toApplicationDTO(a),
		}
	}
	return ApplyResultDTO{
		IDPago:        r.PaymentID,
		Aplicaciones:  apps,
		MontoAplicado: money(r.Applied),
		Remanente:     money(r.Remainder),
		Mensaje:       r.Message,
	}
}
