package handler

import (
	"encoding/json"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptLineBody is one line of a receipt to issue
type ReceiptLineBody struct {
	Descripcion    string          `json:"descripcion" binding:"required,max=200" example:"Colegiatura marzo"`
	Cantidad       decimal.Decimal `json:"cantidad" binding:"decimal_gt0" swaggertype:"number" example:"1"`
	PrecioUnitario decimal.Decimal `json:"precioUnitario" binding:"decimal_gte0" swaggertype:"number" example:"2500.00"`
}

// ReceiptBody is one receipt to issue. Without detalles the subtotal is
// taken as given; with detalles it is their sum.
type ReceiptBody struct {
	IDEstudiante     uuid.UUID         `json:"idEstudiante" binding:"required"`
	IDPeriodo        uuid.UUID         `json:"idPeriodo" binding:"required"`
	Concepto         string            `json:"concepto" binding:"required,max=200" example:"Colegiatura"`
	Folio            *string           `json:"folio" binding:"omitempty,max=50"`
	FechaEmision     *time.Time        `json:"fechaEmision"`
	FechaVencimiento time.Time         `json:"fechaVencimiento" example:"2026-03-10T23:59:59Z"`
	Moneda           string            `json:"moneda" binding:"omitempty,len=3" example:"MXN"`
	Subtotal         *decimal.Decimal  `json:"subtotal" binding:"omitempty,decimal_gte0" swaggertype:"number"`
	Descuento        *decimal.Decimal  `json:"descuento" binding:"omitempty,decimal_gte0" swaggertype:"number"`
	Recargo          *decimal.Decimal  `json:"recargo" binding:"omitempty,decimal_gte0" swaggertype:"number"`
	Notas            string            `json:"notas" binding:"max=500"`
	Detalles         []ReceiptLineBody `json:"detalles" binding:"max=100,dive"`
}

// IssueReceiptsBody is the body of POST /recibos/generar
// @name IssueReceiptsBody
type IssueReceiptsBody struct {
	Recibos []ReceiptBody `json:"recibos" binding:"required,min=1,max=500,dive"`
}

// ReceiptLineDTO is one line of a receipt
type ReceiptLineDTO struct {
	IDDetalle      uuid.UUID   `json:"idDetalle"`
	Renglon        int         `json:"renglon"`
	Descripcion    string      `json:"descripcion"`
	Cantidad       json.Number `json:"cantidad" swaggertype:"number"`
	PrecioUnitario json.Number `json:"precioUnitario" swaggertype:"number"`
	Importe        json.Number `json:"importe" swaggertype:"number"`
}

// ReceiptDTO is a receipt as returned by the API. estatus is derived at
// the time of the request.
// @name ReceiptDTO
type ReceiptDTO struct {
	IDRecibo             uuid.UUID        `json:"idRecibo"`
	Folio                *string          `json:"folio,omitempty"`
	IDEstudiante         uuid.UUID        `json:"idEstudiante"`
	IDPeriodo            uuid.UUID        `json:"idPeriodo"`
	Concepto             string           `json:"concepto"`
	FechaEmision         time.Time        `json:"fechaEmision"`
	FechaVencimiento     time.Time        `json:"fechaVencimiento"`
	Moneda               string           `json:"moneda"`
	Subtotal             json.Number      `json:"subtotal" swaggertype:"number"`
	Descuento            json.Number      `json:"descuento" swaggertype:"number"`
	Recargo              json.Number      `json:"recargo" swaggertype:"number"`
	Total                json.Number      `json:"total" swaggertype:"number"`
	Saldo                json.Number      `json:"saldo" swaggertype:"number"`
	Estatus              string           `json:"estatus"`
	MotivoAdministrativo string           `json:"motivoAdministrativo,omitempty"`
	Notas                string           `json:"notas,omitempty"`
	DiasVencido          int              `json:"diasVencido"`
	Detalles             []ReceiptLineDTO `json:"detalles"`
	Aplicaciones         []AllocationDTO  `json:"aplicaciones,omitempty"`
	Version              int              `json:"version"`
}

// RepairFailureDTO is one receipt a repair run could not fix
type RepairFailureDTO struct {
	IDRecibo uuid.UUID `json:"idRecibo"`
	Error    string    `json:"error"`
}

// RepairResultDTO is the response of POST /recibos/reparar
// @name RepairResultDTO
type RepairResultDTO struct {
	Reparados int                `json:"reparados"`
	Mensaje   string             `json:"mensaje"`
	Fallidos  int                `json:"fallidos,omitempty"`
	Errores   []RepairFailureDTO `json:"errores,omitempty"`
}

func (b ReceiptBody) toDraft() (ledger.ReceiptDraft, error) {
	currency, err := valueobject.ParseCurrency(b.Moneda)
	if err != nil {
		return ledger.ReceiptDraft{}, ledger.NewValidationError("%s", err.Error())
	}
	lines := make([]ledger.LineDraft, len(b.Detalles))
	for i, l := range b.Detalles {
		lines[i] = ledger.LineDraft{Description: l.Descripcion, Quantity: l.Cantidad, UnitPrice: l.PrecioUnitario}
	}
	return ledger.ReceiptDraft{
		Folio:     b.Folio,
		StudentID: b.IDEstudiante,
		PeriodID:  b.IDPeriodo,
		Concept:   b.Concepto,
		IssueDate: optionalTime(b.FechaEmision, time.Time{}),
		DueDate:   b.FechaVencimiento,
		Currency:  currency,
		Subtotal:  optionalDecimal(b.Subtotal),
		Discount:  optionalDecimal(b.Descuento),
		Surcharge: optionalDecimal(b.Recargo),
		Notes:     b.Notas,
		Lines:     lines,
	}, nil
}

func toReceiptDTO(r ledgerapp.ReceiptResponse) ReceiptDTO {
	lines := make([]ReceiptLineDTO, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = ReceiptLineDTO{
			IDDetalle:      l.ID,
			Renglon:        l.LineNo,
			Descripcion:    l.Description,
			Cantidad:       quantity(l.Quantity),
			PrecioUnitario: money(l.UnitPrice),
			Importe:        money(l.Amount),
		}
	}
	var allocs []AllocationDTO
	if len(r.Allocations) > 0 {
		allocs = toAllocationDTOs(r.Allocations)
	}
	return ReceiptDTO{
		IDRecibo:             r.ID,
		Folio:                r.Folio,
		IDEstudiante:         r.StudentID,
		IDPeriodo:            r.PeriodID,
		Concepto:             r.Concept,
		FechaEmision:         r.IssueDate,
		FechaVencimiento:     r.DueDate,
		Moneda:               r.Currency,
		Subtotal:             money(r.Subtotal),
		Descuento:            money(r.Discount),
		Recargo:              money(r.Surcharge),
		Total:                money(r.Total),
		Saldo:                money(r.Balance),
		Estatus:              string(r.Status),
		MotivoAdministrativo: r.AdminReason,
		Notas:                r.Notes,
		DiasVencido:          r.DaysOverdue,
		Detalles:             lines,
		Aplicaciones:         allocs,
		Version:              r.Version,
	}
}

func toReceiptDTOs(rs []ledgerapp.ReceiptResponse) []ReceiptDTO {
	out := make([]ReceiptDTO, len(rs))
	for i, r := range rs {
		out[i] = toReceiptDTO(r)
	}
	return out
}

func toRepairResultDTO(s *ledgerapp.RepairSummary) RepairResultDTO {
	out := RepairResultDTO{Reparados: s.Repaired, Mensaje: s.Message, Fallidos: s.Failed}
	for _, e := range s.Errors {
		out.Errores = append(out.Errores, RepairFailureDTO{IDRecibo: e.ReceiptID, Error: e.Error})
	}
	return out
}
