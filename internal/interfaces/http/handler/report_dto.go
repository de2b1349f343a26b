package handler

import (
	"encoding/json"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/google/uuid"
)

// CashCutGroupDTO totals the confirmed payments of one method
type CashCutGroupDTO struct {
	IDMedioPago int         `json:"idMedioPago"`
	MedioPago   string      `json:"medioPago"`
	Cantidad    int         `json:"cantidad"`
	Total       json.Number `json:"total" swaggertype:"number"`
}

// CashCutPaymentDTO is one payment line of the cash cut
type CashCutPaymentDTO struct {
	IDPago       uuid.UUID   `json:"idPago"`
	FechaPagoUtc time.Time   `json:"fechaPagoUtc"`
	IDMedioPago  int         `json:"idMedioPago"`
	Monto        json.Number `json:"monto" swaggertype:"number"`
	Referencia   *string     `json:"referencia,omitempty"`
	Estatus      string      `json:"estatus"`
}

// CashCutDTO covers the payments dated in [inicio, fin)
// @name CashCutDTO
type CashCutDTO struct {
	Inicio          time.Time           `json:"inicio"`
	Fin             time.Time           `json:"fin"`
	Moneda          string              `json:"moneda"`
	Grupos          []CashCutGroupDTO   `json:"grupos"`
	TotalPagos      int                 `json:"totalPagos"`
	GranTotal       json.Number         `json:"granTotal" swaggertype:"number"`
	Pagos           []CashCutPaymentDTO `json:"pagos"`
	Cancelados      []CashCutPaymentDTO `json:"cancelados"`
	TotalCancelados int                 `json:"totalCancelados"`
	MontoCancelado  json.Number         `json:"montoCancelado" swaggertype:"number"`
	GeneradoEn      time.Time           `json:"generadoEn"`
}

// OverdueEntryDTO is one receipt of the overdue portfolio
type OverdueEntryDTO struct {
	IDRecibo         uuid.UUID   `json:"idRecibo"`
	Folio            *string     `json:"folio,omitempty"`
	IDEstudiante     uuid.UUID   `json:"idEstudiante"`
	IDPeriodo        uuid.UUID   `json:"idPeriodo"`
	Concepto         string      `json:"concepto"`
	FechaVencimiento time.Time   `json:"fechaVencimiento"`
	Total            json.Number `json:"total" swaggertype:"number"`
	Saldo            json.Number `json:"saldo" swaggertype:"number"`
	DiasVencido      int         `json:"diasVencido"`
	Estatus          string      `json:"estatus"`
}

// OverduePortfolioDTO lists receipts past due, most overdue first
// @name OverduePortfolioDTO
type OverduePortfolioDTO struct {
	FechaCorte   time.Time         `json:"fechaCorte"`
	Recibos      []OverdueEntryDTO `json:"recibos"`
	TotalRecibos int               `json:"totalRecibos"`
	SaldoTotal   json.Number       `json:"saldoTotal" swaggertype:"number"`
}

// PeriodIncomeDTO aggregates the receipts of an academic period
// @name PeriodIncomeDTO
type PeriodIncomeDTO struct {
	IDPeriodo    uuid.UUID   `json:"idPeriodo"`
	TotalRecibos int64       `json:"totalRecibos"`
	Facturado    json.Number `json:"facturado" swaggertype:"number"`
	Ingreso      json.Number `json:"ingreso" swaggertype:"number"`
	Pendiente    json.Number `json:"pendiente" swaggertype:"number"`
	Condonado    json.Number `json:"condonado" swaggertype:"number"`
}

// CashCutArchiveDTO says where an archived cash cut was stored
// @name CashCutArchiveDTO
type CashCutArchiveDTO struct {
	Clave     string    `json:"clave"`
	Ubicacion string    `json:"ubicacion"`
	Tamano    int       `json:"tamano"`
	Inicio    time.Time `json:"inicio"`
	Fin       time.Time `json:"fin"`
}

func toCashCutPayments(ps []ledgerapp.PaymentSummary) []CashCutPaymentDTO {
	out := make([]CashCutPaymentDTO, len(ps))
	for i, p := range ps {
		out[i] = CashCutPaymentDTO{
			IDPago:       p.ID,
			FechaPagoUtc: p.PaidAt,
			IDMedioPago:  p.MethodID,
			Monto:        money(p.Amount),
			Referencia:   p.Reference,
			Estatus:      string(p.Status),
		}
	}
	return out
}

func toCashCutDTO(r *ledgerapp.CashCutReport) CashCutDTO {
	groups := make([]CashCutGroupDTO, len(r.Groups))
	for i, g := range r.Groups {
		groups[i] = CashCutGroupDTO{
			IDMedioPago: g.MethodID,
			MedioPago:   g.MethodName,
			Cantidad:    g.Count,
			Total:       money(g.Total),
		}
	}
	return CashCutDTO{
		Inicio:          r.Start,
		Fin:             r.End,
		Moneda:          r.Currency,
		Grupos:          groups,
		TotalPagos:      r.PaymentCount,
		GranTotal:       money(r.GrandTotal),
		Pagos:           toCashCutPayments(r.Payments),
		Cancelados:      toCashCutPayments(r.Voided),
		TotalCancelados: r.VoidedCount,
		MontoCancelado:  money(r.VoidedTotal),
		GeneradoEn:      r.GeneratedAt,
	}
}

func toOverduePortfolioDTO(p *ledgerapp.OverduePortfolio) OverduePortfolioDTO {
	entries := make([]OverdueEntryDTO, len(p.Entries))
	for i, e := range p.Entries {
		entries[i] = OverdueEntryDTO{
			IDRecibo:         e.ReceiptID,
			Folio:            e.Folio,
			IDEstudiante:     e.StudentID,
			IDPeriodo:        e.PeriodID,
			Concepto:         e.Concept,
			FechaVencimiento: e.DueDate,
			Total:            money(e.Total),
			Saldo:            money(e.Balance),
			DiasVencido:      e.DaysOverdue,
			Estatus:          string(e.Status),
		}
	}
	return OverduePortfolioDTO{
		FechaCorte:   p.AsOf,
		Recibos:      entries,
		TotalRecibos: p.ReceiptCount,
		SaldoTotal:   money(p.TotalBalance),
	}
}

func toPeriodIncomeDTO(r *ledgerapp.PeriodIncomeReport) PeriodIncomeDTO {
	return PeriodIncomeDTO{
		IDPeriodo:    r.PeriodID,
		TotalRecibos: r.ReceiptCount,
		Facturado:    money(r.Billed),
		Ingreso:      money(r.Income),
		Pendiente:    money(r.Outstanding),
		Condonado:    money(r.WrittenOff),
	}
}

func toCashCutArchiveDTO(a *ledgerapp.CashCutArchive) CashCutArchiveDTO {
	return CashCutArchiveDTO{
		Clave:     a.Key,
		Ubicacion: a.Location,
		Tamano:    a.Size,
		Inicio:    a.Start,
		Fin:       a.End,
	}
}
