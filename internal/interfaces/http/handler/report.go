package handler

import (
	"context"
	"time"

	ledgerapp "github.com/erp/ledger/internal/application/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportingService produces the read-side reports of the ledger
type ReportingService interface {
	CashCut(ctx context.Context, start, end time.Time) (*ledgerapp.CashCutReport, error)
	OverduePortfolio(ctx context.Context, asOf time.Time) (*ledgerapp.OverduePortfolio, error)
	PeriodIncome(ctx context.Context, periodID uuid.UUID) (*ledgerapp.PeriodIncomeReport, error)
	ArchiveCashCut(ctx context.Context, start, end time.Time) (*ledgerapp.CashCutArchive, error)
}

// ReportHandler serves cash cuts and portfolio reports
type ReportHandler struct {
	BaseHandler
	reports ReportingService
	now     func() time.Time
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports ReportingService) *ReportHandler {
	return &ReportHandler{reports: reports, now: time.Now}
}

// CashCut godoc
// @ID           getCashCut
// @Summary      Cash cut
// @Description  Payments dated in [inicio, fin) grouped by payment method. A plain date as fin includes that whole day.
// @Tags         pagos
// @Produce      json
// @Param        inicio query string true "Start, RFC3339 or YYYY-MM-DD"
// @Param        fin query string true "End (exclusive), RFC3339 or YYYY-MM-DD"
// @Success      200 {object} APIResponse[CashCutDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /pagos/corte-caja [get]
func (h *ReportHandler) CashCut(c *gin.Context) {
	start, end, err := parseWindow(c.Query("inicio"), c.Query("fin"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	report, err := h.reports.CashCut(c.Request.Context(), start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toCashCutDTO(report))
}

// ArchiveCashCut godoc
// @ID           archiveCashCut
// @Summary      Archive a cash cut
// @Description  Renders the cash cut as CSV and stores it in object storage
// @Tags         reportes
// @Produce      json
// @Param        inicio query string true "Start, RFC3339 or YYYY-MM-DD"
// @Param        fin query string true "End (exclusive), RFC3339 or YYYY-MM-DD"
// @Success      201 {object} APIResponse[CashCutArchiveDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Archive storage not configured"
// @Security     BearerAuth
// @Router       /reportes/corte-caja/archivar [post]
func (h *ReportHandler) ArchiveCashCut(c *gin.Context) {
	start, end, err := parseWindow(c.Query("inicio"), c.Query("fin"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	archive, err := h.reports.ArchiveCashCut(c.Request.Context(), start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toCashCutArchiveDTO(archive))
}

// OverduePortfolio godoc
// @ID           getOverduePortfolio
// @Summary      Overdue portfolio
// @Description  Outstanding receipts past their due date at fecha, which defaults to now
// @Tags         reportes
// @Produce      json
// @Param        fecha query string false "Cut-off, RFC3339 or YYYY-MM-DD"
// @Success      200 {object} APIResponse[OverduePortfolioDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reportes/cartera-vencida [get]
func (h *ReportHandler) OverduePortfolio(c *gin.Context) {
	asOf := h.now()
	if raw := c.Query("fecha"); raw != "" {
		t, _, err := parseInstant("fecha", raw)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		asOf = t
	}

	portfolio, err := h.reports.OverduePortfolio(c.Request.Context(), asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toOverduePortfolioDTO(portfolio))
}

// PeriodIncome godoc
// @ID           getPeriodIncome
// @Summary      Period income
// @Description  Billed, collected, outstanding and waived totals of an academic period
// @Tags         reportes
// @Produce      json
// @Param        idPeriodo query string true "Period ID" format(uuid)
// @Success      200 {object} APIResponse[PeriodIncomeDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /reportes/ingreso-periodo [get]
func (h *ReportHandler) PeriodIncome(c *gin.Context) {
	periodID, err := parseUUID("idPeriodo", c.Query("idPeriodo"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	report, err := h.reports.PeriodIncome(c.Request.Context(), periodID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toPeriodIncomeDTO(report))
}
