package router

import (
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// LedgerHandlers are the handlers served under the API prefix
type LedgerHandlers struct {
	Payments *handler.PaymentHandler
	Receipts *handler.ReceiptHandler
	Reports  *handler.ReportHandler
	System   *handler.SystemHandler
}

// LedgerMiddleware is the route-level middleware of the ledger API. Either
// field may be nil.
type LedgerMiddleware struct {
	// Idempotency dedupes POSTs carrying an Idempotency-Key
	Idempotency gin.HandlerFunc
	// Admin guards administrative overrides and maintenance
	Admin gin.HandlerFunc
}

// LedgerGroups builds the route groups of the ledger API
func LedgerGroups(h LedgerHandlers, mw LedgerMiddleware) []Registrar {
	pagos := NewResource("/pagos").Use(mw.Idempotency)
	pagos.POST("", h.Payments.Register)
	pagos.POST("/registrar-y-aplicar", h.Payments.RegisterAndApply)
	pagos.POST("/aplicar", h.Payments.Apply)
	pagos.GET("/corte-caja", h.Reports.CashCut)
	pagos.GET("/:id", h.Payments.GetByID)
	pagos.POST("/:id/cancelar", mw.Admin, h.Payments.Cancel)
	pagos.POST("/:id/rechazar", mw.Admin, h.Payments.Reject)

	recibos := NewResource("/recibos").Use(mw.Idempotency)
	recibos.GET("", h.Receipts.List)
	recibos.POST("/generar", h.Receipts.Issue)
	recibos.GET("/defectuosos", h.Receipts.ListDefective)
	recibos.POST("/reparar", mw.Admin, h.Receipts.Repair)
	recibos.GET("/:id", h.Receipts.GetByID)
	recibos.GET("/:id/pdf", h.Receipts.Print)
	recibos.POST("/:id/cancelar", mw.Admin, h.Receipts.Cancel)
	recibos.POST("/:id/condonar", mw.Admin, h.Receipts.Waive)
	recibos.DELETE("/:id", mw.Admin, h.Receipts.Delete)

	reportes := NewResource("/reportes")
	reportes.GET("/cartera-vencida", h.Reports.OverduePortfolio)
	reportes.GET("/ingreso-periodo", h.Reports.PeriodIncome)
	reportes.POST("/corte-caja/archivar", mw.Admin, h.Reports.ArchiveCashCut)

	system := NewResource("/system")
	system.GET("/info", h.System.GetSystemInfo)

	return []Registrar{pagos, recibos, reportes, system}
}
