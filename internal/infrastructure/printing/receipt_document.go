package printing

import (
	"bytes"
	"context"
	"html/template"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var statusLabels = map[ledger.ReceiptStatus]string{
	ledger.ReceiptStatusPending:   "Pendiente",
	ledger.ReceiptStatusPartial:   "Pago parcial",
	ledger.ReceiptStatusPaid:      "Pagado",
	ledger.ReceiptStatusOverdue:   "Vencido",
	ledger.ReceiptStatusCancelled: "Cancelado",
	ledger.ReceiptStatusWaived:    "Condonado",
}

const receiptTemplate = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: "DejaVu Sans", Arial, sans-serif; font-size: {{if .Roll}}9pt{{else}}10pt{{end}}; color: #222; }
h1 { font-size: 14pt; margin: 0 0 4px 0; }
.muted { color: #666; }
table { width: 100%; border-collapse: collapse; margin-top: 8px; }
th, td { padding: 3px 4px; border-bottom: 1px solid #ddd; text-align: left; }
td.num, th.num { text-align: right; }
.totals td { border: none; }
.status { font-weight: bold; }
.stamp { margin-top: 12px; padding: 6px; border: 2px solid #a00; color: #a00; text-align: center; }
</style>
</head>
<body>
<h1>{{.Issuer}}</h1>
<div>Recibo {{if .Folio}}<strong>{{.Folio}}</strong>{{else}}<span class="muted">{{.ID}}</span>{{end}}</div>
<div>Alumno: {{.StudentID}}</div>
<div>Periodo: {{.PeriodID}}</div>
<div>Concepto: {{.Concept}}</div>
<div>Emisión: {{date .IssueDate}} &middot; Vencimiento: {{date .DueDate}}</div>
<div class="status">Estatus: {{.Status}}{{if gt .DaysOverdue 0}} ({{.DaysOverdue}} días de atraso){{end}}</div>

<table>
<thead><tr><th>#</th><th>Descripción</th><th class="num">Cant.</th><th class="num">P. unitario</th><th class="num">Importe</th></tr></thead>
<tbody>
{{range .Lines}}<tr><td>{{.LineNo}}</td><td>{{.Description}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .UnitPrice}}</td><td class="num">{{money .Amount}}</td></tr>
{{end}}</tbody>
</table>

<table class="totals">
<tr><td class="num">Subtotal</td><td class="num">{{money .Subtotal}}</td></tr>
{{if .HasDiscount}}<tr><td class="num">Descuento</td><td class="num">-{{money .Discount}}</td></tr>{{end}}
{{if .HasSurcharge}}<tr><td class="num">Recargo</td><td class="num">{{money .Surcharge}}</td></tr>{{end}}
<tr><td class="num"><strong>Total</strong></td><td class="num"><strong>{{money .Total}}</strong></td></tr>
<tr><td class="num">Pagado</td><td class="num">{{money .Paid}}</td></tr>
<tr><td class="num"><strong>Saldo</strong></td><td class="num"><strong>{{money .Balance}}</strong></td></tr>
</table>

{{if .Allocations}}
<table>
<thead><tr><th>Pago</th><th>Fecha</th><th class="num">Monto</th></tr></thead>
<tbody>
{{range .Allocations}}<tr><td>{{.PaymentID}}</td><td>{{date .AppliedAt}}</td><td class="num">{{money .Amount}}</td></tr>
{{end}}</tbody>
</table>
{{end}}

{{if .AdminReason}}<div class="stamp">{{.Status}}: {{.AdminReason}}</div>{{end}}
{{if .Notes}}<p class="muted">{{.Notes}}</p>{{end}}
<p class="muted">Impreso el {{date .PrintedAt}}</p>
</body>
</html>`

const receiptFooter = `<div style="font-size:7pt;width:100%;text-align:center;color:#888;">` +
	`<span class="pageNumber"></span> / <span class="totalPages"></span></div>`

// ReceiptPrinterConfig configures the printed receipt
type ReceiptPrinterConfig struct {
	// Issuer heads every receipt, usually the school's name
	Issuer    string
	PaperSize PaperSize
	// Language selects amount formatting, as a BCP 47 tag
	Language string
	Currency valueobject.Currency
}

// receiptView is what the template sees
type receiptView struct {
	appledger.ReceiptResponse
	Title        string
	Issuer       string
	Status       string
	Roll         bool
	HasDiscount  bool
	HasSurcharge bool
	Paid         decimal.Decimal
	PrintedAt    time.Time
}

// ReceiptPrinter renders receipts as PDF documents
type ReceiptPrinter struct {
	renderer PDFRenderer
	tmpl     *template.Template
	cfg      ReceiptPrinterConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewReceiptPrinter creates a ReceiptPrinter writing through renderer
func NewReceiptPrinter(renderer PDFRenderer, cfg ReceiptPrinterConfig, logger *zap.Logger) *ReceiptPrinter {
	if !cfg.PaperSize.IsValid() {
		cfg.PaperSize = PaperSizeA4
	}
	if cfg.Currency == "" {
		cfg.Currency = valueobject.DefaultCurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	messages := appledger.NewMessages(cfg.Language)
	currency := cfg.Currency
	tmpl := template.Must(template.New("receipt").Funcs(template.FuncMap{
		"money": func(d decimal.Decimal) string { return messages.Amount(d, currency) },
		"date":  func(t time.Time) string { return t.UTC().Format("02/01/2006") },
	}).Parse(receiptTemplate))

	return &ReceiptPrinter{
		renderer: renderer,
		tmpl:     tmpl,
		cfg:      cfg,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RenderHTML fills the receipt template
func (p *ReceiptPrinter) RenderHTML(receipt appledger.ReceiptResponse) (string, error) {
	status, ok := statusLabels[receipt.Status]
	if !ok {
		status = string(receipt.Status)
	}
	view := receiptView{
		ReceiptResponse: receipt,
		Title:           "Recibo " + receiptName(receipt),
		Issuer:          p.cfg.Issuer,
		Status:          status,
		Roll:            p.cfg.PaperSize.IsRoll(),
		HasDiscount:     receipt.Discount.IsPositive(),
		HasSurcharge:    receipt.Surcharge.IsPositive(),
		Paid:            receipt.Total.Sub(receipt.Balance),
		PrintedAt:       p.now(),
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, view); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to fill receipt template", err)
	}
	return buf.String(), nil
}

// PrintReceipt renders receipt to PDF
func (p *ReceiptPrinter) PrintReceipt(ctx context.Context, receipt appledger.ReceiptResponse) ([]byte, error) {
	html, err := p.RenderHTML(receipt)
	if err != nil {
		return nil, err
	}
	result, err := p.renderer.Render(ctx, &RenderRequest{
		HTML:       html,
		Title:      "Recibo " + receiptName(receipt),
		PaperSize:  p.cfg.PaperSize,
		Margins:    DefaultMargins(p.cfg.PaperSize),
		FooterHTML: p.footer(),
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("Receipt printed",
		zap.String("receipt_id", receipt.ID.String()),
		zap.Int("pages", result.PageCount),
		zap.Duration("duration", result.RenderDuration),
	)
	return result.PDFData, nil
}

// footer numbers pages; a roll prints as one page and needs none
func (p *ReceiptPrinter) footer() string {
	if p.cfg.PaperSize.IsRoll() {
		return ""
	}
	return receiptFooter
}

func receiptName(r appledger.ReceiptResponse) string {
	if r.Folio != nil {
		return *r.Folio
	}
	return r.ID.String()
}

var _ appledger.ReceiptPrinter = (*ReceiptPrinter)(nil)
