package ledger

import (
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLanguage is used for human-readable messages when none is configured
const DefaultLanguage = "es-MX"

const (
	msgRepairNone    = "No defective receipts found"
	msgRepairDone    = "%d receipts repaired"
	msgRepairPartial = "%d receipts repaired, %d failed"
	msgAmount        = "%.2f %s"
	msgPlanApplied   = "Payment of %s applied to %d receipts"
)

func init() {
	for _, tag := range []language.Tag{language.Spanish, language.LatinAmericanSpanish} {
		_ = message.SetString(tag, msgRepairNone, "No se encontraron recibos defectuosos")
		_ = message.SetString(tag, msgRepairDone, "%d recibos reparados")
		_ = message.SetString(tag, msgRepairPartial, "%d recibos reparados, %d con error")
		_ = message.SetString(tag, msgPlanApplied, "Pago de %s aplicado a %d recibos")
	}
}

// Messages renders operator-facing text in the configured language
type Messages struct {
	printer *message.Printer
}

// NewMessages creates a Messages for a BCP 47 language tag. Unknown tags fall back to DefaultLanguage.
func NewMessages(lang string) *Messages {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.MustParse(DefaultLanguage)
	}
	return &Messages{printer: message.NewPrinter(tag)}
}

// RepairSummary describes the outcome of a repair run
func (m *Messages) RepairSummary(repaired, failed int) string {
	switch {
	case repaired == 0 && failed == 0:
		return m.printer.Sprintf(msgRepairNone)
	case failed == 0:
		return m.printer.Sprintf(msgRepairDone, repaired)
	default:
		return m.printer.Sprintf(msgRepairPartial, repaired, failed)
	}
}

// PlanApplied describes a committed allocation plan
func (m *Messages) PlanApplied(total decimal.Decimal, currency valueobject.Currency, receipts int) string {
	return m.printer.Sprintf(msgPlanApplied, m.Amount(total, currency), receipts)
}

// Amount formats an amount with locale digit grouping
func (m *Messages) Amount(amount decimal.Decimal, currency valueobject.Currency) string {
	return m.printer.Sprintf(msgAmount, amount.Round(valueobject.MoneyScale).InexactFloat64(), string(currency))
}
