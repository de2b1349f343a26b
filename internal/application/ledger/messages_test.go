package ledger

import (
	"testing"

	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
)

func TestMessages_RepairSummary(t *testing.T) {
	es := NewMessages("es-MX")
	assert.Equal(t, "3 recibos reparados", es.RepairSummary(3, 0))
	assert.Equal(t, "3 recibos reparados, 2 con error", es.RepairSummary(3, 2))
	assert.Equal(t, "No se encontraron recibos defectuosos", es.RepairSummary(0, 0))

	en := NewMessages("en")
	assert.Equal(t, "3 receipts repaired", en.RepairSummary(3, 0))
}

func TestMessages_FallsBackToDefaultLanguage(t *testing.T) {
	m := NewMessages("not a tag!")
	assert.Equal(t, "1 recibos reparados", m.RepairSummary(1, 0))
}

func TestMessages_Amount(t *testing.T) {
	en := NewMessages("en")
	assert.Equal(t, "1,250.50 MXN", en.Amount(dec("1250.5"), valueobject.MXN))
	assert.Equal(t, "Payment of 600.00 MXN applied to 2 receipts", en.PlanApplied(dec("600"), valueobject.MXN, 2))
}
