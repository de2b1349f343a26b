package telemetry_test

import (
	"context"
	"runtime/pprof"
	"strings"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
)

func labelOf(ctx context.Context, key string) string {
	v, _ := pprof.Label(ctx, key)
	return v
}

func TestWithProfilingLabels_EmptyLabels(t *testing.T) {
	for _, labels := range []map[string]string{nil, {}, {"receipt_id": "r-1"}} {
		called := false
		telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
			called = true
			assert.Empty(t, labelOf(c, "receipt_id"))
		})
		assert.True(t, called)
	}
}

func TestWithProfilingLabels_Sanitizes(t *testing.T) {
	labels := map[string]string{
		"operation":  telemetry.OperationApplyPlan,
		"receipt_id": "2f6c0f5e-1111-4c1e-9a4e-000000000001",
		"payment_id": "2f6c0f5e-1111-4c1e-9a4e-000000000002",
		"My-Key!":    "kept",
		"route":      strings.Repeat("x", 200),
		"method":     "",
	}

	telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
		assert.Equal(t, telemetry.OperationApplyPlan, labelOf(c, "operation"))
		assert.Empty(t, labelOf(c, "receipt_id"), "entity ids stay off profiles")
		assert.Empty(t, labelOf(c, "payment_id"))
		assert.Equal(t, "kept", labelOf(c, "my_key"))
		assert.Len(t, labelOf(c, "route"), telemetry.MaxLabelValueLength)
		_, ok := pprof.Label(c, "method")
		assert.False(t, ok, "empty values dropped")
	})
}

func TestHTTPRequestLabels(t *testing.T) {
	labels := telemetry.HTTPRequestLabels("recibos", "/api/v1/recibos", "GET")
	assert.Equal(t, map[string]string{
		telemetry.ProfilingLabelController: "recibos",
		telemetry.ProfilingLabelRoute:      "/api/v1/recibos",
		telemetry.ProfilingLabelMethod:     "GET",
	}, labels)

	assert.Len(t, telemetry.HTTPRequestLabels("recibos", "", ""), 1)
	assert.Empty(t, telemetry.HTTPRequestLabels("", "", ""))
}

func TestOperationLabels(t *testing.T) {
	extra := map[string]string{telemetry.ProfilingLabelJob: "cash_cut_archive"}
	labels := telemetry.OperationLabels(telemetry.OperationCashCut, extra)
	assert.Equal(t, telemetry.OperationCashCut, labels[telemetry.ProfilingLabelOperation])
	assert.Equal(t, "cash_cut_archive", labels[telemetry.ProfilingLabelJob])
	assert.NotContains(t, extra, telemetry.ProfilingLabelOperation, "extra labels are not modified")

	assert.Equal(t, map[string]string{telemetry.ProfilingLabelOperation: telemetry.OperationRepairReceipts},
		telemetry.OperationLabels(telemetry.OperationRepairReceipts, nil))
}

func TestNestedProfilingLabels(t *testing.T) {
	type key string
	ctx := context.WithValue(context.Background(), key("k"), "v")

	telemetry.WithProfilingLabels(ctx, map[string]string{"controller": "pagos"}, func(outer context.Context) {
		telemetry.WithProfilingLabels(outer, telemetry.OperationLabels(telemetry.OperationApplyPlan, nil), func(inner context.Context) {
			assert.Equal(t, "pagos", labelOf(inner, "controller"))
			assert.Equal(t, telemetry.OperationApplyPlan, labelOf(inner, "operation"))
			assert.Equal(t, "v", inner.Value(key("k")))
		})
	})
}
