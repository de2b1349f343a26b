package telemetry

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profile label keys
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelJob        = "job"
	ProfilingLabelOperation  = "operation"
)

// Ledger operations profiled under their own label
const (
	OperationApplyPlan      = "apply_plan"
	OperationRepairReceipts = "repair_receipts"
	OperationCashCut        = "cash_cut"
	OperationRefreshOverdue = "refresh_overdue"
)

// MaxLabelValueLength caps label values; longer values are truncated
const MaxLabelValueLength = 128

// entityLabels are per-record identifiers. Every distinct value would become
// its own profile series, so they belong on spans only.
var entityLabels = map[string]bool{
	"receipt_id":      true,
	"payment_id":      true,
	"allocation_id":   true,
	"student_id":      true,
	"operator_id":     true,
	"request_id":      true,
	"trace_id":        true,
	"span_id":         true,
	"idempotency_key": true,
}

// WithProfilingLabels runs fn with labels attached to the CPU and allocation
// samples it produces. Labels nest: fn sees the caller's labels too. Entity
// identifiers and empty values are dropped, keys are normalized to
// snake_case.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// HTTPRequestLabels labels one request by controller, route pattern and
// method. Empty parts are left out.
func HTTPRequestLabels(controller, route, method string) map[string]string {
	labels := make(map[string]string, 3)
	for key, value := range map[string]string{
		ProfilingLabelController: controller,
		ProfilingLabelRoute:      route,
		ProfilingLabelMethod:     method,
	} {
		if value != "" {
			labels[key] = value
		}
	}
	return labels
}

// OperationLabels labels a ledger operation plus any extra labels
func OperationLabels(operation string, extra map[string]string) map[string]string {
	labels := maps.Clone(extra)
	if labels == nil {
		labels = make(map[string]string, 1)
	}
	labels[ProfilingLabelOperation] = operation
	return labels
}

// labelPairs flattens labels into sorted key/value pairs
func labelPairs(labels map[string]string) []string {
	pairs := make([]string, 0, len(labels)*2)
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		value := labels[key]
		if value == "" || entityLabels[key] {
			continue
		}
		key = labelKey(key)
		if key == "" {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, key, value)
	}
	return pairs
}

// labelKey lowercases key, turns spaces and dashes into underscores and
// drops anything else outside [a-z0-9_]
func labelKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-':
			return '_'
		}
		return -1
	}, key)
}
