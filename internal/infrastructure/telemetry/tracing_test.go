package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestStartServiceSpan(t *testing.T) {
	recorder := installRecorder(t)
	paymentID := uuid.New()

	ctx, span := telemetry.StartServiceSpan(context.Background(), "allocation", "apply",
		telemetry.SpanAttrPaymentID, paymentID,
		telemetry.SpanAttrPlanSize, 2,
		42, "non-string key",
	)
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())

	telemetry.SetAttributes(span, telemetry.SpanAttrAmount, decimal.RequireFromString("300.50"), "dangling")
	telemetry.SetAttribute(span, telemetry.SpanAttrStudentID, []string{"s-1"})
	telemetry.SetAttribute(span, "fully_paid", true)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, "allocation.apply", got.Name())
	assert.Equal(t, trace.SpanKindInternal, got.SpanKind())
	assert.Len(t, got.Attributes(), 5)

	v, ok := spanAttr(got, telemetry.SpanAttrPaymentID)
	require.True(t, ok)
	assert.Equal(t, paymentID.String(), v.AsString())
	v, _ = spanAttr(got, telemetry.SpanAttrPlanSize)
	assert.Equal(t, int64(2), v.AsInt64())
	v, _ = spanAttr(got, telemetry.SpanAttrAmount)
	assert.Equal(t, "300.5", v.AsString())
	v, _ = spanAttr(got, "fully_paid")
	assert.True(t, v.AsBool())
}

func TestRecordError(t *testing.T) {
	recorder := installRecorder(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "repair", "run")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("receipt r-1 locked"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "receipt r-1 locked", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "exception", ended[0].Events()[0].Name)
}

func TestSpanHelpersTolerateNil(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
	})
}
