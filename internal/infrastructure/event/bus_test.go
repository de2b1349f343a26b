package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, ledger.AggregateTypeReceipt, uuid.New()),
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(ledger.EventTypeAllocationApplied)
	bus.Subscribe(handler)

	applied := newTestEvent(ledger.EventTypeAllocationApplied)
	issued := newTestEvent(ledger.EventTypeReceiptIssued)
	require.NoError(t, bus.Publish(context.Background(), applied, issued))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, applied, handler.getHandled()[0])
	delivered, failed := bus.Stats()
	assert.EqualValues(t, 1, delivered)
	assert.Zero(t, failed)
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(nil)

	handler := newTestHandler(ledger.EventTypeReceiptIssued)
	bus.Subscribe(handler, ledger.EventTypePaymentVoided)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent(ledger.EventTypeReceiptIssued),
		newTestEvent(ledger.EventTypePaymentVoided),
	))
	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, ledger.EventTypePaymentVoided, handler.getHandled()[0].EventType())
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcard := newTestHandler()
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent(ledger.EventTypeReceiptRepaired),
		newTestEvent(ledger.EventTypeReceiptWaived),
	))
	assert.Len(t, wildcard.getHandled(), 2)
}

func TestInMemoryEventBus_FailuresDoNotStopDelivery(t *testing.T) {
	core, recorded := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))

	failing := newTestHandler(ledger.EventTypeReceiptPaidOff)
	failing.err = errors.New("audit sink down")
	panicking := newTestHandler(ledger.EventTypeReceiptPaidOff)
	panicking.panicWith = "boom"
	healthy := newTestHandler(ledger.EventTypeReceiptPaidOff)
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(ledger.EventTypeReceiptPaidOff)))

	assert.Len(t, healthy.getHandled(), 1)
	assert.Equal(t, 2, recorded.FilterMessage("handler failed to process event").Len())
	delivered, failed := bus.Stats()
	assert.EqualValues(t, 1, delivered)
	assert.EqualValues(t, 2, failed)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(ledger.EventTypePaymentRegistered)
	bus.Subscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent(ledger.EventTypePaymentRegistered))

	bus.Unsubscribe(handler)
	_ = bus.Publish(context.Background(), newTestEvent(ledger.EventTypePaymentRegistered))

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, bus.Start(ctx))
	assert.True(t, bus.Running())
	require.NoError(t, bus.Stop(ctx))
	assert.False(t, bus.Running())
}

func TestInMemoryEventBus_SpanPerDelivery(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	bus := NewInMemoryEventBus(zap.NewNop())
	bus.tracer = tp.Tracer("test")

	failing := newTestHandler(ledger.EventTypeReceiptCancelled)
	failing.err = errors.New("nope")
	bus.Subscribe(failing)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(ledger.EventTypeReceiptCancelled)))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "event.ReceiptCancelled", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}
