package event

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	types    []string
	received []shared.DomainEvent
	fail     error
	panics   bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("boom")
	}
	h.received = append(h.received, event)
	return h.fail
}

func (h *recordingHandler) EventTypes() []string { return h.types }

func testEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New(), uuid.New())
	return &e
}

func TestPublish_RoutesByEventType(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	paid := &recordingHandler{types: []string{"billing.invoice.fully_paid"}}
	created := &recordingHandler{types: []string{"billing.invoice.created"}}
	bus.Subscribe(paid)
	bus.Subscribe(created)

	require.NoError(t, bus.Publish(context.Background(), testEvent("billing.invoice.created")))

	assert.Empty(t, paid.received)
	require.Len(t, created.received, 1)
	assert.Equal(t, "billing.invoice.created", created.received[0].EventType())
}

func TestPublish_WildcardReceivesAll(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	audit := &recordingHandler{}
	bus.Subscribe(audit)

	require.NoError(t, bus.Publish(context.Background(),
		testEvent("billing.invoice.created"),
		testEvent("quotation.converted"),
	))

	assert.Len(t, audit.received, 2)
}

func TestPublish_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := &recordingHandler{types: []string{"billing.invoice.created"}, fail: errors.New("db down")}
	healthy := &recordingHandler{types: []string{"billing.invoice.created"}}
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), testEvent("billing.invoice.created")))
	assert.Len(t, healthy.received, 1)
}

func TestPublish_HandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	panicking := &recordingHandler{types: []string{"billing.invoice.created"}, panics: true}
	healthy := &recordingHandler{types: []string{"billing.invoice.created"}}
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(context.Background(), testEvent("billing.invoice.created")))
	assert.Len(t, healthy.received, 1)
}

func TestSubscribe_ExplicitTypesOverrideHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := &recordingHandler{types: []string{"billing.invoice.created"}}
	bus.Subscribe(h, "quotation.converted")

	require.NoError(t, bus.Publish(context.Background(), testEvent("billing.invoice.created")))
	assert.Empty(t, h.received)

	require.NoError(t, bus.Publish(context.Background(), testEvent("quotation.converted")))
	assert.Len(t, h.received, 1)
}
