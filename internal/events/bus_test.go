package events_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kimhons/lumina-ai-sub002/internal/events"
	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

func receiveOne(
	t *testing.T, ch <-chan *api.Event,
) *api.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublishFanOut(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	first := bus.NewConsumer()
	defer first.Close()
	second := bus.NewConsumer()
	defer second.Close()

	bus.Publish(&api.Event{
		Type:       api.EventWorkflowStarted,
		InstanceID: "inst-1",
	})

	ev := receiveOne(t, first.Receive())
	assert.Equal(t, api.EventWorkflowStarted, ev.Type)
	assert.False(t, ev.Time.IsZero())

	ev = receiveOne(t, second.Receive())
	assert.Equal(t, api.InstanceID("inst-1"), ev.InstanceID)
}

func TestPublishDropsUntyped(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	cons := bus.NewConsumer()
	defer cons.Close()

	bus.Publish(nil)
	bus.Publish(&api.Event{InstanceID: "inst-1"})
	bus.Publish(&api.Event{Type: api.EventStepCompleted})

	ev := receiveOne(t, cons.Receive())
	assert.Equal(t, api.EventStepCompleted, ev.Type)
}

func TestFilters(t *testing.T) {
	started := &api.Event{
		Type:       api.EventWorkflowStarted,
		InstanceID: "inst-1",
	}
	completed := &api.Event{
		Type:       api.EventWorkflowCompleted,
		InstanceID: "inst-2",
	}

	byInstance := events.FilterInstance("inst-1")
	assert.True(t, byInstance(started))
	assert.False(t, byInstance(completed))

	byType := events.FilterTypes(
		api.EventWorkflowCompleted, api.EventWorkflowFailed,
	)
	assert.False(t, byType(started))
	assert.True(t, byType(completed))

	both := events.AndFilters(byInstance, byType)
	assert.False(t, both(started))
	assert.False(t, both(completed))
}
