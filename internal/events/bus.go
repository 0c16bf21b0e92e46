// Package events carries workflow lifecycle notifications from the execution
// engine to interested subscribers, such as the WebSocket streaming endpoint
// and the agent notification hooks.
package events

import (
	"sync"
	"time"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/message"
	"github.com/kode4food/caravan/topic"

	"github.com/kimhons/lumina-ai-sub002/pkg/api"
)

// Bus is a fan-out topic of workflow events. Every consumer observes every
// event published after it subscribed
type Bus struct {
	topic     topic.Topic[*api.Event]
	prod      topic.Producer[*api.Event]
	closeOnce sync.Once
}

// NewBus creates an event bus backed by an in-process topic
func NewBus() *Bus {
	t := caravan.NewTopic[*api.Event]()
	return &Bus{
		topic: t,
		prod:  t.NewProducer(),
	}
}

// Publish emits an event to all current subscribers. Events with no type are
// dropped
func (b *Bus) Publish(ev *api.Event) {
	if ev == nil || ev.Type == "" {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	message.Send(b.prod, ev)
}

// NewConsumer subscribes to events published from this point on. The caller
// owns the consumer and must Close it
func (b *Bus) NewConsumer() topic.Consumer[*api.Event] {
	return b.topic.NewConsumer()
}

// Close stops the bus producer. Outstanding consumers drain and then see
// their channels closed
func (b *Bus) Close() {
	b.closeOnce.Do(func() {
		b.prod.Close()
	})
}
