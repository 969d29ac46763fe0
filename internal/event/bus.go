package event

import (
	"time"
)

type (
	// Queueable is a unit of deferred work. Events that are not yet due
	// get requeued by the worker until their fire time arrives or they
	// expire.
	Queueable interface {
		Process()
		IsProcessed() bool
		Drop()
		IsDropped() bool
		Due() bool
		Expired() bool
		Type() string
	}

	Base struct {
		processed bool
		dropped   bool
		fireAt    time.Time
		expireAt  time.Time
		eventType string
	}

	Bus struct {
		q chan Queueable
	}
)

func CreateBase(eventType string, fireAt time.Time, expiresAt time.Time) *Base {
	return &Base{
		fireAt:    fireAt,
		expireAt:  expiresAt,
		eventType: eventType,
	}
}

func (b *Base) Process() {
	b.processed = true
}

func (b *Base) IsProcessed() bool {
	return b.processed
}

func (b *Base) Drop() {
	b.dropped = true
}

func (b *Base) IsDropped() bool {
	return b.dropped
}

func (b *Base) Due() bool {
	return !time.Now().Before(b.fireAt)
}

func (b *Base) Expired() bool {
	return time.Now().After(b.expireAt)
}

func (b *Base) Type() string {
	return b.eventType
}

func NewBus() *Bus {
	return &Bus{q: make(chan Queueable, 100000)}
}

func (b *Bus) NQ(event Queueable) {
	select {
	case b.q <- event:
	default:
	}
}

func (b *Bus) DQ() Queueable {
	select {
	case event := <-b.q:
		return event
	default:
		return nil
	}
}

func (b *Bus) Len() int {
	return len(b.q)
}
