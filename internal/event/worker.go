package event

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Worker drains the bus, dispatching due events to their subscribers and
// requeueing the rest. Unsubscribed and unprocessed events circulate
// until they expire.
type Worker struct {
	bus           *Bus
	subscriptions map[string][]func(event Queueable)

	runMutex sync.Mutex
	started  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewWorker(bus *Bus) *Worker {
	return &Worker{
		bus:           bus,
		subscriptions: map[string][]func(event Queueable){},
	}
}

// Subscribe registers a handler for an event type. Not safe to call
// after Start.
func (w *Worker) Subscribe(eventType string, handler func(event Queueable)) {
	w.subscriptions[eventType] = append(w.subscriptions[eventType], handler)
}

func (w *Worker) Start(ctx context.Context) error {
	w.runMutex.Lock()
	defer w.runMutex.Unlock()
	if w.started {
		return nil
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.started = true

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		l := log.WithField("context", "event_worker")
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				l.Info("shutting down event worker by cancelled context")
				return
			case <-ticker.C:
				w.drain(l)
			}
		}
	}()
	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	w.runMutex.Lock()
	defer w.runMutex.Unlock()
	if !w.started {
		return nil
	}
	w.cancel()
	w.wg.Wait()
	w.started = false
	return nil
}

func (w *Worker) drain(l *log.Entry) {
	// Only touch what is queued right now, a requeued event must wait
	// for the next tick instead of spinning in this loop.
	for pending := w.bus.Len(); pending > 0; pending-- {
		event := w.bus.DQ()
		if event == nil {
			return
		}
		if event.Expired() {
			continue
		}
		if !event.Due() {
			w.bus.NQ(event)
			continue
		}

		subscribers, ok := w.subscriptions[event.Type()]
		if !ok {
			w.bus.NQ(event)
			continue
		}
		for _, sub := range subscribers {
			sub(event)
			if event.IsDropped() {
				break
			}
		}
		if event.IsDropped() {
			continue
		}
		if !event.IsProcessed() {
			w.bus.NQ(event)
		}
	}
	if pending := w.bus.Len(); pending > 1000 {
		l.Debugf("unprocessed queue length: %d", pending)
	}
}
