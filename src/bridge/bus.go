package bridge

import (
	"log"
	"sync"
)

// Event is one named notification with its payload.
type Event struct {
	Name    string
	Payload any
}

// Handler receives events for a subscription. Handlers run on the bus
// dispatch goroutine; they must not block.
type Handler func(Event)

// Unsubscribe releases one subscription. Safe to call more than once.
type Unsubscribe func()

// Bus is a typed publish/subscribe channel per notification kind. A single
// dispatch goroutine drains a FIFO queue, so events reach subscribers in the
// order they were published regardless of which goroutine published them.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]map[int]Handler
	nextID int
	queue  chan Event
	stop   chan struct{}
	done   chan struct{}
	closed bool
}

// NewBus creates a bus and starts its dispatch goroutine.
func NewBus() *Bus {
	b := &Bus{
		subs:  make(map[string]map[int]Handler),
		queue: make(chan Event, 64),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for {
		select {
		case ev := <-b.queue:
			b.deliver(ev)
		case <-b.stop:
			// Drain what was queued before shutdown, then exit.
			for {
				select {
				case ev := <-b.queue:
					b.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) deliver(ev Event) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[ev.Name]))
	for _, h := range b.subs[ev.Name] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Subscribe registers a handler for one notification name and returns the
// unsubscribe handle. Callers owning a UI component must call it on teardown
// to avoid duplicate handling across remounts.
func (b *Bus) Subscribe(name string, h Handler) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.subs[name] == nil {
		b.subs[name] = make(map[int]Handler)
	}
	b.subs[name][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[name], id)
		})
	}
}

// Publish enqueues an event for ordered delivery. The queue channel is never
// closed, so a publisher blocked on a full queue is woken by the stop channel
// and the event is dropped with a log line instead of panicking.
func (b *Bus) Publish(name string, payload any) {
	select {
	case b.queue <- Event{Name: name, Payload: payload}:
	case <-b.stop:
		log.Printf("bridge: dropping %s published after close", name)
	}
}

// Close stops dispatch after draining queued events. Publishes that race with
// or follow Close are dropped, never fatal.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()
	close(b.stop)
	<-b.done
}
