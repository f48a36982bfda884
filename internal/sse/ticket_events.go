package sse

import (
	"context"
	"sync"

	"ms-invites/internal/models"
)

const clientBuffer = 16

// Event is one server-sent event. Name becomes the "event:" field and Data
// is JSON encoded into "data:".
type Event struct {
	Name string
	Data any
}

// TicketEventEmitter fans ticket events out to connected dashboard clients.
// Slow clients miss events rather than block issuance.
type TicketEventEmitter struct {
	mu      sync.RWMutex
	clients map[chan Event]struct{}
}

func NewTicketEventEmitter() *TicketEventEmitter {
	return &TicketEventEmitter{clients: make(map[chan Event]struct{})}
}

// Subscribe registers a client until ctx is done, then closes its channel.
func (e *TicketEventEmitter) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, clientBuffer)

	e.mu.Lock()
	e.clients[ch] = struct{}{}
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.mu.Lock()
		delete(e.clients, ch)
		close(ch)
		e.mu.Unlock()
	}()

	return ch
}

func (e *TicketEventEmitter) PublishTicketIssued(_ context.Context, event models.TicketIssuedEvent) error {
	e.emit(Event{Name: "issued", Data: event})
	return nil
}

func (e *TicketEventEmitter) PublishTicketsPurged(_ context.Context, event models.TicketsPurgedEvent) error {
	e.emit(Event{Name: "purged", Data: event})
	return nil
}

// emit holds the read lock while sending so no channel is closed mid-send.
func (e *TicketEventEmitter) emit(event Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for ch := range e.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (e *TicketEventEmitter) ClientCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients)
}
