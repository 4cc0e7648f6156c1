package rpc

import (
	"context"
	"sync"

	"restakevault/core/events"
	"restakevault/core/types"
)

const (
	hubBacklogSize   = 256
	subscriberBuffer = 64
)

type eventPayloader interface {
	Event() *types.Event
}

// EventHub receives engine events and fans them out to websocket
// subscribers, retaining a bounded backlog for late joiners.
type EventHub struct {
	mu          sync.Mutex
	backlog     []*types.Event
	subscribers map[uint64]chan *types.Event
	nextSubID   uint64
}

var _ events.Emitter = (*EventHub)(nil)

// NewEventHub constructs an empty hub.
func NewEventHub() *EventHub {
	return &EventHub{subscribers: make(map[uint64]chan *types.Event)}
}

// Emit records the event and delivers it to all live subscribers. Slow
// subscribers are skipped rather than blocking the engine.
func (h *EventHub) Emit(evt events.Event) {
	if h == nil || evt == nil {
		return
	}
	payloader, ok := evt.(eventPayloader)
	if !ok {
		return
	}
	payload := payloader.Event()
	if payload == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.backlog = append(h.backlog, payload)
	if len(h.backlog) > hubBacklogSize {
		h.backlog = h.backlog[len(h.backlog)-hubBacklogSize:]
	}
	for _, ch := range h.subscribers {
		select {
		case ch <- payload:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel, a cancel
// function and a copy of the retained backlog.
func (h *EventHub) Subscribe(ctx context.Context) (<-chan *types.Event, func(), []*types.Event) {
	h.mu.Lock()
	id := h.nextSubID
	h.nextSubID++
	ch := make(chan *types.Event, subscriberBuffer)
	h.subscribers[id] = ch
	backlog := make([]*types.Event, len(h.backlog))
	copy(backlog, h.backlog)
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if existing, ok := h.subscribers[id]; ok {
			delete(h.subscribers, id)
			close(existing)
		}
		h.mu.Unlock()
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, backlog
}
