package channel

import (
	"sync"

	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/internal/log"
	"github.com/Aafrith/learning-system-with-eye-and-emotion-tracking-sub000/pkg/protocol"
)

// Handler receives one inbound envelope.
type Handler func(env *protocol.Envelope)

// Unsubscribe removes a previously registered handler. Calling it more
// than once is a no-op.
type Unsubscribe func()

type handlerEntry struct {
	id int
	fn Handler
}

// Router fans inbound envelopes out to typed subscribers. Multiple
// handlers may subscribe to the same type; protocol.TypeWildcard
// handlers observe every envelope after the exact-type handlers.
//
// Dispatch is called from the manager's read loop only, so envelopes
// reach subscribers in transport order.
type Router struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[protocol.MessageType][]handlerEntry
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[protocol.MessageType][]handlerEntry),
	}
}

// Subscribe registers a handler for a message type and returns its
// unsubscribe handle. Handlers for one type run in registration order.
func (r *Router) Subscribe(msgType protocol.MessageType, fn Handler) Unsubscribe {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers[msgType] = append(r.handlers[msgType], handlerEntry{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		entries := r.handlers[msgType]
		for i, e := range entries {
			if e.id == id {
				r.handlers[msgType] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// Dispatch delivers an envelope to all exact-type handlers, then to
// wildcard handlers. A panicking handler is logged and skipped so it
// cannot block delivery to the others.
func (r *Router) Dispatch(env *protocol.Envelope) {
	r.mu.RLock()
	exact := append([]handlerEntry(nil), r.handlers[env.Type]...)
	wild := append([]handlerEntry(nil), r.handlers[protocol.TypeWildcard]...)
	r.mu.RUnlock()

	for _, e := range exact {
		safeInvoke(e.fn, env)
	}
	for _, e := range wild {
		safeInvoke(e.fn, env)
	}
}

// Clear drops every registered handler.
func (r *Router) Clear() {
	r.mu.Lock()
	r.handlers = make(map[protocol.MessageType][]handlerEntry)
	r.mu.Unlock()
}

func safeInvoke(fn Handler, env *protocol.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("message handler panicked", "type", env.Type, "panic", rec)
		}
	}()
	fn(env)
}
