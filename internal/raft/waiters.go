package raft

import (
	"sync"

	"github.com/google/uuid"

	"kvraft/internal/message"
)

// waiterTable correlates synchronous responses by ref_uuid. Replaces
// the reference's "pop the incoming queue, check, re-enqueue if it
// doesn't match" loop: the dispatcher looks up pending waiters by
// ref_uuid and hands the message off directly (spec.md §9
// Re-architected Patterns), avoiding queue thrash and the hazard of a
// heartbeat silently discarding someone else's correlated response.
type waiterTable struct {
	mu      sync.Mutex
	waiting map[uuid.UUID]chan message.Message
}

func newWaiterTable() *waiterTable {
	return &waiterTable{waiting: make(map[uuid.UUID]chan message.Message)}
}

// register creates a channel that will receive the one reply
// correlated to requestID, if any arrives before the caller gives up.
func (w *waiterTable) register(requestID uuid.UUID) chan message.Message {
	ch := make(chan message.Message, 1)
	w.mu.Lock()
	w.waiting[requestID] = ch
	w.mu.Unlock()
	return ch
}

// forget removes a waiter, e.g. after its timeout fires.
func (w *waiterTable) forget(requestID uuid.UUID) {
	w.mu.Lock()
	delete(w.waiting, requestID)
	w.mu.Unlock()
}

// deliver hands msg to the waiter registered for its RefUUID, if any.
// Returns true if a waiter was found (and the message consumed by
// correlation, rather than needing ordinary dispatch).
func (w *waiterTable) deliver(msg message.Message) bool {
	if msg.RefUUID == nil {
		return false
	}
	w.mu.Lock()
	ch, ok := w.waiting[*msg.RefUUID]
	if ok {
		delete(w.waiting, *msg.RefUUID)
	}
	w.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
	default:
		// Waiter already gave up and isn't reading; drop silently.
	}
	return true
}
