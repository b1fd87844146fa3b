package events

import (
	"log"
	"sync"
	"time"
)

// Event names emitted by the usage session state machine.
const (
	UsageStarted   = "resource.usage.started"
	UsageEnded     = "resource.usage.ended"
	UsageTakenOver = "resource.usage.taken_over"
)

// UsageStartedEvent is emitted when a user opens a fresh session on an idle
// resource.
type UsageStartedEvent struct {
	ResourceID uint      `json:"resource_id"`
	SessionID  uint      `json:"session_id"`
	UserID     uint      `json:"user_id"`
	StartTime  time.Time `json:"start_time"`
}

// UsageEndedEvent is emitted when a session is closed by its owner or a
// resource manager.
type UsageEndedEvent struct {
	ResourceID uint      `json:"resource_id"`
	SessionID  uint      `json:"session_id"`
	UserID     uint      `json:"user_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// UsageTakenOverEvent is emitted when a new user forcibly takes control of a
// resource, closing the previous owner's session.
type UsageTakenOverEvent struct {
	ResourceID     uint      `json:"resource_id"`
	SessionID      uint      `json:"session_id"`
	PreviousUserID uint      `json:"previous_user_id"`
	NewUserID      uint      `json:"new_user_id"`
	TakenOverAt    time.Time `json:"taken_over_at"`
}

// Handler consumes one emitted event.
type Handler func(event string, payload interface{})

// Bus is a small in-process event emitter. Emit is fire-and-forget: handlers
// run on their own goroutines and a failing or panicking handler can never
// fail the operation that emitted the event.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers a handler for an event name.
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit dispatches the payload to all handlers registered for the event.
func (b *Bus) Emit(event string, payload interface{}) {
	b.mu.RLock()
	handlers := b.handlers[event]
	b.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("event handler panic for %s: %v", event, r)
				}
			}()
			h(event, payload)
		}(handler)
	}
}
