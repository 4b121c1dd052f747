package server

import "time"

// EventKind enumerates the observable state changes of the engine.
type EventKind int

const (
	// EventConnected: a connection was accepted and registered.
	EventConnected EventKind = iota
	// EventAuthorized: a session completed login.
	EventAuthorized
	// EventDisconnected: a session was removed, whatever the cause.
	EventDisconnected
	// EventBroadcast: a message was relayed to the authorized sessions.
	EventBroadcast
)

// Event is one observable state change. Events carry copies of session data
// so subscribers never touch live sessions.
type Event struct {
	Kind     EventKind
	Remote   string
	Nickname string
	Content  string
	At       time.Time
}

// Subscribe returns a channel that receives every subsequent engine event.
// Delivery is non-blocking: a subscriber that falls behind misses events
// rather than stalling the engine.
func (e *Engine) Subscribe() <-chan Event {
	ch := make(chan Event, 64)
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subscribers = append(e.subscribers, ch)
	return ch
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}
