package server

import (
	"sync"
	"time"
)

// HistoryEntry is one broadcast message: what was said, by whom, and when.
type HistoryEntry struct {
	Content  string
	Nickname string
	At       time.Time
}

// History is the append-only, insertion-ordered log of every broadcast
// message. It is unbounded and never truncated while the server runs; the
// full log is replayed to each newly authorized session.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
}

// NewHistory creates an empty log.
func NewHistory() *History {
	return &History{}
}

// Append records one broadcast message.
func (h *History) Append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, e)
}

// Snapshot returns a copy of the log in insertion order.
func (h *History) Snapshot() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of recorded messages.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
