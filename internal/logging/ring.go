package logging

import (
	"sync"
	"time"
)

// Entry is one captured log line.
type Entry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// Ring is a bounded log buffer. When full, the oldest entry is dropped.
// The dashboard reads snapshots of it; writers are the loggers.
type Ring struct {
	mu      sync.RWMutex
	entries []Entry
	head    int
	full    bool
}

// NewRing creates a ring holding at most capacity entries.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{entries: make([]Entry, capacity)}
}

// Push appends an entry, evicting the oldest when full.
func (r *Ring) Push(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.head] = e
	r.head = (r.head + 1) % len(r.entries)
	if r.head == 0 {
		r.full = true
	}
}

// Len reports the number of stored entries.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.full {
		return len(r.entries)
	}
	return r.head
}

// Tail returns up to n entries, oldest first.
func (r *Ring) Tail(n int) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.head
	start := 0
	if r.full {
		size = len(r.entries)
		start = r.head
	}
	if n > size {
		n = size
	}
	out := make([]Entry, 0, n)
	for i := size - n; i < size; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}
