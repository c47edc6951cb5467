// Package journal keeps a bounded in-memory event feed for status surfaces
// and an append-only JSONL trail of trade decisions.
package journal

import (
	"sync"
	"time"
)

// Level tags a feed entry for display.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Entry is one feed line.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Feed is a fixed-capacity ring of recent entries. Appends past capacity
// evict the oldest entry.
type Feed struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	count   int
}

const defaultCapacity = 100

// NewFeed builds a feed holding up to capacity entries.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Feed{entries: make([]Entry, capacity)}
}

// Append adds an entry, evicting the oldest when full.
func (f *Feed) Append(level Level, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := (f.start + f.count) % len(f.entries)
	f.entries[idx] = Entry{Time: time.Now(), Level: level, Message: message}
	if f.count < len(f.entries) {
		f.count++
	} else {
		f.start = (f.start + 1) % len(f.entries)
	}
}

// Recent returns up to n entries, oldest first.
func (f *Feed) Recent(n int) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n <= 0 || n > f.count {
		n = f.count
	}
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = f.entries[(f.start+f.count-n+i)%len(f.entries)]
	}
	return out
}

// Len reports the number of retained entries.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// Clear drops all entries.
func (f *Feed) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start, f.count = 0, 0
}
