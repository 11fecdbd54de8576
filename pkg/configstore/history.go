package configstore

import (
	"fmt"
	"time"

	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
)

// HistoryEntry is a committed snapshot of the flattened lines of one scope.
type HistoryEntry struct {
	Lines     []string      `json:"lines" yaml:"lines"`
	Stats     flatten.Stats `json:"stats" yaml:"stats"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Comment   string        `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// History is a ring buffer of snapshots for rollback and compare.
type History struct {
	entries []*HistoryEntry
	maxSize int
}

// NewHistory creates a new History with the given maximum size.
func NewHistory(maxSize int) *History {
	if maxSize < 1 {
		maxSize = 1
	}
	return &History{
		maxSize: maxSize,
	}
}

// Push adds a snapshot to the history, evicting the oldest when full.
func (h *History) Push(entry *HistoryEntry) {
	h.entries = append(h.entries, entry)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[1:]
	}
}

// Get returns the nth most recent history entry (0 = most recent).
func (h *History) Get(n int) (*HistoryEntry, error) {
	if n < 0 || n >= len(h.entries) {
		return nil, fmt.Errorf("rollback %d: no such snapshot (have %d entries)",
			n+1, len(h.entries))
	}
	// entries are stored oldest-first, so index from the end
	idx := len(h.entries) - 1 - n
	return h.entries[idx], nil
}

// Len returns the number of history entries.
func (h *History) Len() int {
	return len(h.entries)
}

// MaxSize returns the maximum number of history entries.
func (h *History) MaxSize() int {
	return h.maxSize
}

// List returns all history entries, most recent first.
func (h *History) List() []*HistoryEntry {
	result := make([]*HistoryEntry, len(h.entries))
	for i, entry := range h.entries {
		result[len(h.entries)-1-i] = entry
	}
	return result
}
