// Package transcript holds the append-only logs a session accumulates.
package transcript

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

// TimeLayout is the wall-clock format shown next to each entry.
const TimeLayout = "15:04:05"

// Entry is one immutable log line.
type Entry struct {
	Time      string `json:"time"`
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// NewEntry stamps text with the local wall-clock time and an ISO creation time.
func NewEntry(text string, at time.Time) Entry {
	return Entry{
		Time:      at.Local().Format(TimeLayout),
		Text:      text,
		CreatedAt: at.UTC().Format(time.RFC3339Nano),
	}
}

// Log is an insertion-ordered, append-only list of entries.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Append(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a snapshot copy.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// At returns the entry at index i; negative indexes count from the end.
func (l *Log) At(i int) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 {
		i += len(l.entries)
	}
	if i < 0 || i >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Text joins every entry's text with single spaces, in log order.
func (l *Log) Text() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	parts := make([]string, len(l.entries))
	for i, e := range l.entries {
		parts[i] = e.Text
	}
	return strings.Join(parts, " ")
}

// WriteJSONLines writes one JSON object per entry.
func (l *Log) WriteJSONLines(w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, e := range l.Entries() {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
