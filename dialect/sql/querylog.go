package sql

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultQueryLogSize is the number of entries kept by a query log when no
// capacity is configured.
const DefaultQueryLogSize = 256

// LogEntry is a single executed statement.
type LogEntry struct {
	ID       uuid.UUID
	SQL      string
	Args     []any
	Duration time.Duration
	Err      error
	At       time.Time
}

// String returns the statement with its arguments inlined, for diagnostics only.
func (e LogEntry) String() string {
	var (
		b     strings.Builder
		n     int
		quote byte
	)
	for i := 0; i < len(e.SQL); i++ {
		ch := e.SQL[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '?' && n < len(e.Args):
			b.WriteString(literal(e.Args[n]))
			n++
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

func literal(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
	case time.Time:
		return "'" + v.Format(time.RFC3339Nano) + "'"
	default:
		return fmt.Sprint(v)
	}
}

// QueryLog is a bounded, concurrency-safe ring buffer of executed statements.
// Once full, every new entry evicts the oldest one. A nil log or a log with
// zero capacity records nothing.
type QueryLog struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

// NewQueryLog returns a log keeping the last capacity entries.
func NewQueryLog(capacity int) *QueryLog {
	if capacity < 0 {
		capacity = 0
	}
	return &QueryLog{entries: make([]LogEntry, capacity)}
}

// Cap returns the capacity of the log.
func (l *QueryLog) Cap() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// Add records an entry, assigning it an ID if it has none.
func (l *QueryLog) Add(e LogEntry) {
	if l == nil || len(l.entries) == 0 {
		return
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Len returns the number of entries held.
func (l *QueryLog) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// Entries returns a copy of the held entries, oldest first.
func (l *QueryLog) Entries() []LogEntry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]LogEntry(nil), l.entries[:l.next]...)
	}
	out := make([]LogEntry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}

// Reset drops every entry.
func (l *QueryLog) Reset() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.entries)
	l.next, l.full = 0, false
}
