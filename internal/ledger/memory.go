package ledger

import (
	"context"
	"sync"
)

// MemoryLedger is an in-memory Ledger used by tests and dry runs.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]Entry
	events  []Event
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]Entry)}
}

func (l *MemoryLedger) Get(_ context.Context, signature string) (*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[signature]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (l *MemoryLedger) Put(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.entries[entry.Signature]; ok && existing.Completed {
		return nil
	}
	l.entries[entry.Signature] = entry
	return nil
}

func (l *MemoryLedger) Delete(_ context.Context, signature string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, signature)
	return nil
}

func (l *MemoryLedger) AppendEvent(_ context.Context, event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
	return nil
}

// Events returns a copy of the appended run-log.
func (l *MemoryLedger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
