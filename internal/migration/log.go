package migration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crmtools/brz2moe/internal/ledger"
)

// EventLevel classifies a run-log entry.
type EventLevel string

const (
	LevelInfo    EventLevel = "info"
	LevelSuccess EventLevel = "success"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// Event is one append-only, timestamped run-log entry.
type Event struct {
	Timestamp time.Time  `json:"timestamp"`
	Level     EventLevel `json:"level"`
	Message   string     `json:"message"`
}

// Log is the orchestrator's append-only event sequence. Entries are
// timestamped at emission, mirrored to slog, and optionally streamed to a
// persistent sink for auditing.
type Log struct {
	mu      sync.Mutex
	runID   string
	entries []Event
	logger  *slog.Logger
	sink    ledger.EventSink
	now     func() time.Time
}

func NewLog(runID string, logger *slog.Logger, sink ledger.EventSink) *Log {
	return &Log{
		runID:  runID,
		logger: logger,
		sink:   sink,
		now:    time.Now,
	}
}

// Append records one event. Sink failures are reported to slog but never
// interrupt the run.
func (l *Log) Append(level EventLevel, message string) {
	l.mu.Lock()
	event := Event{Timestamp: l.now(), Level: level, Message: message}
	l.entries = append(l.entries, event)
	l.mu.Unlock()

	switch level {
	case LevelWarning:
		l.logger.Warn(message)
	case LevelError:
		l.logger.Error(message)
	default:
		l.logger.Info(message)
	}

	if l.sink != nil {
		err := l.sink.AppendEvent(context.Background(), ledger.Event{
			RunID:     l.runID,
			Timestamp: event.Timestamp,
			Level:     string(level),
			Message:   message,
		})
		if err != nil {
			l.logger.Warn("Failed to persist run event", "error", err)
		}
	}
}

// Events returns a copy of the appended sequence in emission order.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.entries))
	copy(out, l.entries)
	return out
}
