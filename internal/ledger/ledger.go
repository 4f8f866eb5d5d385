// Package ledger persists batch completion records so a finished migration
// is never re-executed, even across process restarts.
package ledger

import (
	"context"
	"time"
)

// Entry is the completion record for one batch signature.
type Entry struct {
	Signature    string    `json:"signature"`
	Completed    bool      `json:"completed"`
	CompletedAt  time.Time `json:"completed_at"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	// CampaignIDs holds the exact id set, for verification.
	CampaignIDs []string `json:"campaign_ids"`
}

// Ledger is consulted once before a run starts and written once when the
// run first completes. Get returns (nil, nil) for an unknown signature.
// Put must not overwrite an existing completed entry: the ledger reflects
// the first completion only.
type Ledger interface {
	Get(ctx context.Context, signature string) (*Entry, error)
	Put(ctx context.Context, entry Entry) error
}

// Event is one appended run-log record.
type Event struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// EventSink receives the orchestrator's log stream for durable auditing.
type EventSink interface {
	AppendEvent(ctx context.Context, event Event) error
}
