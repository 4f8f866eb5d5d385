package models

import "time"

// Phase is the orchestrator's state machine position.
type Phase string

const (
	PhasePreparing Phase = "preparing"
	PhaseMigrating Phase = "migrating"
	PhaseCompleted Phase = "completed"
)

// MigrationPhaseReached marks how far a single campaign got before its
// attempt settled.
type MigrationPhaseReached string

const (
	PhaseReachedFetch    MigrationPhaseReached = "fetched"
	PhaseReachedDispatch MigrationPhaseReached = "dispatched"
)

// OutcomeStatus is the terminal status of one campaign attempt.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
)

// DispatchResult is the destination service's answer to a draft-creation
// request. DraftID and the push-specific fields are optional; their absence
// is not an error.
type DispatchResult struct {
	Message           string         `json:"message"`
	DraftID           string         `json:"draft_id,omitempty"`
	DraftCreated      bool           `json:"draft_created"`
	PlatformsDetected []string       `json:"platforms_detected,omitempty"`
	Body              map[string]any `json:"body,omitempty"`
}

// MigrationOutcome records the result of attempting one campaign. Exactly
// one outcome exists per campaign id per attempt generation; a retry round
// produces a fresh outcome that supersedes the prior failure.
type MigrationOutcome struct {
	Campaign     CampaignRef           `json:"campaign"`
	PhaseReached MigrationPhaseReached `json:"phase_reached"`
	Status       OutcomeStatus         `json:"status"`
	Error        string                `json:"error,omitempty"`
	CompletedAt  time.Time             `json:"completed_at"`
	Response     *DispatchResult       `json:"response,omitempty"`
}

// MigrationState is the orchestrator's aggregate view of a run. Callers
// receive copies; the orchestrator owns the only mutable instance.
type MigrationState struct {
	RunID      string             `json:"run_id"`
	Phase      Phase              `json:"phase"`
	Successful []MigrationOutcome `json:"successful"`
	Failed     []MigrationOutcome `json:"failed"`
	// ProcessedIDs holds campaign ids that reached a terminal success; used
	// to skip re-processing on retry.
	ProcessedIDs map[string]bool `json:"processed_ids"`
	// TotalCount is the original selection size, fixed at batch acceptance.
	// It counts all selected campaigns, migratable or not.
	TotalCount     int `json:"total_count"`
	ProcessedCount int `json:"processed_count"`
}

// Progress returns the processed/total ratio in percent. This is the sole
// progress signal exposed to callers.
func (s *MigrationState) Progress() int {
	if s.TotalCount == 0 {
		return 0
	}
	p := s.ProcessedCount * 100 / s.TotalCount
	if p > 100 {
		p = 100
	}
	return p
}

// Clone returns a deep enough copy for callers to read without racing the
// orchestrator.
func (s *MigrationState) Clone() MigrationState {
	out := MigrationState{
		RunID:          s.RunID,
		Phase:          s.Phase,
		TotalCount:     s.TotalCount,
		ProcessedCount: s.ProcessedCount,
		Successful:     make([]MigrationOutcome, len(s.Successful)),
		Failed:         make([]MigrationOutcome, len(s.Failed)),
		ProcessedIDs:   make(map[string]bool, len(s.ProcessedIDs)),
	}
	copy(out.Successful, s.Successful)
	copy(out.Failed, s.Failed)
	for id := range s.ProcessedIDs {
		out.ProcessedIDs[id] = true
	}
	return out
}
