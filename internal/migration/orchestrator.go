package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/crmtools/brz2moe/internal/ledger"
	"github.com/crmtools/brz2moe/internal/models"
)

// Fetcher retrieves full campaign definitions from the source platform.
type Fetcher interface {
	FetchCampaign(ctx context.Context, campaignID string) (*models.CampaignDetail, error)
}

// Dispatcher submits fetched campaigns to the destination platform.
type Dispatcher interface {
	Dispatch(ctx context.Context, detail *models.CampaignDetail, campaignType models.CampaignType) (*models.DispatchResult, error)
}

// Options tune orchestrator behavior beyond its required collaborators.
type Options struct {
	// Limiter paces sequential processing. Nil disables pacing; requests to
	// the destination stay sequential either way.
	Limiter *rate.Limiter
	// Sink receives the run-log for durable auditing.
	Sink ledger.EventSink
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Orchestrator drives one migration batch through fetch and dispatch,
// records per-campaign outcomes, and marks the batch complete in the
// ledger. One instance owns exactly one batch.
type Orchestrator struct {
	fetcher    Fetcher
	dispatcher Dispatcher
	store      ledger.Ledger
	log        *Log
	limiter    *rate.Limiter
	now        func() time.Time
	logger     *slog.Logger

	batch     models.MigrationBatch
	signature string
	guard     RunGuard

	mu    sync.Mutex
	state models.MigrationState
	prior *ledger.Entry
}

func NewOrchestrator(
	batch models.MigrationBatch,
	fetcher Fetcher,
	dispatcher Dispatcher,
	store ledger.Ledger,
	opts Options,
	logger *slog.Logger,
) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	runID := uuid.NewString()
	return &Orchestrator{
		fetcher:    fetcher,
		dispatcher: dispatcher,
		store:      store,
		log:        NewLog(runID, logger, opts.Sink),
		limiter:    opts.Limiter,
		now:        now,
		logger:     logger,
		batch:      batch,
		signature:  Signature(batch.Campaigns),
		state: models.MigrationState{
			RunID:        runID,
			Phase:        models.PhasePreparing,
			ProcessedIDs: make(map[string]bool),
			TotalCount:   len(batch.Campaigns),
		},
	}
}

// Signature returns the batch's idempotency key.
func (o *Orchestrator) Signature() string { return o.signature }

// State returns a read-only snapshot of the aggregate.
func (o *Orchestrator) State() models.MigrationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Events returns the run-log in emission order.
func (o *Orchestrator) Events() []Event { return o.log.Events() }

// PriorCompletion reports the ledger entry that short-circuited this run,
// if any.
func (o *Orchestrator) PriorCompletion() *ledger.Entry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prior
}

// Run executes the batch. Per-campaign failures are isolated and recorded;
// only precondition and ledger-lookup failures return an error. A second
// invocation, concurrent or late, performs no network calls and mirrors
// the existing state.
func (o *Orchestrator) Run(ctx context.Context) (models.MigrationState, error) {
	// Preconditions are checked before the guard is claimed, so an invalid
	// batch keeps failing on every invocation instead of being swallowed by
	// the duplicate-run mirror.
	if err := o.validateBatch(); err != nil {
		o.log.Append(LevelError, err.Error())
		return o.State(), err
	}

	if !o.guard.TryStart() {
		o.logger.Debug("Duplicate run invocation ignored", "signature", o.signature)
		return o.State(), nil
	}

	entry, err := o.store.Get(ctx, o.signature)
	if err != nil {
		return o.State(), fmt.Errorf("ledger lookup failed: %w", err)
	}
	if entry != nil && entry.Completed {
		o.log.Append(LevelInfo, "Migration already completed for these campaigns")
		o.mu.Lock()
		o.prior = entry
		o.state.Phase = models.PhaseCompleted
		o.state.ProcessedCount = entry.SuccessCount + entry.FailureCount
		o.mu.Unlock()
		return o.State(), nil
	}

	o.setPhase(models.PhaseMigrating)
	o.log.Append(LevelInfo, "Starting migration process...")
	o.log.Append(LevelInfo, fmt.Sprintf("Found %d campaign(s) to migrate", len(o.batch.Campaigns)))

	classified := Classify(o.batch.Campaigns)
	for _, e := range classified.Events {
		o.log.Append(e.Level, e.Message)
	}

	if len(classified.Ordered) == 0 {
		o.log.Append(LevelError, "No migratable campaigns found. Only Email, Push, and SMS campaigns can be migrated.")
	}

	o.runList(ctx, classified.Ordered, false)

	o.finishRun(ctx, true)
	return o.State(), nil
}

// RetryFailed re-executes only the campaigns that failed, redistributing
// them into successful/failed. It is callable only once the run completed
// with a non-empty failed set, and it never touches the ledger entry the
// first completion wrote.
func (o *Orchestrator) RetryFailed(ctx context.Context) (models.MigrationState, error) {
	o.mu.Lock()
	if o.state.Phase != models.PhaseCompleted {
		o.mu.Unlock()
		return o.State(), &ErrRetryUnavailable{Reason: "migration has not completed"}
	}
	if len(o.state.Failed) == 0 {
		o.mu.Unlock()
		return o.State(), &ErrRetryUnavailable{Reason: "no failed campaigns to retry"}
	}

	retry := make([]models.CampaignRef, 0, len(o.state.Failed))
	for _, outcome := range o.state.Failed {
		retry = append(retry, outcome.Campaign)
	}
	o.state.Failed = nil
	o.state.ProcessedCount -= len(retry)
	o.state.Phase = models.PhaseMigrating
	o.mu.Unlock()

	o.log.Append(LevelInfo, fmt.Sprintf("Retrying %d failed migration(s)...", len(retry)))

	o.runList(ctx, retry, true)

	o.finishRun(ctx, false)
	return o.State(), nil
}

// runList drives one pass over the given campaigns, recording an outcome
// per item. Both the initial run and the retry path funnel through here.
func (o *Orchestrator) runList(ctx context.Context, campaigns []models.CampaignRef, retrying bool) {
	total := len(campaigns)
	for i, campaign := range campaigns {
		if i > 0 && o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				// No mid-batch cancel exists; a dead context simply makes the
				// remaining network calls fail fast and get recorded.
				o.logger.Warn("Pacing wait interrupted", "error", err)
			}
		}

		verb := "Processing"
		if retrying {
			verb = "Retrying"
		}
		o.log.Append(LevelInfo, fmt.Sprintf("%s campaign %d of %d: %s (%s)",
			verb, i+1, total, campaign.Name, strings.ToUpper(string(campaign.Type))))

		if o.alreadyProcessed(campaign.ID) {
			o.log.Append(LevelInfo, fmt.Sprintf("Campaign %q already migrated, skipping", campaign.Name))
			o.bumpProcessed()
			continue
		}

		outcome := o.processCampaign(ctx, campaign)
		o.record(outcome)
	}
}

// processCampaign runs the fetch → dispatch pipeline for one campaign. A
// failure at either step settles the outcome; siblings are unaffected.
func (o *Orchestrator) processCampaign(ctx context.Context, campaign models.CampaignRef) models.MigrationOutcome {
	outcome := models.MigrationOutcome{Campaign: campaign}

	o.log.Append(LevelInfo, "Fetching campaign details from Braze...")
	detail, err := o.fetcher.FetchCampaign(ctx, campaign.ID)
	if err != nil {
		o.log.Append(LevelError, fmt.Sprintf("Migration failed for %s: %v", campaign.Name, err))
		outcome.PhaseReached = models.PhaseReachedFetch
		outcome.Status = models.OutcomeFailure
		outcome.Error = err.Error()
		outcome.CompletedAt = o.now()
		return outcome
	}
	o.log.Append(LevelSuccess, "Campaign details fetched successfully")

	o.log.Append(LevelInfo, fmt.Sprintf("Sending to %s migration service...", campaign.Type))
	result, err := o.dispatcher.Dispatch(ctx, detail, campaign.Type)
	outcome.PhaseReached = models.PhaseReachedDispatch
	outcome.CompletedAt = o.now()
	if err != nil {
		o.log.Append(LevelError, fmt.Sprintf("Migration failed for %s: %v", campaign.Name, err))
		outcome.Status = models.OutcomeFailure
		outcome.Error = err.Error()
		return outcome
	}

	outcome.Status = models.OutcomeSuccess
	outcome.Response = result
	if result.DraftID != "" {
		o.log.Append(LevelSuccess, fmt.Sprintf("Draft created in MoEngage (id %s)", result.DraftID))
	} else if !result.DraftCreated {
		o.log.Append(LevelWarning, "Payload converted but draft creation may have failed")
	} else {
		o.log.Append(LevelSuccess, "Draft created in MoEngage")
	}
	o.log.Append(LevelSuccess, fmt.Sprintf("Migration completed for: %s", campaign.Name))

	return outcome
}

func (o *Orchestrator) validateBatch() error {
	if len(o.batch.Campaigns) == 0 {
		return preconditionf("no campaigns selected")
	}
	if o.batch.Braze == (models.BrazeCredentials{}) {
		return preconditionf("Braze credentials are missing")
	}
	if o.batch.MoEngage == (models.MoEngageCredentials{}) {
		return preconditionf("MoEngage credentials are missing")
	}
	return nil
}

func (o *Orchestrator) alreadyProcessed(campaignID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.ProcessedIDs[campaignID]
}

func (o *Orchestrator) record(outcome models.MigrationOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if outcome.Status == models.OutcomeSuccess {
		o.state.Successful = append(o.state.Successful, outcome)
		o.state.ProcessedIDs[outcome.Campaign.ID] = true
	} else {
		o.state.Failed = append(o.state.Failed, outcome)
	}
	o.state.ProcessedCount++
}

func (o *Orchestrator) bumpProcessed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.ProcessedCount++
}

func (o *Orchestrator) setPhase(phase models.Phase) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Phase = phase
}

// finishRun transitions to completed unconditionally. The ledger entry is
// written only by the first completion; retry rounds leave it untouched.
func (o *Orchestrator) finishRun(ctx context.Context, writeLedger bool) {
	o.mu.Lock()
	o.state.Phase = models.PhaseCompleted
	successCount := len(o.state.Successful)
	failureCount := len(o.state.Failed)
	o.mu.Unlock()

	o.log.Append(LevelSuccess, "Migration process completed!")
	o.log.Append(LevelInfo, fmt.Sprintf("Successful: %d, Failed: %d", successCount, failureCount))

	if !writeLedger {
		return
	}

	entry := ledger.Entry{
		Signature:    o.signature,
		Completed:    true,
		CompletedAt:  o.now(),
		SuccessCount: successCount,
		FailureCount: failureCount,
		CampaignIDs:  SortedIDs(o.batch.Campaigns),
	}
	if err := o.store.Put(ctx, entry); err != nil {
		// The run itself finished; a ledger write failure only weakens
		// re-run protection.
		o.logger.Warn("Failed to record batch completion", "error", err)
		return
	}
	o.log.Append(LevelInfo, "Migration marked as completed")
}
