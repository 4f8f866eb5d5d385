package contentblocks

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/crmtools/brz2moe/internal/models"
)

// Migrator submits one content block to the destination platform.
type Migrator interface {
	Migrate(ctx context.Context, block models.ContentBlock) (*Result, error)
}

// Outcome records the result of attempting one content block.
type Outcome struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Status      models.OutcomeStatus `json:"status"`
	Message     string               `json:"message,omitempty"`
	Error       string               `json:"error,omitempty"`
	CompletedAt time.Time            `json:"completed_at"`
}

// Summary aggregates one run over a content-block selection.
type Summary struct {
	Outcomes   []Outcome `json:"outcomes"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
}

// Runner migrates a selection of content blocks sequentially with paced,
// isolated attempts. Content blocks have no completion ledger; re-running a
// selection re-creates the blocks, which the destination treats as
// duplicates rather than errors.
type Runner struct {
	migrator Migrator
	limiter  *rate.Limiter
	logger   *slog.Logger
	now      func() time.Time
}

// RunnerOptions tune the runner beyond its required collaborators.
type RunnerOptions struct {
	// Limiter paces sequential processing. Nil disables pacing.
	Limiter *rate.Limiter
	// Now overrides the clock in tests.
	Now func() time.Time
}

func NewRunner(migrator Migrator, opts RunnerOptions, logger *slog.Logger) *Runner {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		migrator: migrator,
		limiter:  opts.Limiter,
		logger:   logger,
		now:      now,
	}
}

// Run attempts every block in order. A failure settles that block's outcome
// and the run moves on; duplicate ids in the selection are skipped after
// the first occurrence.
func (r *Runner) Run(ctx context.Context, blocks []models.ContentBlock) Summary {
	summary := Summary{}
	seen := make(map[string]bool, len(blocks))
	total := len(blocks)

	for i, block := range blocks {
		if i > 0 && r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				r.logger.Warn("Pacing wait interrupted", "error", err)
			}
		}

		r.logger.Info("Processing content block",
			"position", i+1, "total", total, "block", block.Name())

		if id := block.ID(); id != "" && seen[id] {
			r.logger.Warn("Skipping duplicate content block selection", "block", block.Name())
			continue
		}
		if id := block.ID(); id != "" {
			seen[id] = true
		}

		outcome := Outcome{
			ID:          block.ID(),
			Name:        block.Name(),
			CompletedAt: r.now(),
		}

		result, err := r.migrator.Migrate(ctx, block)
		if err != nil {
			r.logger.Error("Content block migration failed", "block", block.Name(), "error", err)
			outcome.Status = models.OutcomeFailure
			outcome.Error = err.Error()
			summary.Failed++
		} else {
			outcome.Status = models.OutcomeSuccess
			outcome.Message = result.Message
			summary.Successful++
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
	}

	r.logger.Info("Content block migration completed",
		"successful", summary.Successful, "failed", summary.Failed)
	return summary
}
