package contentblocks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmtools/brz2moe/internal/models"
)

type fakeMigrator struct {
	calls   []string
	failIDs map[string]bool
}

func (m *fakeMigrator) Migrate(_ context.Context, block models.ContentBlock) (*Result, error) {
	m.calls = append(m.calls, block.ID())
	if m.failIDs[block.ID()] {
		return nil, fmt.Errorf("service rejected %s", block.Name())
	}
	return &Result{Message: "migrated " + block.Name()}, nil
}

func block(id, name string) models.ContentBlock {
	return models.ContentBlock{Raw: map[string]any{"id": id, "name": name}}
}

func newTestRunner(migrator Migrator) *Runner {
	fixed := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	return NewRunner(migrator, RunnerOptions{Now: func() time.Time { return fixed }}, testLogger())
}

func TestRunner_Run(t *testing.T) {
	t.Run("attempts every block in order", func(t *testing.T) {
		migrator := &fakeMigrator{}
		runner := newTestRunner(migrator)

		summary := runner.Run(context.Background(), []models.ContentBlock{
			block("cb1", "Header"),
			block("cb2", "Footer"),
		})

		assert.Equal(t, []string{"cb1", "cb2"}, migrator.calls)
		assert.Equal(t, 2, summary.Successful)
		assert.Zero(t, summary.Failed)
		require.Len(t, summary.Outcomes, 2)
		assert.Equal(t, models.OutcomeSuccess, summary.Outcomes[0].Status)
		assert.Equal(t, "migrated Header", summary.Outcomes[0].Message)
	})

	t.Run("a failing block does not stop the run", func(t *testing.T) {
		migrator := &fakeMigrator{failIDs: map[string]bool{"cb1": true}}
		runner := newTestRunner(migrator)

		summary := runner.Run(context.Background(), []models.ContentBlock{
			block("cb1", "Header"),
			block("cb2", "Footer"),
		})

		assert.Equal(t, []string{"cb1", "cb2"}, migrator.calls)
		assert.Equal(t, 1, summary.Successful)
		assert.Equal(t, 1, summary.Failed)

		require.Len(t, summary.Outcomes, 2)
		assert.Equal(t, models.OutcomeFailure, summary.Outcomes[0].Status)
		assert.Contains(t, summary.Outcomes[0].Error, "Header")
		assert.Equal(t, models.OutcomeSuccess, summary.Outcomes[1].Status)
	})

	t.Run("duplicate selections are attempted once", func(t *testing.T) {
		migrator := &fakeMigrator{}
		runner := newTestRunner(migrator)

		summary := runner.Run(context.Background(), []models.ContentBlock{
			block("cb1", "Header"),
			block("cb1", "Header"),
			block("cb2", "Footer"),
		})

		assert.Equal(t, []string{"cb1", "cb2"}, migrator.calls)
		assert.Equal(t, 2, summary.Successful)
		assert.Len(t, summary.Outcomes, 2)
	})

	t.Run("empty selection yields an empty summary", func(t *testing.T) {
		migrator := &fakeMigrator{}
		runner := newTestRunner(migrator)

		summary := runner.Run(context.Background(), nil)

		assert.Empty(t, migrator.calls)
		assert.Zero(t, summary.Successful)
		assert.Zero(t, summary.Failed)
		assert.Empty(t, summary.Outcomes)
	})
}
