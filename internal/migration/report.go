package migration

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crmtools/brz2moe/internal/models"
)

// Report is the JSON artifact saved after a run for offline review.
type Report struct {
	RunID     string                `json:"run_id"`
	Signature string                `json:"signature"`
	SavedAt   time.Time             `json:"saved_at"`
	State     models.MigrationState `json:"state"`
	Events    []Event               `json:"events"`
}

// SaveReport writes the run's final state and log to filePath.
func (o *Orchestrator) SaveReport(filePath string) error {
	if filePath == "" {
		filePath = fmt.Sprintf("migration_report_%s.json", o.now().Format("20060102_150405"))
	}

	report := Report{
		RunID:     o.State().RunID,
		Signature: o.signature,
		SavedAt:   o.now(),
		State:     o.State(),
		Events:    o.Events(),
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}

	o.logger.Info("Migration report saved", "path", filePath)
	return nil
}
