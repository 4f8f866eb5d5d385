package migration

import "fmt"

// PreconditionError is fatal to the run: the batch is missing, malformed,
// or lacks credentials. It is the only error class that aborts a whole
// migration; everything else is recorded per campaign.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("invalid migration batch: %s", e.Reason)
}

func preconditionf(format string, args ...any) *PreconditionError {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// ErrRetryUnavailable is returned when retry is requested outside the
// completed phase or with nothing left to retry.
type ErrRetryUnavailable struct {
	Reason string
}

func (e *ErrRetryUnavailable) Error() string {
	return fmt.Sprintf("retry unavailable: %s", e.Reason)
}
