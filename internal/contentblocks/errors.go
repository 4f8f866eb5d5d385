package contentblocks

import "fmt"

// MigrateErrReason classifies content-block migration failures.
type MigrateErrReason string

const (
	MigrateErrCredentials MigrateErrReason = "credentials"
	MigrateErrUnreachable MigrateErrReason = "unreachable"
	MigrateErrTimeout     MigrateErrReason = "timeout"
	MigrateErrRemote      MigrateErrReason = "remote"
)

// MigrateError is returned when a content block cannot be listed or
// migrated. Detail carries the remote service's explanation when one was
// given.
type MigrateError struct {
	BlockName string
	Reason    MigrateErrReason
	Detail    string
	Err       error
}

func (e *MigrateError) Error() string {
	switch e.Reason {
	case MigrateErrCredentials:
		return fmt.Sprintf("incomplete content block credentials: missing %s", e.Detail)
	case MigrateErrTimeout:
		return fmt.Sprintf("content block service timed out: %v", e.Err)
	case MigrateErrUnreachable:
		return fmt.Sprintf("no response from content block service (is it running?): %v", e.Err)
	default:
		return fmt.Sprintf("content block migration failed: %s", e.Detail)
	}
}

func (e *MigrateError) Unwrap() error { return e.Err }
