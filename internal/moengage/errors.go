package moengage

import (
	"fmt"

	"github.com/crmtools/brz2moe/internal/models"
)

// DispatchErrorReason distinguishes the failure classes of a draft dispatch.
type DispatchErrorReason string

const (
	// DispatchErrUnsupportedType means no service handles this campaign
	// type; no network call was attempted.
	DispatchErrUnsupportedType DispatchErrorReason = "unsupported-type"
	// DispatchErrTimeout means the service did not answer within the
	// request timeout.
	DispatchErrTimeout DispatchErrorReason = "timeout"
	// DispatchErrRemote means the service answered with a non-2xx status.
	DispatchErrRemote DispatchErrorReason = "remote"
	// DispatchErrUnreachable means no response was received at all.
	DispatchErrUnreachable DispatchErrorReason = "unreachable"
)

// DispatchError is a per-campaign dispatch failure. It never aborts the
// batch.
type DispatchError struct {
	CampaignType models.CampaignType
	Reason       DispatchErrorReason
	Detail       string
	Err          error
}

func (e *DispatchError) Error() string {
	switch e.Reason {
	case DispatchErrUnsupportedType:
		return fmt.Sprintf("unsupported campaign type: %s", e.CampaignType)
	case DispatchErrTimeout:
		return fmt.Sprintf("migration service timed out for %s campaign: %v", e.CampaignType, e.Err)
	case DispatchErrUnreachable:
		return fmt.Sprintf("no response from %s migration service (is it running?): %v", e.CampaignType, e.Err)
	default:
		return fmt.Sprintf("migration failed: %s", e.Detail)
	}
}

func (e *DispatchError) Unwrap() error { return e.Err }
