package braze

import "fmt"

// FetchErrorKind distinguishes the failure classes of a campaign fetch.
type FetchErrorKind string

const (
	// FetchErrCredentials means the stored credentials are structurally
	// incomplete; no network call was attempted.
	FetchErrCredentials FetchErrorKind = "credentials"
	// FetchErrRemote means the fetcher answered with a non-2xx status.
	FetchErrRemote FetchErrorKind = "remote"
	// FetchErrUnreachable means no response was received at all.
	FetchErrUnreachable FetchErrorKind = "unreachable"
)

// FetchError is a per-campaign fetch failure. It never aborts the batch.
type FetchError struct {
	CampaignID string
	Kind       FetchErrorKind
	Detail     string
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrCredentials:
		return fmt.Sprintf("incomplete Braze credentials: missing %s", e.Detail)
	case FetchErrUnreachable:
		return fmt.Sprintf("no response from campaign fetcher service (is it running?): %v", e.Err)
	default:
		return fmt.Sprintf("campaign fetch failed: %s", e.Detail)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }
