package models

// BrazeCredentials authenticate against the Braze dashboard-session API.
// All three fields are required; the fetch adapter refuses to go on the
// wire without them.
type BrazeCredentials struct {
	DashboardURL string `json:"dashboard_url" mapstructure:"dashboard_url" yaml:"dashboard_url"`
	SessionID    string `json:"session_id" mapstructure:"session_id" yaml:"session_id"`
	AppGroupID   string `json:"app_group_id" mapstructure:"app_group_id" yaml:"app_group_id"`
}

// MissingField returns the name of the first required field that is empty,
// or "" when the credentials are structurally complete.
func (c BrazeCredentials) MissingField() string {
	switch {
	case c.DashboardURL == "":
		return "dashboard_url"
	case c.SessionID == "":
		return "session_id"
	case c.AppGroupID == "":
		return "app_group_id"
	}
	return ""
}

// MoEngageCredentials authenticate draft creation on MoEngage. They travel
// inside the request envelope body, not as transport auth.
type MoEngageCredentials struct {
	BearerToken  string `json:"bearer_token" mapstructure:"bearer_token" yaml:"bearer_token"`
	RefreshToken string `json:"refresh_token" mapstructure:"refresh_token" yaml:"refresh_token"`
	Origin       string `json:"origin" mapstructure:"origin" yaml:"origin"`
	APIURL       string `json:"api_url" mapstructure:"api_url" yaml:"api_url"`
}

// MigrationBatch is the unit of work submitted to the orchestrator. The
// credential values are immutable for the batch's lifetime.
type MigrationBatch struct {
	Campaigns []CampaignRef       `json:"campaigns"`
	Braze     BrazeCredentials    `json:"braze_credentials"`
	MoEngage  MoEngageCredentials `json:"moengage_credentials"`
}
