package models

import "strings"

// CampaignType classifies a Braze campaign by its delivery channel.
type CampaignType string

const (
	TypeEmail   CampaignType = "email"
	TypePush    CampaignType = "push"
	TypeSMS     CampaignType = "sms"
	TypeMulti   CampaignType = "multi"
	TypeBanner  CampaignType = "banner"
	TypeWebhook CampaignType = "webhook"
	TypeUnknown CampaignType = "unknown"
)

// ParseCampaignType normalizes a raw type string from the Braze listing.
func ParseCampaignType(raw string) CampaignType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "email":
		return TypeEmail
	case "push":
		return TypePush
	case "sms":
		return TypeSMS
	case "multi", "multichannel":
		return TypeMulti
	case "banner":
		return TypeBanner
	case "webhook":
		return TypeWebhook
	default:
		return TypeUnknown
	}
}

// Migratable reports whether campaigns of this type can be forwarded to
// MoEngage. Multi-channel campaigns migrate through the push service.
func (t CampaignType) Migratable() bool {
	switch t {
	case TypeEmail, TypePush, TypeSMS, TypeMulti:
		return true
	default:
		return false
	}
}

// CampaignRef identifies one campaign selected for migration. It carries
// identity and classification metadata only; content is fetched separately.
type CampaignRef struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Type           CampaignType `json:"type"`
	Status         string       `json:"status,omitempty"`
	VariationCount int          `json:"variation_count,omitempty"`
}

// Key is the composite identity used for deduplication within a batch.
func (r CampaignRef) Key() string {
	return r.ID + "\x00" + r.Name + "\x00" + string(r.Type)
}

// CampaignDetail is the full campaign definition fetched from Braze. The
// orchestrator treats it as opaque; it is only forwarded to the dispatch
// adapter.
type CampaignDetail struct {
	Raw map[string]any `json:"raw"`
}

// Payload returns the campaign object to forward to MoEngage. Braze returns
// the definition either under a top-level "campaign" key or at the top
// level; both are accepted.
func (d *CampaignDetail) Payload() map[string]any {
	if d == nil || d.Raw == nil {
		return nil
	}
	if inner, ok := d.Raw["campaign"].(map[string]any); ok {
		return inner
	}
	return d.Raw
}

// GetName returns the campaign name from the fetched payload.
func (d *CampaignDetail) GetName() string {
	return getStringFromMap(d.Payload(), "campaign_name")
}

// GetStatus returns the campaign status from the fetched payload.
func (d *CampaignDetail) GetStatus() string {
	return getStringFromMap(d.Payload(), "status")
}

func getStringFromMap(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key].(string); ok {
		return val
	}
	return ""
}
