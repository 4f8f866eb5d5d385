package models

// ContentBlock is one Braze content block as returned by the fetcher
// service, full HTML content included. The definition passes through to the
// migration service untouched.
type ContentBlock struct {
	Raw map[string]any `json:"raw"`
}

// ID returns the block's Braze identifier.
func (b *ContentBlock) ID() string {
	if b == nil {
		return ""
	}
	return getStringFromMap(b.Raw, "id")
}

// Name returns the block's display name.
func (b *ContentBlock) Name() string {
	if b == nil {
		return ""
	}
	return getStringFromMap(b.Raw, "name")
}

// Content returns the block's raw HTML body.
func (b *ContentBlock) Content() string {
	if b == nil {
		return ""
	}
	return getStringFromMap(b.Raw, "content")
}

// ContentBlockCredentials authenticate content-block creation on MoEngage.
// The external content-block API uses basic auth with an app key and
// secret, unlike the campaign draft services.
type ContentBlockCredentials struct {
	AppKey         string `json:"app_key" mapstructure:"app_key" yaml:"app_key"`
	AppSecret      string `json:"app_secret" mapstructure:"app_secret" yaml:"app_secret"`
	APIURL         string `json:"api_url" mapstructure:"api_url" yaml:"api_url"`
	CreatedByEmail string `json:"created_by_email" mapstructure:"created_by_email" yaml:"created_by_email"`
	DataCenter     string `json:"data_center" mapstructure:"data_center" yaml:"data_center"`
}

// MissingField returns the name of the first required field that is empty,
// or "" when the credentials are complete.
func (c ContentBlockCredentials) MissingField() string {
	switch {
	case c.AppKey == "":
		return "app_key"
	case c.AppSecret == "":
		return "app_secret"
	case c.CreatedByEmail == "":
		return "created_by_email"
	}
	return ""
}
