package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/crmtools/brz2moe/internal/models"
)

// Config represents the application configuration
type Config struct {
	Braze         BrazeConfig         `mapstructure:"braze" yaml:"braze"`
	MoEngage      MoEngageConfig      `mapstructure:"moengage" yaml:"moengage"`
	ContentBlocks ContentBlocksConfig `mapstructure:"content_blocks" yaml:"content_blocks"`
	Migration     MigrationConfig     `mapstructure:"migration" yaml:"migration"`
}

// BrazeConfig contains the Braze dashboard session settings plus the
// campaign fetcher service location.
type BrazeConfig struct {
	FetcherURL  string                  `mapstructure:"fetcher_url" yaml:"fetcher_url"`
	Credentials models.BrazeCredentials `mapstructure:"credentials" yaml:"credentials"`
}

// MoEngageConfig contains MoEngage destination settings and the per-channel
// migration service locations.
type MoEngageConfig struct {
	EmailServiceURL string                     `mapstructure:"email_service_url" yaml:"email_service_url"`
	PushServiceURL  string                     `mapstructure:"push_service_url" yaml:"push_service_url"`
	SMSServiceURL   string                     `mapstructure:"sms_service_url" yaml:"sms_service_url"`
	Credentials     models.MoEngageCredentials `mapstructure:"credentials" yaml:"credentials"`
}

// ContentBlocksConfig contains the content-block migration service
// location plus the MoEngage external-API credentials it needs. The Braze
// session credentials are shared with the campaign flow; only the dashboard
// number is block-specific because the service derives the dashboard URL
// from it.
type ContentBlocksConfig struct {
	ServiceURL      string                         `mapstructure:"service_url" yaml:"service_url"`
	DashboardNumber int                            `mapstructure:"dashboard_number" yaml:"dashboard_number"`
	Credentials     models.ContentBlockCredentials `mapstructure:"credentials" yaml:"credentials"`
}

// MigrationConfig contains orchestration settings.
type MigrationConfig struct {
	// CampaignDelay paces sequential processing so the destination API never
	// sees overlapping requests.
	CampaignDelay  time.Duration `mapstructure:"campaign_delay" yaml:"campaign_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	LedgerPath     string        `mapstructure:"ledger_path" yaml:"ledger_path"`
	ReportPath     string        `mapstructure:"report_path" yaml:"report_path"`
	DryRun         bool          `mapstructure:"dry_run" yaml:"dry_run"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.brz2moe")
	}

	// Environment variable overrides
	v.SetEnvPrefix("BRZ2MOE")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("braze.fetcher_url", "http://localhost:8082")
	v.SetDefault("moengage.email_service_url", "http://localhost:8080")
	v.SetDefault("moengage.push_service_url", "http://localhost:8081")
	v.SetDefault("moengage.sms_service_url", "http://localhost:8083")
	v.SetDefault("moengage.credentials.origin", "https://dashboard-01.moengage.com")
	v.SetDefault("moengage.credentials.api_url", "https://dashboard-01.moengage.com/v1.0/campaigns/draft")
	v.SetDefault("content_blocks.service_url", "http://localhost:8084")
	v.SetDefault("content_blocks.dashboard_number", 9)
	v.SetDefault("content_blocks.credentials.api_url", "https://api-01.moengage.com/v1/external/campaigns/content-blocks")
	v.SetDefault("content_blocks.credentials.data_center", "dashboard-01")
	v.SetDefault("migration.campaign_delay", time.Second)
	v.SetDefault("migration.request_timeout", 30*time.Second)
	v.SetDefault("migration.ledger_path", "./.brz2moe/ledger.db")
	v.SetDefault("migration.dry_run", false)
}

func validateConfig(config *Config) error {
	if config.Braze.FetcherURL == "" {
		return fmt.Errorf("braze.fetcher_url is required")
	}

	if field := config.Braze.Credentials.MissingField(); field != "" {
		return fmt.Errorf("braze.credentials.%s is required", field)
	}

	if config.MoEngage.Credentials.BearerToken == "" {
		return fmt.Errorf("moengage.credentials.bearer_token is required")
	}

	if config.MoEngage.Credentials.RefreshToken == "" {
		return fmt.Errorf("moengage.credentials.refresh_token is required")
	}

	// Content-block credentials are deliberately not required here: the
	// campaign flow works without them, and the content-block client checks
	// them before any migration call.
	if n := config.ContentBlocks.DashboardNumber; n < 1 || n > 100 {
		return fmt.Errorf("content_blocks.dashboard_number must be between 1 and 100")
	}

	if config.Migration.RequestTimeout <= 0 {
		return fmt.Errorf("migration.request_timeout must be greater than 0")
	}

	if config.Migration.CampaignDelay < 0 {
		return fmt.Errorf("migration.campaign_delay must not be negative")
	}

	return nil
}

// SaveConfig writes the configuration to the given path, creating the
// directory if needed.
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0600)
}
