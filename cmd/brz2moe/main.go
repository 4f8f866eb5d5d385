package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/crmtools/brz2moe/internal/braze"
	"github.com/crmtools/brz2moe/internal/config"
	"github.com/crmtools/brz2moe/internal/contentblocks"
	"github.com/crmtools/brz2moe/internal/ledger"
	"github.com/crmtools/brz2moe/internal/migration"
	"github.com/crmtools/brz2moe/internal/models"
	"github.com/crmtools/brz2moe/internal/moengage"
)

var (
	// Version information - set by build flags
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	// CLI flags
	configFile  string
	verbose     bool
	dryRun      bool
	campaignIDs []string
	migrateAll  bool
	retryFailed bool
	reportFile  string

	listType   string
	listStatus string
	listName   string

	blockIDs  []string
	blocksAll bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "brz2moe",
	Short: "Migrate campaigns from Braze to MoEngage",
	Long: `A command-line tool to migrate marketing campaigns from Braze to MoEngage.

This tool connects to the Braze campaign fetcher and the MoEngage migration
services, fetches the full definition of each selected campaign, and creates
corresponding MoEngage drafts. Per-campaign failures are isolated and can be
retried, and completed batches are recorded so the same selection is never
migrated twice.`,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Start the migration process",
	Long: `Start migrating the selected campaigns from Braze to MoEngage.

The migration process will:
1. Look up the batch in the completion ledger and stop if it already ran
2. Filter out non-migratable campaign types and duplicate selections
3. Fetch each campaign's full definition from Braze
4. Create a draft on MoEngage through the matching channel service
5. Record a per-campaign outcome and generate a migration report

Use --retry-failed to immediately re-run only the campaigns that failed.`,
	RunE: runMigration,
}

var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "List source campaigns",
	Long:  "List campaigns available on the Braze dashboard, with optional type, status, and name filters.",
	RunE:  listCampaigns,
}

var contentBlocksCmd = &cobra.Command{
	Use:   "contentblocks",
	Short: "Content block commands",
	Long:  "Commands for listing and migrating Braze content blocks to MoEngage.",
}

var contentBlocksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List source content blocks",
	Long:  "List content blocks available on the Braze dashboard.",
	RunE:  listContentBlocks,
}

var contentBlocksMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate content blocks",
	Long: `Migrate the selected content blocks from Braze to MoEngage.

The content-block service fetches the full block content, converts Liquid
templating to Jinja, rewrites Braze CDN image URLs to MoEngage CDN URLs,
and creates each block through the MoEngage external API. Per-block
failures are isolated; the run always produces a full accounting.`,
	RunE: migrateContentBlocks,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Commands for managing configuration files and settings.",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration file",
	Long:  "Create a new configuration file with default settings and examples.",
	RunE:  initConfig,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and connections",
	Long:  "Validate the configuration file and test connections to the Braze fetcher and the MoEngage migration services.",
	RunE:  validateConfig,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version, commit, and build time of the application.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("brz2moe version %s\n", Version)
		fmt.Printf("Commit: %s\n", Commit)
		fmt.Printf("Built: %s\n", BuildTime)
	},
}

func init() {
	// Root command flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file path (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Migrate command flags
	migrateCmd.Flags().StringSliceVar(&campaignIDs, "ids", nil, "Campaign ids to migrate (comma separated)")
	migrateCmd.Flags().BoolVar(&migrateAll, "all", false, "Migrate every campaign in the listing")
	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Fetch and classify without creating MoEngage drafts")
	migrateCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Retry failed campaigns once after the run")
	migrateCmd.Flags().StringVar(&reportFile, "report", "", "Output file for migration report")

	// Campaigns command flags
	campaignsCmd.Flags().StringVar(&listType, "type", "", "Filter by campaign type (email, push, sms, ...)")
	campaignsCmd.Flags().StringVar(&listStatus, "status", "", "Filter by campaign status")
	campaignsCmd.Flags().StringVar(&listName, "name", "", "Filter by name substring")

	// Content block command flags
	contentBlocksMigrateCmd.Flags().StringSliceVar(&blockIDs, "ids", nil, "Content block ids to migrate (comma separated)")
	contentBlocksMigrateCmd.Flags().BoolVar(&blocksAll, "all", false, "Migrate every content block in the listing")

	// Add subcommands
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(campaignsCmd)
	rootCmd.AddCommand(contentBlocksCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
	configCmd.AddCommand(configInitCmd)
	contentBlocksCmd.AddCommand(contentBlocksListCmd)
	contentBlocksCmd.AddCommand(contentBlocksMigrateCmd)
}

func runMigration(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(campaignIDs) == 0 && !migrateAll {
		return fmt.Errorf("nothing selected: pass --ids or --all")
	}

	logger.Info("Starting Braze to MoEngage migration...")
	logger.Info("Braze fetcher", "url", cfg.Braze.FetcherURL)
	if dryRun {
		logger.Info("DRY RUN MODE - No drafts will be created")
	}

	brazeClient, err := braze.NewClient(&cfg.Braze, cfg.Migration.RequestTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to create Braze client: %w", err)
	}

	// Graceful shutdown: an interrupt lets the in-flight campaign settle and
	// makes the remaining ones fail fast.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	selection, err := selectCampaigns(ctx, brazeClient)
	if err != nil {
		return err
	}

	batch := models.MigrationBatch{
		Campaigns: selection,
		Braze:     cfg.Braze.Credentials,
		MoEngage:  cfg.MoEngage.Credentials,
	}

	var dispatcher migration.Dispatcher
	if dryRun {
		dispatcher = dryRunDispatcher{logger: logger}
	} else {
		dispatcher, err = moengage.NewClient(&cfg.MoEngage, cfg.Migration.RequestTimeout, logger)
		if err != nil {
			return fmt.Errorf("failed to create MoEngage client: %w", err)
		}
	}

	var store ledger.Ledger
	var sink ledger.EventSink
	if dryRun {
		store = ledger.NewMemoryLedger()
	} else {
		sqliteLedger, err := ledger.OpenSQLite(cfg.Migration.LedgerPath)
		if err != nil {
			return fmt.Errorf("failed to open completion ledger: %w", err)
		}
		defer sqliteLedger.Close()
		store = sqliteLedger
		sink = sqliteLedger
	}

	opts := migration.Options{Sink: sink}
	if cfg.Migration.CampaignDelay > 0 {
		opts.Limiter = rate.NewLimiter(rate.Every(cfg.Migration.CampaignDelay), 1)
	}

	orch := migration.NewOrchestrator(batch, brazeClient, dispatcher, store, opts, logger)

	state, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if prior := orch.PriorCompletion(); prior != nil {
		logger.Info("Batch already migrated, nothing to do",
			"completed_at", prior.CompletedAt,
			"successful", prior.SuccessCount,
			"failed", prior.FailureCount)
		return nil
	}

	if retryFailed && len(state.Failed) > 0 {
		logger.Info("Retrying failed campaigns", "count", len(state.Failed))
		state, err = orch.RetryFailed(ctx)
		if err != nil {
			logger.Warn("Retry unavailable", "error", err)
		}
	}

	reportPath := reportFile
	if reportPath == "" {
		reportPath = cfg.Migration.ReportPath
	}
	if reportPath == "" {
		reportPath = fmt.Sprintf("./reports/migration_report_%s.json", time.Now().Format("20060102_150405"))
	}
	if err := orch.SaveReport(reportPath); err != nil {
		logger.Warn("Failed to save report", "error", err)
	}

	printMigrationSummary(state, logger)
	return nil
}

func selectCampaigns(ctx context.Context, client *braze.Client) ([]models.CampaignRef, error) {
	listing, err := client.ListCampaigns(ctx, braze.ListFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	if migrateAll {
		return listing, nil
	}

	byID := make(map[string]models.CampaignRef, len(listing))
	for _, ref := range listing {
		byID[ref.ID] = ref
	}

	var selection []models.CampaignRef
	var missing []string
	for _, id := range campaignIDs {
		id = strings.TrimSpace(id)
		if ref, ok := byID[id]; ok {
			selection = append(selection, ref)
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("campaign id(s) not found in the Braze listing: %s", strings.Join(missing, ", "))
	}

	return selection, nil
}

// dryRunDispatcher stands in for the MoEngage services when no drafts
// should be created.
type dryRunDispatcher struct {
	logger *slog.Logger
}

func (d dryRunDispatcher) Dispatch(_ context.Context, detail *models.CampaignDetail, campaignType models.CampaignType) (*models.DispatchResult, error) {
	d.logger.Info("Campaign would be migrated", "name", detail.GetName(), "type", campaignType)
	return &models.DispatchResult{Message: "dry run", DraftCreated: false}, nil
}

func listCampaigns(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	client, err := braze.NewClient(&cfg.Braze, cfg.Migration.RequestTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to create Braze client: %w", err)
	}

	filters := braze.ListFilters{Status: listStatus, NameContains: listName}
	if listType != "" {
		filters.Type = models.ParseCampaignType(listType)
	}

	refs, err := client.ListCampaigns(cmd.Context(), filters)
	if err != nil {
		return fmt.Errorf("failed to list campaigns: %w", err)
	}

	for _, ref := range refs {
		marker := " "
		if ref.Type.Migratable() {
			marker = "*"
		}
		fmt.Printf("%s %-30s %-8s %-10s %s\n", marker, ref.ID, ref.Type, ref.Status, ref.Name)
	}
	fmt.Printf("\n%d campaign(s); * = migratable\n", len(refs))

	return nil
}

func newContentBlockClient(cfg *config.Config, logger *slog.Logger) (*contentblocks.Client, error) {
	return contentblocks.NewClient(&cfg.ContentBlocks,
		cfg.Braze.Credentials, cfg.MoEngage.Credentials,
		cfg.Migration.RequestTimeout, logger)
}

func listContentBlocks(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	client, err := newContentBlockClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create content block client: %w", err)
	}

	blocks, err := client.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list content blocks: %w", err)
	}

	for _, b := range blocks {
		fmt.Printf("%-30s %-8d %s\n", b.ID(), len(b.Content()), b.Name())
	}
	fmt.Printf("\n%d content block(s)\n", len(blocks))

	return nil
}

func migrateContentBlocks(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(blockIDs) == 0 && !blocksAll {
		return fmt.Errorf("nothing selected: pass --ids or --all")
	}

	client, err := newContentBlockClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create content block client: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Warn("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	listing, err := client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list content blocks: %w", err)
	}

	selection := listing
	if !blocksAll {
		byID := make(map[string]models.ContentBlock, len(listing))
		for _, b := range listing {
			byID[b.ID()] = b
		}

		selection = make([]models.ContentBlock, 0, len(blockIDs))
		var missing []string
		for _, id := range blockIDs {
			id = strings.TrimSpace(id)
			if b, ok := byID[id]; ok {
				selection = append(selection, b)
			} else {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("content block id(s) not found in the Braze listing: %s", strings.Join(missing, ", "))
		}
	}

	opts := contentblocks.RunnerOptions{}
	if cfg.Migration.CampaignDelay > 0 {
		opts.Limiter = rate.NewLimiter(rate.Every(cfg.Migration.CampaignDelay), 1)
	}

	runner := contentblocks.NewRunner(client, opts, logger)
	summary := runner.Run(ctx, selection)

	logger.Info("=== Content Block Migration Summary ===")
	logger.Info("Migration results",
		"total", len(selection),
		"successful", summary.Successful,
		"failed", summary.Failed)
	for _, outcome := range summary.Outcomes {
		if outcome.Status == models.OutcomeFailure {
			logger.Warn("Failed", "block", outcome.Name, "error", outcome.Error)
		}
	}

	return nil
}

func validateConfig(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info("Configuration file is valid")

	brazeClient, err := braze.NewClient(&cfg.Braze, cfg.Migration.RequestTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to create Braze client: %w", err)
	}

	ctx := cmd.Context()
	if err := brazeClient.TestConnection(ctx); err != nil {
		return fmt.Errorf("braze fetcher connection failed: %w", err)
	}

	moengageClient, err := moengage.NewClient(&cfg.MoEngage, cfg.Migration.RequestTimeout, logger)
	if err != nil {
		return fmt.Errorf("failed to create MoEngage client: %w", err)
	}
	if err := moengageClient.TestConnection(ctx); err != nil {
		return fmt.Errorf("MoEngage services connection failed: %w", err)
	}

	blockClient, err := newContentBlockClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create content block client: %w", err)
	}
	if err := blockClient.TestConnection(ctx); err != nil {
		return fmt.Errorf("content block service connection failed: %w", err)
	}

	logger.Info("✓ All connections successful")
	logger.Info("✓ Configuration is valid and ready for migration")

	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	configPath := configFile
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		logger.Warn("Configuration file already exists", "path", configPath)
		fmt.Print("Do you want to overwrite it? (y/N): ")
		var response string
		_, err := fmt.Scanln(&response)

		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		if response != "y" && response != "Y" {
			logger.Info("Configuration initialization cancelled")
			return nil
		}
	}

	defaultConfig := createDefaultConfig()

	if err := config.SaveConfig(defaultConfig, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	logger.Info("✓ Configuration file created", "path", configPath)
	logger.Info("Please edit the configuration file with your Braze and MoEngage settings")

	return nil
}

func createDefaultConfig() *config.Config {
	return &config.Config{
		Braze: config.BrazeConfig{
			FetcherURL: "http://localhost:8082",
			Credentials: models.BrazeCredentials{
				DashboardURL: "https://dashboard-09.braze.com",
				SessionID:    "your-braze-session-id",
				AppGroupID:   "your-app-group-id",
			},
		},
		MoEngage: config.MoEngageConfig{
			EmailServiceURL: "http://localhost:8080",
			PushServiceURL:  "http://localhost:8081",
			SMSServiceURL:   "http://localhost:8083",
			Credentials: models.MoEngageCredentials{
				BearerToken:  "your-moengage-bearer-token",
				RefreshToken: "your-moengage-refresh-token",
				Origin:       "https://dashboard-01.moengage.com",
				APIURL:       "https://dashboard-01.moengage.com/v1.0/campaigns/draft",
			},
		},
		ContentBlocks: config.ContentBlocksConfig{
			ServiceURL:      "http://localhost:8084",
			DashboardNumber: 9,
			Credentials: models.ContentBlockCredentials{
				AppKey:         "your-moengage-app-key",
				AppSecret:      "your-moengage-app-secret",
				APIURL:         "https://api-01.moengage.com/v1/external/campaigns/content-blocks",
				CreatedByEmail: "you@example.com",
				DataCenter:     "dashboard-01",
			},
		},
		Migration: config.MigrationConfig{
			CampaignDelay:  time.Second,
			RequestTimeout: 30 * time.Second,
			LedgerPath:     "./.brz2moe/ledger.db",
			ReportPath:     "./reports/migration_report.json",
		},
	}
}

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{}

	if verbose {
		opts.Level = slog.LevelDebug
	} else {
		opts.Level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	logger := slog.New(handler)

	return logger
}

func printMigrationSummary(state models.MigrationState, logger *slog.Logger) {
	logger.Info("=== Migration Summary ===")
	logger.Info("Migration results",
		"total", state.TotalCount,
		"successful", len(state.Successful),
		"failed", len(state.Failed))

	if len(state.Failed) > 0 {
		logger.Warn("Failed campaigns:")
		for _, outcome := range state.Failed {
			logger.Warn("Failed", "campaign", outcome.Campaign.Name, "error", outcome.Error)
		}
		logger.Info("Run again with --retry-failed to retry only these campaigns")
	}

	if len(state.Successful) > 0 {
		logger.Info("✓ Migration completed successfully!")
	}
}
