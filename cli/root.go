// cli/root.go
package cli

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gewnthar/bostondata/ckan"
	"github.com/gewnthar/bostondata/config"
	"github.com/gewnthar/bostondata/database"
	"github.com/gewnthar/bostondata/datasets"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bostondata",
	Short: "Boston Open Data ETL",
	Long:  "Fetches Boston open-data feeds, normalizes them, and loads them idempotently into MySQL.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; it only carries DB credentials.
		if err := godotenv.Load(); err == nil {
			log.Println("Loaded environment overrides from .env")
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the CLI. Errors exit non-zero via cobra.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config.yaml (default config/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(etlCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(initDBCmd)
}

// newPortalClient builds the CKAN client from the loaded config.
func newPortalClient() *ckan.Client {
	retry := ckan.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Portal.RetryAttempts
	retry.BaseDelay = cfg.Portal.RetryBaseDelay
	retry.MaxDelay = cfg.Portal.RetryMaxDelay

	opts := []ckan.Option{
		ckan.WithBaseURL(cfg.Portal.BaseURL),
		ckan.WithMaxRecordsPerRequest(cfg.Portal.MaxRecordsPerRequest),
		ckan.WithRetryConfig(retry),
	}
	if cfg.Portal.UserAgent != "" {
		opts = append(opts, ckan.WithUserAgent(cfg.Portal.UserAgent))
	}
	if cfg.Portal.RequestTimeout > 0 {
		opts = append(opts, ckan.WithHTTPClient(&http.Client{Timeout: cfg.Portal.RequestTimeout}))
	}
	return ckan.New(opts...)
}

// descriptorFor resolves a dataset kind and applies any resource-ID override
// from config.
func descriptorFor(kind datasets.Kind) (*datasets.Descriptor, error) {
	d, err := datasets.ByKind(kind)
	if err != nil {
		return nil, err
	}
	if override, ok := cfg.Datasets[string(kind)]; ok {
		d = d.WithResourceID(override.ResourceID)
	}
	return d, nil
}

func openStore() (*sql.DB, *database.Store, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("error initializing database: %w", err)
	}
	return db, database.NewStore(db), nil
}
