package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/vodcat/internal/app"
	"github.com/vmunix/vodcat/internal/config"
)

var version = "dev"

var (
	configPath string
	jsonOutput bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "vodcat",
	Short: "Catalog crawler for VOD sites",
	Long: `vodcat - catalog crawler for VOD sites

Crawls category listings, resolves every item to a stream id and merges
new entries into a persisted catalog. Re-running never duplicates entries.

Run 'vodcatd' to crawl on a schedule and serve the catalog over HTTP.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("vodcat {{.Version}}\n")
}

// loadConfig finds and loads the config named by --config.
func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		found, err := config.Discover()
		if err != nil {
			return nil, "", err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, path, nil
}

// openApp loads the config, applies adjust and builds the application.
// The returned close function releases the database.
func openApp(adjust ...func(*config.Config)) (*app.App, func(), error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	for _, fn := range adjust {
		fn(cfg)
	}
	logger := app.NewLogger(os.Stderr, cfg.Log.Level)

	db, err := app.OpenDB(cfg.Store.Database)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cfg, logger, db, nil)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return a, func() { _ = db.Close() }, nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
