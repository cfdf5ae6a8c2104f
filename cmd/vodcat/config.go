package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/vodcat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the example configuration",
	Long:  "Writes the example config.toml to path (default: the XDG config location).",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with defaults applied",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields and environment variable substitution without crawling.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigValidate,
}

var configForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(cfg)
		return nil
	}
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", path, data)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		found, err := config.Discover()
		if err != nil {
			return err
		}
		path = found
	}

	fmt.Printf("Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(cfg)
	fmt.Println("\nConfiguration valid!")
	return nil
}

func printConfigErrors(e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Println("Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Printf("  - %s\n", m)
		}
		fmt.Println()
	}

	if len(e.Errors) > 0 {
		fmt.Println("Validation errors:")
		for _, err := range e.Errors {
			fmt.Printf("  - %s\n", err)
		}
		fmt.Println()
	}
}

func printConfigSummary(cfg *config.Config) {
	fmt.Println("Configuration Summary:")
	fmt.Printf("  Site:       %s (resolve: %s)\n", cfg.Site.BaseURL, cfg.Site.ResolveMode)
	fmt.Printf("  Store:      %s in %s\n", cfg.Store.Format, cfg.Store.Dir)
	fmt.Printf("  Database:   %s\n", cfg.Store.Database)
	fmt.Printf("  Workers:    %d\n", cfg.Crawl.Workers)
	fmt.Printf("  Server:     %s:%d every %s\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.Interval)
	fmt.Printf("  Categories: %d\n", len(cfg.Categories))
	for _, c := range cfg.Categories {
		fmt.Printf("    - %s (%s)\n", c.Name, c.Kind)
	}
	if len(cfg.Feeds) > 0 {
		fmt.Printf("  Feeds:      %d\n", len(cfg.Feeds))
	}
}
