// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vmunix/vodcat/internal/scrape"
)

// Config is the root configuration structure.
type Config struct {
	Site       SiteConfig       `toml:"site"`
	HTTP       HTTPConfig       `toml:"http"`
	Crawl      CrawlConfig      `toml:"crawl"`
	Store      StoreConfig      `toml:"store"`
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
	Categories []CategoryConfig `toml:"categories"`
	Feeds      []FeedConfig     `toml:"feeds"`
	Guide      GuideConfig      `toml:"guide"`
}

// SiteConfig describes the catalog site being crawled.
type SiteConfig struct {
	BaseURL           string           `toml:"base_url"`
	ItemPrefix        string           `toml:"item_prefix"`
	SeriesQuery       string           `toml:"series_query"`
	MovieQuery        string           `toml:"movie_query"`
	ProxyURLTemplate  string           `toml:"proxy_url_template"`
	StreamURLTemplate string           `toml:"stream_url_template"`
	ResolveMode       string           `toml:"resolve_mode"`
	UserAgent         string           `toml:"user_agent"`
	Selectors         scrape.Selectors `toml:"selectors"`
}

type HTTPConfig struct {
	Timeout        Duration `toml:"timeout"`
	ResolveTimeout Duration `toml:"resolve_timeout"`
	// RateLimit is requests per second shared by fetches and probes. Zero disables limiting.
	RateLimit    float64 `toml:"rate_limit"`
	Burst        int     `toml:"burst"`
	MaxBodyBytes int64   `toml:"max_body_bytes"`
}

type CrawlConfig struct {
	Workers int `toml:"workers"`
}

type StoreConfig struct {
	Format   string `toml:"format"`
	Dir      string `toml:"dir"`
	Database string `toml:"database"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ServerConfig struct {
	Host       string   `toml:"host"`
	Port       int      `toml:"port"`
	Interval   Duration `toml:"interval"`
	RunOnStart bool     `toml:"run_on_start"`
}

// CategoryConfig is one [[categories]] entry. Order in the file is crawl order.
type CategoryConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
	Kind string `toml:"kind"`
}

type FeedConfig struct {
	Name              string   `toml:"name"`
	URL               string   `toml:"url"`
	Category          string   `toml:"category"`
	VariantPreference []string `toml:"variant_preference"`
	StreamIDPattern   string   `toml:"stream_id_pattern"`
}

type GuideConfig struct {
	URLTemplate string `toml:"url_template"`
	Pages       int    `toml:"pages"`
	Output      string `toml:"output"`
	Lang        string `toml:"lang"`
	Generator   string `toml:"generator"`
}

// Load reads, parses and validates the configuration file.
func Load(path string) (*Config, error) {
	cfg, err := LoadWithoutValidation(path)
	if err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, &ConfigError{Path: path, Errors: errs}
	}
	return cfg, nil
}

// LoadWithoutValidation reads and parses the configuration file and applies
// defaults. Unresolved environment variables are still an error.
func LoadWithoutValidation(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))
	if len(missing) > 0 {
		return nil, &ConfigError{Path: path, Missing: missing}
	}

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = scrape.DefaultBaseURL
	}
	if c.Site.ItemPrefix == "" {
		c.Site.ItemPrefix = scrape.DefaultItemPrefix
	}
	if c.Site.SeriesQuery == "" {
		c.Site.SeriesQuery = scrape.DefaultSeriesQuery
	}
	if c.Site.MovieQuery == "" {
		c.Site.MovieQuery = scrape.DefaultMovieQuery
	}
	if c.Site.ResolveMode == "" {
		c.Site.ResolveMode = "id"
	}
	c.Site.Selectors = c.Site.Selectors.WithDefaults()

	if c.HTTP.Timeout.Duration == 0 {
		c.HTTP.Timeout = Seconds(30)
	}
	if c.HTTP.ResolveTimeout.Duration == 0 {
		c.HTTP.ResolveTimeout = Seconds(10)
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 1
	}
	if c.Crawl.Workers == 0 {
		c.Crawl.Workers = 4
	}

	if c.Store.Format == "" {
		c.Store.Format = "json"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "./data"
	}
	if c.Store.Database == "" {
		c.Store.Database = "./data/vodcat.db"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8585
	}
	if c.Server.Interval.Duration == 0 {
		c.Server.Interval = Seconds(6 * 60 * 60)
	}

	for i := range c.Categories {
		c.Categories[i].Kind = strings.ToLower(c.Categories[i].Kind)
		if c.Categories[i].Kind == "" {
			c.Categories[i].Kind = "series"
		}
	}
	if c.Guide.Output == "" {
		c.Guide.Output = "./data/guide.xml"
	}
}

// CategoryNames returns configured category names in crawl order.
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// envVarPattern matches ${VAR}, ${VAR:-default} and ${VAR:?message}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?:(:-|:\?)([^}]*))?\}`)

// substituteEnvVars replaces environment references and reports the ones
// that could not be resolved. Unresolved references are left in place.
func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := envVarPattern.FindStringSubmatch(match)
		name, op, arg := m[1], m[2], m[3]
		value, ok := os.LookupEnv(name)

		switch op {
		case ":-":
			if !ok || value == "" {
				return arg
			}
			return value
		case ":?":
			if !ok || value == "" {
				missing = append(missing, name+": "+arg)
				return match
			}
			return value
		}

		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	return out, missing
}
