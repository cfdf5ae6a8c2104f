// internal/config/load_test.go
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalCategories = `
[[categories]]
name = "Drama"
url = "https://forja.ma/category/series?g=serie-drame"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLoad_Valid(t *testing.T) {
	cfgPath := writeConfig(t, `
[server]
port = 8080
`+minimalCategories)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if len(cfg.Categories) != 1 || cfg.Categories[0].Name != "Drama" {
		t.Errorf("expected Drama category, got %+v", cfg.Categories)
	}
}

func TestLoad_MissingEnvVar(t *testing.T) {
	os.Unsetenv("VODCAT_MISSING_TEMPLATE")
	cfgPath := writeConfig(t, `
[site]
stream_url_template = "${VODCAT_MISSING_TEMPLATE}"
`+minimalCategories)

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("expected error for missing env var")
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if !strings.Contains(err.Error(), "VODCAT_MISSING_TEMPLATE") {
		t.Errorf("expected VODCAT_MISSING_TEMPLATE in error, got %v", err)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	cfgPath := writeConfig(t, `
[server]
port = 99999
`+minimalCategories)

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "server.port") {
		t.Errorf("expected server.port in error, got %v", err)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalCategories))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8585 {
		t.Errorf("expected default port 8585, got %d", cfg.Server.Port)
	}
	if cfg.Crawl.Workers != 4 {
		t.Errorf("expected default workers 4, got %d", cfg.Crawl.Workers)
	}
	if cfg.Store.Format != "json" {
		t.Errorf("expected default store format json, got %s", cfg.Store.Format)
	}
	if cfg.Site.BaseURL != "https://forja.ma" {
		t.Errorf("expected default base url, got %s", cfg.Site.BaseURL)
	}
	if cfg.Site.Selectors.EpisodeContainer == "" {
		t.Error("expected default selectors")
	}
	if cfg.Categories[0].Kind != "series" {
		t.Errorf("expected default kind series, got %s", cfg.Categories[0].Kind)
	}
	if cfg.HTTP.Timeout.Duration != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %s", cfg.HTTP.Timeout)
	}
}

func TestLoad_Durations(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[http]
timeout = "5s"
resolve_timeout = "1500ms"

[server]
interval = "2h"
`+minimalCategories))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Timeout.Duration != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.ResolveTimeout.Duration != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %s", cfg.HTTP.ResolveTimeout)
	}
	if cfg.Server.Interval.Duration != 2*time.Hour {
		t.Errorf("expected 2h, got %s", cfg.Server.Interval)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(writeConfig(t, `
[http]
timeout = "soon"
`+minimalCategories))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("expected parsing error, got %v", err)
	}
}

func TestLoad_CategoryOrderAndKind(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[[categories]]
name = "Drama"
url = "https://forja.ma/category/drama"

[[categories]]
name = "Movies"
url = "https://forja.ma/category/films"
kind = "Movies"

[[categories]]
name = "Action"
url = "https://forja.ma/category/action"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := cfg.CategoryNames()
	if strings.Join(names, ",") != "Drama,Movies,Action" {
		t.Errorf("expected listed order, got %v", names)
	}
	if cfg.Categories[1].Kind != "movies" {
		t.Errorf("expected kind normalized to movies, got %s", cfg.Categories[1].Kind)
	}
}

func TestLoad_SelectorOverride(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[site.selectors]
episode_container = "li.ep"
`+minimalCategories))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Site.Selectors.EpisodeContainer != "li.ep" {
		t.Errorf("expected override, got %s", cfg.Site.Selectors.EpisodeContainer)
	}
	if cfg.Site.Selectors.Title == "" {
		t.Error("expected untouched selectors to keep defaults")
	}
}

func TestLoadWithoutValidation(t *testing.T) {
	cfgPath := writeConfig(t, `
[server]
port = 99999
`)

	cfg, err := LoadWithoutValidation(cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 99999 {
		t.Errorf("expected port 99999, got %d", cfg.Server.Port)
	}
}

func TestLoad_EnvVarDefault(t *testing.T) {
	os.Unsetenv("OPTIONAL_VAR")
	cfgPath := writeConfig(t, `
[server]
host = "${OPTIONAL_VAR:-localhost}"
`+minimalCategories)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("expected host localhost, got %s", cfg.Server.Host)
	}
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config") {
		t.Errorf("expected reading config error, got %v", err)
	}
}
