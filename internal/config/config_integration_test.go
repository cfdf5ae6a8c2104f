package config

import (
	"path/filepath"
	"testing"
)

func TestFullWorkflow(t *testing.T) {
	tmp := t.TempDir()

	// 1. Write default config
	cfgPath := filepath.Join(tmp, "vodcat", "config.toml")
	if err := WriteDefault(cfgPath); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	// 2. Point data at the temp dir
	t.Setenv("VODCAT_DATA_DIR", filepath.Join(tmp, "data"))
	t.Setenv("VODCAT_STREAM_URL_TEMPLATE", "https://cdn.example/index.m3u8?id={id}")

	// 3. Load with validation
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// 4. Verify env substitution
	if cfg.Store.Dir != filepath.Join(tmp, "data") {
		t.Errorf("expected store dir substituted, got %q", cfg.Store.Dir)
	}
	if cfg.Site.StreamURLTemplate != "https://cdn.example/index.m3u8?id={id}" {
		t.Errorf("expected stream template substituted, got %q", cfg.Site.StreamURLTemplate)
	}

	// 5. Verify categories kept in order
	if len(cfg.Categories) != 9 {
		t.Fatalf("expected 9 categories, got %d", len(cfg.Categories))
	}
	if cfg.Categories[0].Name != "Drama" || cfg.Categories[8].Name != "Movies" {
		t.Errorf("unexpected category order: %v", cfg.CategoryNames())
	}
	if cfg.Categories[8].Kind != "movies" {
		t.Errorf("expected Movies to be a movies category, got %q", cfg.Categories[8].Kind)
	}
	if len(cfg.Feeds) != 1 || cfg.Feeds[0].StreamIDPattern == "" {
		t.Errorf("expected one feed with a stream id pattern, got %+v", cfg.Feeds)
	}
}
