// internal/config/write.go
package config

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/vmunix/vodcat/internal/store"
)

//go:embed default_config.toml
var defaultConfig string

// Default returns the embedded example config.
func Default() string {
	return defaultConfig
}

// WriteDefault writes the example config to the specified path.
// Creates parent directories if needed.
func WriteDefault(path string) error {
	return store.WriteFileAtomic(path, []byte(defaultConfig))
}

// Encode serializes the config to TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write serializes the config to TOML and writes it to the specified path.
func (c *Config) Write(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	return store.WriteFileAtomic(path, data)
}
