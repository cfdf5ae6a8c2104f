package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration that reads and writes "10s" style strings.
type Duration struct {
	time.Duration
}

// Seconds returns a Duration of n seconds.
func Seconds(n int) Duration {
	return Duration{time.Duration(n) * time.Second}
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
