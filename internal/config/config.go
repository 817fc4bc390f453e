// Package config handles loading and parsing awsts.toml configuration
// files.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/enri3l/aws-ts-sub005/internal/fsys"
)

// Settings is the top-level configuration for awsts, loaded from
// <storageDir>/awsts.toml.
type Settings struct {
	Doctor    DoctorConfig    `toml:"doctor"`
	Telemetry TelemetryConfig `toml:"telemetry,omitempty"`
}

// DoctorConfig holds diagnostic and repair settings.
type DoctorConfig struct {
	// MaxConcurrency bounds the per-stage check pool.
	MaxConcurrency int `toml:"max_concurrency,omitempty"`
	// CheckTimeoutMS bounds each aws CLI invocation, in milliseconds.
	CheckTimeoutMS int `toml:"check_timeout_ms,omitempty"`
	// DefaultRegion is applied by the defaults repair.
	DefaultRegion string `toml:"default_region,omitempty"`
	// DefaultOutput is applied by the defaults repair.
	DefaultOutput string `toml:"default_output,omitempty"`
	// Progress enables live progress reporting on a terminal.
	Progress bool `toml:"progress,omitempty"`
}

// TelemetryConfig holds optional OTLP export endpoints. Empty URLs
// disable export.
type TelemetryConfig struct {
	MetricsURL string `toml:"metrics_url,omitempty"`
	LogsURL    string `toml:"logs_url,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Settings {
	return &Settings{
		Doctor: DoctorConfig{
			MaxConcurrency: 5,
			CheckTimeoutMS: 10_000,
			DefaultRegion:  "us-east-1",
			DefaultOutput:  "json",
			Progress:       true,
		},
	}
}

// CheckTimeout returns the per-invocation timeout as a duration.
func (s *Settings) CheckTimeout() time.Duration {
	return time.Duration(s.Doctor.CheckTimeoutMS) * time.Millisecond
}

// Marshal encodes Settings to TOML bytes.
func (s *Settings) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// Load reads and parses an awsts.toml file at the given path using the
// provided filesystem. A missing file is not an error: defaults apply.
// All file I/O goes through fs for testability.
func Load(fs fsys.FS, path string) (*Settings, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("loading config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML data into Settings. Unset fields fall back to
// defaults.
func Parse(data []byte) (*Settings, error) {
	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Doctor.MaxConcurrency < 1 {
		cfg.Doctor.MaxConcurrency = Default().Doctor.MaxConcurrency
	}
	if cfg.Doctor.CheckTimeoutMS < 1 {
		cfg.Doctor.CheckTimeoutMS = Default().Doctor.CheckTimeoutMS
	}
	return cfg, nil
}
