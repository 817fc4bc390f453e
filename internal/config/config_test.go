package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/enri3l/aws-ts-sub005/internal/fsys"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(fsys.NewFake(), "/store/awsts.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if *cfg != *want {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadReadErrorPropagates(t *testing.T) {
	fake := fsys.NewFake()
	fake.Errors["/store/awsts.toml"] = errors.New("permission denied")
	if _, err := Load(fake, "/store/awsts.toml"); err == nil {
		t.Fatal("Load succeeded, want error")
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[doctor]
max_concurrency = 2
default_region = "eu-west-1"

[telemetry]
metrics_url = "http://localhost:4318/v1/metrics"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Doctor.MaxConcurrency != 2 {
		t.Errorf("MaxConcurrency = %d, want 2", cfg.Doctor.MaxConcurrency)
	}
	if cfg.Doctor.DefaultRegion != "eu-west-1" {
		t.Errorf("DefaultRegion = %q, want eu-west-1", cfg.Doctor.DefaultRegion)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Doctor.DefaultOutput != "json" {
		t.Errorf("DefaultOutput = %q, want json", cfg.Doctor.DefaultOutput)
	}
	if cfg.Telemetry.MetricsURL != "http://localhost:4318/v1/metrics" {
		t.Errorf("MetricsURL = %q", cfg.Telemetry.MetricsURL)
	}
}

func TestParseRejectsMalformedTOML(t *testing.T) {
	if _, err := Parse([]byte("[doctor\nmax")); err == nil {
		t.Fatal("Parse succeeded on malformed TOML")
	}
}

func TestParseClampsInvalidValues(t *testing.T) {
	cfg, err := Parse([]byte("[doctor]\nmax_concurrency = 0\ncheck_timeout_ms = -5\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Doctor.MaxConcurrency != 5 {
		t.Errorf("MaxConcurrency = %d, want default 5", cfg.Doctor.MaxConcurrency)
	}
	if cfg.CheckTimeout() != 10*time.Second {
		t.Errorf("CheckTimeout = %v, want 10s", cfg.CheckTimeout())
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Doctor.DefaultRegion = "ap-southeast-2"
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `default_region = "ap-southeast-2"`) {
		t.Errorf("toml = %s, want default_region line", data)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if *back != *cfg {
		t.Errorf("round trip = %+v, want %+v", back, cfg)
	}
}
