package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "PORT", "PIPELINE_CONFIG",
	"METADATA_DIR", "CATALOG_PATH", "RAW_OBSERVATIONS_PATH", "AGGREGATE_PATH", "REGIONS",
	"SILO_BASE_URL", "SILO_USERNAME", "SILO_DATASET", "SILO_COMMENT", "SILO_FORMAT", "SILO_START", "SILO_FINISH",
	"HTTP_TIMEOUT", "REQUEST_PAUSE", "SILO_BREAKER_MAX_FAILURES", "SILO_BREAKER_TIMEOUT", "SCHEDULE_INTERVAL", "SCHEDULE_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AppEnv != "dev" || cfg.Port != "8080" || cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected app settings: %+v", cfg)
	}
	if len(cfg.Regions) != 3 || cfg.Regions[0].Code != "NSW" || cfg.Regions[2].Code != "VIC" {
		t.Fatalf("unexpected regions: %+v", cfg.Regions)
	}
	if want := filepath.Join("data/weather/metadata", "QLD_stations.xml"); cfg.Regions[1].Markup != want {
		t.Fatalf("markup = %q, want %q", cfg.Regions[1].Markup, want)
	}
	if want := filepath.Join("data/weather/metadata", "stations.csv"); cfg.CatalogPath != want {
		t.Fatalf("catalog = %q, want %q", cfg.CatalogPath, want)
	}
	if want := filepath.Join("data/weather", "all_stations_20180101_20250911.csv"); cfg.RawPath != want {
		t.Fatalf("raw = %q, want %q", cfg.RawPath, want)
	}
	if want := filepath.Join("data/weather", "avg_weather_20180101_20250911.csv"); cfg.AggregatePath != want {
		t.Fatalf("aggregate = %q, want %q", cfg.AggregatePath, want)
	}
	if cfg.HTTPTimeout != 30*time.Second || cfg.RequestPause != 1500*time.Millisecond {
		t.Fatalf("unexpected timings: timeout=%v pause=%v", cfg.HTTPTimeout, cfg.RequestPause)
	}
	// The breaker is opt-in.
	if cfg.BreakerMaxFailures != 0 || cfg.ScheduleInterval != 0 || cfg.ScheduleTimeout != 0 {
		t.Fatalf("unexpected breaker/schedule: %d %v", cfg.BreakerMaxFailures, cfg.ScheduleInterval)
	}
	if cfg.SILO.Dataset != "Official" || cfg.SILO.Format != "csv" {
		t.Fatalf("unexpected silo defaults: %+v", cfg.SILO)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METADATA_DIR", "/srv/meta")
	t.Setenv("REGIONS", " VIC, TAS ,")
	t.Setenv("SILO_START", "20240101")
	t.Setenv("SILO_FINISH", "20240131")
	t.Setenv("SILO_USERNAME", "someone@example.com")
	t.Setenv("REQUEST_PAUSE", "0s")
	t.Setenv("SILO_BREAKER_MAX_FAILURES", "5")
	t.Setenv("SCHEDULE_INTERVAL", "24h")
	t.Setenv("SCHEDULE_TIMEOUT", "6h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.AppEnv != "prod" || cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected app settings: %s %v", cfg.AppEnv, cfg.LogLevel)
	}
	if len(cfg.Regions) != 2 || cfg.Regions[1].Markup != filepath.Join("/srv/meta", "TAS_stations.xml") {
		t.Fatalf("unexpected regions: %+v", cfg.Regions)
	}
	if cfg.CatalogPath != filepath.Join("/srv/meta", "stations.csv") {
		t.Fatalf("unexpected catalog path %q", cfg.CatalogPath)
	}
	if !strings.HasSuffix(cfg.RawPath, "all_stations_20240101_20240131.csv") {
		t.Fatalf("unexpected raw path %q", cfg.RawPath)
	}
	if cfg.RequestPause != 0 || cfg.BreakerMaxFailures != 5 || cfg.ScheduleInterval != 24*time.Hour || cfg.ScheduleTimeout != 6*time.Hour {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}

	sc := cfg.ServiceConfig()
	if len(sc.Regions) != 2 || sc.Regions[0].Code != "VIC" || sc.RawPath != cfg.RawPath {
		t.Fatalf("unexpected service config: %+v", sc)
	}
}

func TestLoadPipelineFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	yml := `
catalogPath: /data/catalog.csv
regions:
  - code: WA
    markup: /data/wa.xml
silo:
  dataset: Experimental
  start: "20230101"
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PIPELINE_CONFIG", path)
	t.Setenv("SILO_FINISH", "20231231")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Regions) != 1 || cfg.Regions[0].Code != "WA" || cfg.Regions[0].Markup != "/data/wa.xml" {
		t.Fatalf("unexpected regions: %+v", cfg.Regions)
	}
	if cfg.CatalogPath != "/data/catalog.csv" {
		t.Fatalf("unexpected catalog path %q", cfg.CatalogPath)
	}
	if cfg.SILO.Dataset != "Experimental" || cfg.SILO.Start != "20230101" || cfg.SILO.Finish != "20231231" {
		t.Fatalf("unexpected silo settings: %+v", cfg.SILO)
	}
	// Fields absent from the file keep their defaults.
	if cfg.SILO.Format != "csv" {
		t.Fatalf("format default lost: %q", cfg.SILO.Format)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string][2]string{
		"duration":   {"REQUEST_PAUSE", "soon"},
		"timeout":    {"SCHEDULE_TIMEOUT", "-1m"},
		"log level":  {"LOG_LEVEL", "loud"},
		"app env":    {"APP_ENV", "staging"},
		"start date": {"SILO_START", "2024"},
		"base url":   {"SILO_BASE_URL", "not a url"},
		"config":     {"PIPELINE_CONFIG", "/nonexistent/pipeline.yaml"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", kv[0], kv[1])
			}
		})
	}
}
