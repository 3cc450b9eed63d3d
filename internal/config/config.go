package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/regional-weather-aggregation/internal/common"
	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

const (
	defaultMetadataDir = "data/weather/metadata"
	defaultDataDir     = "data/weather"
	defaultSILOURL     = "https://longpaddock.qld.gov.au/cgi-bin/silo/PatchedPointDataset.php"
)

var defaultRegions = []string{"NSW", "QLD", "VIC"}

// Region is one region code and the markup file listing its stations.
type Region struct {
	Code   string `yaml:"code" validate:"required"`
	Markup string `yaml:"markup" validate:"required"`
}

// SILO holds the fixed parameters of every SILO station request.
type SILO struct {
	BaseURL  string `yaml:"baseURL" validate:"required,url"`
	Username string `yaml:"username"`
	Dataset  string `yaml:"dataset" validate:"required"`
	Comment  string `yaml:"comment"`
	Format   string `yaml:"format" validate:"required"`
	// Start and Finish are YYYYMMDD.
	Start  string `yaml:"start" validate:"required,len=8,numeric"`
	Finish string `yaml:"finish" validate:"required,len=8,numeric"`
}

type AppConfig struct {
	AppEnv   string     `yaml:"-" validate:"oneof=dev prod"`
	LogLevel slog.Level `yaml:"-"`
	Port     string     `yaml:"-" validate:"required"`

	MetadataDir   string   `yaml:"metadataDir"`
	CatalogPath   string   `yaml:"catalogPath" validate:"required"`
	RawPath       string   `yaml:"rawObservationsPath" validate:"required"`
	AggregatePath string   `yaml:"aggregatePath" validate:"required"`
	Regions       []Region `yaml:"regions" validate:"required,min=1,dive"`

	SILO SILO `yaml:"silo"`

	// HTTPTimeout bounds a single provider request.
	HTTPTimeout time.Duration `yaml:"-" validate:"gt=0"`
	// RequestPause is slept between consecutive provider requests.
	RequestPause time.Duration `yaml:"-" validate:"gte=0"`

	// Circuit breaker for the provider (0 failures = never open).
	BreakerMaxFailures uint32        `yaml:"-"`
	BreakerTimeout     time.Duration `yaml:"-" validate:"gte=0"`

	// ScheduleInterval runs the whole pipeline periodically under `serve` (0 = disabled).
	ScheduleInterval time.Duration `yaml:"-" validate:"gte=0"`
	// ScheduleTimeout cancels a scheduled run that takes longer (0 = no limit).
	ScheduleTimeout time.Duration `yaml:"-" validate:"gte=0"`
}

var validate = validator.New()

// Load reads configuration from an optional PIPELINE_CONFIG YAML file and the
// environment (which wins), with defaults matching the data/weather layout.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &AppConfig{
		MetadataDir: defaultMetadataDir,
		SILO: SILO{
			BaseURL: defaultSILOURL,
			Dataset: "Official",
			Comment: "rxnjhg",
			Format:  "csv",
			Start:   "20180101",
			Finish:  "20250911",
		},
	}

	if path := strings.TrimSpace(os.Getenv("PIPELINE_CONFIG")); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDerivedDefaults(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read PIPELINE_CONFIG: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse PIPELINE_CONFIG %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	var err error

	cfg.AppEnv = getenvDefault("APP_ENV", "dev")
	if cfg.LogLevel, err = parseLogLevel(getenvDefault("LOG_LEVEL", "info")); err != nil {
		return err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	setFromEnv(&cfg.MetadataDir, "METADATA_DIR")
	setFromEnv(&cfg.CatalogPath, "CATALOG_PATH")
	setFromEnv(&cfg.RawPath, "RAW_OBSERVATIONS_PATH")
	setFromEnv(&cfg.AggregatePath, "AGGREGATE_PATH")

	setFromEnv(&cfg.SILO.BaseURL, "SILO_BASE_URL")
	setFromEnv(&cfg.SILO.Username, "SILO_USERNAME")
	setFromEnv(&cfg.SILO.Dataset, "SILO_DATASET")
	setFromEnv(&cfg.SILO.Comment, "SILO_COMMENT")
	setFromEnv(&cfg.SILO.Format, "SILO_FORMAT")
	setFromEnv(&cfg.SILO.Start, "SILO_START")
	setFromEnv(&cfg.SILO.Finish, "SILO_FINISH")

	if codes := common.SplitList(os.Getenv("REGIONS")); len(codes) > 0 {
		cfg.Regions = regionsFor(codes, cfg.MetadataDir)
	}

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "30s"); err != nil {
		return err
	}
	if cfg.RequestPause, err = getenvDuration("REQUEST_PAUSE", "1.5s"); err != nil {
		return err
	}
	if cfg.BreakerTimeout, err = getenvDuration("SILO_BREAKER_TIMEOUT", "1m"); err != nil {
		return err
	}
	if cfg.ScheduleInterval, err = getenvDuration("SCHEDULE_INTERVAL", "0s"); err != nil {
		return err
	}
	if cfg.ScheduleTimeout, err = getenvDuration("SCHEDULE_TIMEOUT", "0s"); err != nil {
		return err
	}
	cfg.BreakerMaxFailures = uint32(getenvInt("SILO_BREAKER_MAX_FAILURES", 0))

	return nil
}

// applyDerivedDefaults fills paths that depend on other settings.
func applyDerivedDefaults(cfg *AppConfig) {
	if len(cfg.Regions) == 0 {
		cfg.Regions = regionsFor(defaultRegions, cfg.MetadataDir)
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = filepath.Join(cfg.MetadataDir, "stations.csv")
	}
	if cfg.RawPath == "" {
		cfg.RawPath = filepath.Join(defaultDataDir, fmt.Sprintf("all_stations_%s_%s.csv", cfg.SILO.Start, cfg.SILO.Finish))
	}
	if cfg.AggregatePath == "" {
		cfg.AggregatePath = filepath.Join(defaultDataDir, fmt.Sprintf("avg_weather_%s_%s.csv", cfg.SILO.Start, cfg.SILO.Finish))
	}
}

func regionsFor(codes []string, metadataDir string) []Region {
	regions := make([]Region, 0, len(codes))
	for _, code := range codes {
		regions = append(regions, Region{
			Code:   code,
			Markup: filepath.Join(metadataDir, code+"_stations.xml"),
		})
	}
	return regions
}

// ServiceConfig converts the loaded settings into the pipeline's configuration.
func (c *AppConfig) ServiceConfig() weather.ServiceConfig {
	regions := make([]weather.RegionSource, 0, len(c.Regions))
	for _, r := range c.Regions {
		regions = append(regions, weather.RegionSource{Code: r.Code, MarkupPath: r.Markup})
	}
	return weather.ServiceConfig{
		Regions:       regions,
		RawPath:       c.RawPath,
		AggregatePath: c.AggregatePath,
		RequestPause:  c.RequestPause,
	}
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	s := getenvDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
