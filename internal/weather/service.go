package weather

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RegionSource names the markup file listing one region's stations.
type RegionSource struct {
	Code       string
	MarkupPath string
}

// ServiceConfig carries the paths and pacing used by the pipeline stages.
type ServiceConfig struct {
	Regions []RegionSource

	// RawPath is the combined observations file the fetcher appends to.
	RawPath string
	// AggregatePath is the per-region daily averages file.
	AggregatePath string

	// RequestPause is slept between consecutive provider requests.
	RequestPause time.Duration
}

// CatalogReport summarises a catalog rebuild.
type CatalogReport struct {
	Regions  int            `json:"regions"`
	Stations map[string]int `json:"stations"`
	Failed   []string       `json:"failed,omitempty"`
}

// FetchReport summarises one fetch pass over the catalog.
type FetchReport struct {
	Stations  int      `json:"stations"`
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    []string `json:"failed,omitempty"`
}

// AggregationReport summarises one aggregation pass.
type AggregationReport struct {
	Read      ReadReport      `json:"read"`
	Aggregate AggregateReport `json:"aggregate"`
}

// RunReport collects the reports of a full pipeline run.
type RunReport struct {
	ID          string            `json:"id"`
	StartedAt   time.Time         `json:"startedAt"`
	FinishedAt  time.Time         `json:"finishedAt"`
	Catalog     CatalogReport     `json:"catalog"`
	Fetch       FetchReport       `json:"fetch"`
	Aggregation AggregationReport `json:"aggregation"`
}

// Service orchestrates the catalog, the observation source and the store.
type Service struct {
	catalog Catalog
	source  ObservationSource
	store   Store
	cfg     ServiceConfig
	log     *slog.Logger
}

// NewService creates a new Service. store may be nil when aggregates are
// only written to disk.
func NewService(catalog Catalog, source ObservationSource, store Store, cfg ServiceConfig) *Service {
	return &Service{
		catalog: catalog,
		source:  source,
		store:   store,
		cfg:     cfg,
		log:     slog.Default(),
	}
}

// BuildCatalog truncates the catalog and appends every configured region in
// order. A region that fails is reported and skipped; the failures are
// returned joined once all regions have been tried.
func (s *Service) BuildCatalog(ctx context.Context) (CatalogReport, error) {
	return s.buildCatalog(ctx, s.log)
}

func (s *Service) buildCatalog(ctx context.Context, log *slog.Logger) (CatalogReport, error) {
	report := CatalogReport{
		Regions:  len(s.cfg.Regions),
		Stations: make(map[string]int, len(s.cfg.Regions)),
	}

	if err := s.catalog.Reset(); err != nil {
		return report, fmt.Errorf("reset catalog: %w", err)
	}

	var errs []error
	for _, region := range s.cfg.Regions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		n, err := s.catalog.AppendRegion(region.Code, region.MarkupPath)
		if err != nil {
			log.Error("catalog region failed", "region", region.Code, "markup", region.MarkupPath, "error", err)
			report.Failed = append(report.Failed, region.Code)
			errs = append(errs, fmt.Errorf("region %s: %w", region.Code, err))
			continue
		}
		report.Stations[region.Code] = n
		log.Info("catalog region parsed", "region", region.Code, "stations", n)
	}

	return report, errors.Join(errs...)
}

// FetchObservations requests every cataloged station from the source, one at
// a time, and appends each response body to the combined raw file.
//
// A failed request or append is logged and the station skipped. Only a
// source that reports itself unusable, a catalog that cannot be read or an
// output directory that cannot be created aborts the pass.
func (s *Service) FetchObservations(ctx context.Context) (FetchReport, error) {
	return s.fetchObservations(ctx, s.log)
}

func (s *Service) fetchObservations(ctx context.Context, log *slog.Logger) (FetchReport, error) {
	var report FetchReport

	if s.source == nil {
		return report, fmt.Errorf("no observation source configured")
	}
	if rc, ok := s.source.(readyChecker); ok {
		if err := rc.Ready(); err != nil {
			return report, fmt.Errorf("source %s: %w", s.source.Name(), err)
		}
	}

	stations, err := s.catalog.Stations()
	if err != nil {
		return report, fmt.Errorf("read catalog: %w", err)
	}
	report.Stations = len(stations)

	if err := ensureDir(s.cfg.RawPath); err != nil {
		return report, err
	}

	log.Info("fetching observations", "stations", len(stations), "source", s.source.Name(), "output", s.cfg.RawPath)

	for i, st := range stations {
		id := strings.TrimSpace(st.ID)
		if id == "" {
			log.Warn("skipping station without id", "index", i+1)
			report.Skipped++
			continue
		}

		if report.Attempted > 0 {
			if err := pause(ctx, s.cfg.RequestPause); err != nil {
				return report, err
			}
		}
		report.Attempted++

		log.Info("fetching station", "index", i+1, "total", len(stations), "station", id, "name", st.Name)

		body, err := s.source.FetchStation(ctx, id)
		if err != nil {
			log.Error("fetch station failed", "station", id, "error", err)
			report.Failed = append(report.Failed, id)
			continue
		}

		if err := appendFile(s.cfg.RawPath, body); err != nil {
			log.Error("save station data failed", "station", id, "error", err)
			report.Failed = append(report.Failed, id)
			continue
		}
		report.Succeeded++
	}

	log.Info("fetch completed",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", len(report.Failed),
		"skipped", report.Skipped,
	)
	return report, nil
}

// AggregateObservations reads the combined raw file and the catalog, averages
// each field per (region, date) and writes the aggregate file. The store, if
// any, is replaced with the new aggregates.
func (s *Service) AggregateObservations(ctx context.Context) (AggregationReport, error) {
	return s.aggregateObservations(ctx, s.log)
}

func (s *Service) aggregateObservations(ctx context.Context, log *slog.Logger) (AggregationReport, error) {
	var report AggregationReport

	f, err := openInput(s.cfg.RawPath)
	if err != nil {
		return report, err
	}
	observations, readReport, err := ReadObservations(f)
	_ = f.Close()
	if err != nil {
		return report, err
	}
	report.Read = readReport
	log.Info("read observations",
		"path", s.cfg.RawPath,
		"rows", readReport.Rows,
		"kept", len(observations),
		"missingKey", readReport.MissingKey,
		"badNumber", readReport.BadNumber,
		"malformed", readReport.Malformed,
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	stations, err := s.catalog.Stations()
	if err != nil {
		return report, fmt.Errorf("read catalog: %w", err)
	}

	aggs, aggReport := AggregateRegionDays(observations, RegionIndex(stations))
	report.Aggregate = aggReport
	log.Info("aggregated station-days",
		"stationDays", aggReport.StationDays,
		"unmapped", aggReport.UnmappedStationDays,
		"regionDays", aggReport.Aggregates,
	)

	if err := writeAggregateFile(s.cfg.AggregatePath, aggs); err != nil {
		return report, err
	}
	log.Info("aggregates saved", "path", s.cfg.AggregatePath)

	if s.store != nil {
		s.store.Replace(aggs)
	}
	return report, nil
}

// Run rebuilds the catalog, fetches into a truncated raw file and aggregates.
// A partially failed catalog rebuild is logged and the run continues with
// whatever regions were cataloged.
func (s *Service) Run(ctx context.Context) (RunReport, error) {
	report := RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	log := s.log.With("run_id", report.ID)
	log.Info("pipeline run started")

	var err error
	report.Catalog, err = s.buildCatalog(ctx, log)
	if err != nil {
		if ctx.Err() != nil {
			return report, err
		}
		log.Warn("catalog rebuilt with errors", "error", err)
	}

	if err := truncateFile(s.cfg.RawPath); err != nil {
		return report, err
	}

	report.Fetch, err = s.fetchObservations(ctx, log)
	if err != nil {
		return report, fmt.Errorf("fetch: %w", err)
	}

	report.Aggregation, err = s.aggregateObservations(ctx, log)
	if err != nil {
		return report, fmt.Errorf("aggregate: %w", err)
	}

	report.FinishedAt = time.Now().UTC()
	log.Info("pipeline run completed", "duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

// LoadStore replaces the store's content with the aggregate file on disk.
func (s *Service) LoadStore() (int, error) {
	if s.store == nil {
		return 0, fmt.Errorf("no store configured")
	}

	f, err := openInput(s.cfg.AggregatePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	aggs, err := ReadAggregates(f)
	if err != nil {
		return 0, err
	}
	s.store.Replace(aggs)
	return len(aggs), nil
}

// Stations delegates to the catalog, optionally filtered by region.
func (s *Service) Stations(region string) ([]Station, error) {
	all, err := s.catalog.Stations()
	if err != nil {
		return nil, err
	}
	if region == "" {
		return all, nil
	}

	var out []Station
	for _, st := range all {
		if strings.EqualFold(st.Region, region) {
			out = append(out, st)
		}
	}
	return out, nil
}

// Regions delegates to the underlying store.
func (s *Service) Regions() []string {
	if s.store == nil {
		return nil
	}
	return s.store.Regions()
}

// GetRange delegates to the underlying store.
func (s *Service) GetRange(region string, from, to time.Time) ([]RegionDayAggregate, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no store configured")
	}
	return s.store.GetRange(region, from, to)
}

// pause waits d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrWrite, dir, err)
	}
	return nil
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func truncateFile(path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: truncate %s: %v", ErrWrite, path, err)
	}
	return f.Close()
}

// writeAggregateFile writes through a temporary file so a failed write never
// replaces an earlier complete output.
func writeAggregateFile(path string, aggs []RegionDayAggregate) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWrite, path, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteAggregates(tmp, aggs); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrWrite, path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrWrite, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrWrite, path, err)
	}
	return nil
}
