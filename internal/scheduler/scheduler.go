package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

// Pipeline is the work a scheduled job runs.
type Pipeline interface {
	Run(ctx context.Context) (weather.RunReport, error)
}

// Scheduler periodically runs the full catalog, fetch and aggregate pipeline.
type Scheduler struct {
	scheduler *gocron.Scheduler
	pipeline  Pipeline
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. A run is cancelled once timeout elapses
// (0 = no limit).
func New(interval, timeout time.Duration, pipeline Pipeline) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		pipeline:  pipeline,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// Runs never overlap: a tick that fires while a run is in progress is skipped.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		slog.Info("scheduler: no interval configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.runOnce)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	slog.Info("scheduler: started", "interval", s.interval)
	return nil
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	slog.Info("scheduler: running pipeline job")
	report, err := s.pipeline.Run(ctx)
	if err != nil {
		slog.Error("scheduler: pipeline run failed", "run_id", report.ID, "error", err)
		return
	}
	slog.Info("scheduler: completed pipeline job",
		"run_id", report.ID,
		"fetched", report.Fetch.Succeeded,
		"failed", len(report.Fetch.Failed),
		"regionDays", report.Aggregation.Aggregate.Aggregates,
	)
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
