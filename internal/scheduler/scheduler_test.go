package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

type countingPipeline struct {
	runs atomic.Int32
	err  error
}

func (p *countingPipeline) Run(ctx context.Context) (weather.RunReport, error) {
	p.runs.Add(1)
	return weather.RunReport{ID: "run"}, p.err
}

func TestStartWithoutIntervalIsNoop(t *testing.T) {
	p := &countingPipeline{}
	s := New(0, 0, p)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	if n := p.runs.Load(); n != 0 {
		t.Fatalf("expected no runs, got %d", n)
	}
}

func TestStartRunsPipeline(t *testing.T) {
	p := &countingPipeline{}
	s := New(time.Hour, time.Second, p)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	// gocron runs an interval job immediately on start.
	deadline := time.Now().Add(2 * time.Second)
	for p.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := p.runs.Load(); n != 1 {
		t.Fatalf("expected 1 run, got %d", n)
	}
}

func TestRunOnceToleratesFailure(t *testing.T) {
	p := &countingPipeline{err: errors.New("boom")}
	s := New(time.Hour, 0, p)

	s.runOnce()

	if n := p.runs.Load(); n != 1 {
		t.Fatalf("expected 1 run, got %d", n)
	}
}
