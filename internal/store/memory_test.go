package store

import (
	"errors"
	"testing"
	"time"

	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestMemoryStoreGetRange(t *testing.T) {
	s := NewMemoryStore()
	s.Replace([]weather.RegionDayAggregate{
		{Region: "VIC", Date: "2024-01-03"},
		{Region: "VIC", Date: "2024-01-01"},
		{Region: "NSW", Date: "2024-01-02"},
		{Region: "VIC", Date: "2024-01-02"},
		{Region: "VIC", Date: "20240104"},
	})

	got, err := s.GetRange("VIC", day(t, "2024-01-01"), day(t, "2024-01-02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2024-01-01" || got[1].Date != "2024-01-02" {
		t.Fatalf("unexpected range: %+v", got)
	}

	if regions := s.Regions(); len(regions) != 2 || regions[0] != "NSW" || regions[1] != "VIC" {
		t.Fatalf("unexpected regions: %v", regions)
	}
	if s.LoadedAt().IsZero() {
		t.Fatal("expected LoadedAt to be set")
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	s.Replace([]weather.RegionDayAggregate{{Region: "QLD", Date: "2024-01-01"}})

	if _, err := s.GetRange("TAS", day(t, "2024-01-01"), day(t, "2024-01-01")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown region, got %v", err)
	}
	if _, err := s.GetRange("QLD", day(t, "2024-02-01"), day(t, "2024-02-28")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty range, got %v", err)
	}
}

func TestMemoryStoreReplaceDropsPreviousContent(t *testing.T) {
	s := NewMemoryStore()
	s.Replace([]weather.RegionDayAggregate{{Region: "QLD", Date: "2024-01-01"}})
	s.Replace([]weather.RegionDayAggregate{{Region: "NSW", Date: "2024-01-01"}})

	if regions := s.Regions(); len(regions) != 1 || regions[0] != "NSW" {
		t.Fatalf("unexpected regions after replace: %v", regions)
	}
}
