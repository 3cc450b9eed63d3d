package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

// DateLayout is the layout of aggregate dates.
const DateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when no aggregates match a region or range.
	ErrNotFound = errors.New("no weather aggregates for region")
)

// dayEntry is an aggregate with its parsed date.
type dayEntry struct {
	day time.Time
	agg weather.RegionDayAggregate
}

// MemoryStore is a concurrency-safe in-memory view of the latest aggregate file.
type MemoryStore struct {
	mu sync.RWMutex

	// key: region code, value: entries ordered by date
	data     map[string][]dayEntry
	loadedAt time.Time
}

var _ weather.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]dayEntry),
	}
}

// Replace swaps the whole content of the store for aggs. Aggregates whose
// date is not YYYY-MM-DD cannot be range-queried and are not kept.
func (s *MemoryStore) Replace(aggs []weather.RegionDayAggregate) {
	data := make(map[string][]dayEntry)
	for _, a := range aggs {
		day, err := time.Parse(DateLayout, a.Date)
		if err != nil {
			continue
		}
		data[a.Region] = append(data[a.Region], dayEntry{day: day, agg: a})
	}
	for region := range data {
		entries := data[region]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].day.Before(entries[j].day)
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = data
	s.loadedAt = time.Now().UTC()
}

// LoadedAt returns when the store was last replaced.
func (s *MemoryStore) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Regions returns the region codes present in the store, sorted.
func (s *MemoryStore) Regions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regions := make([]string, 0, len(s.data))
	for region := range s.data {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

// GetRange returns a region's aggregates between from and to (inclusive), ordered by date.
func (s *MemoryStore) GetRange(region string, from, to time.Time) ([]weather.RegionDayAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.data[region]
	if !ok || len(entries) == 0 {
		return nil, ErrNotFound
	}

	var result []weather.RegionDayAggregate
	for _, e := range entries {
		if (e.day.Equal(from) || e.day.After(from)) &&
			(e.day.Equal(to) || e.day.Before(to)) {
			result = append(result, e.agg)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
