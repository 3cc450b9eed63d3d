package weather

import (
	"context"
	"time"
)

// ObservationSource abstracts the remote provider of raw daily observations
// (e.g. SILO Patched Point Dataset).
type ObservationSource interface {
	Name() string
	// FetchStation returns the provider's response body for one station, verbatim.
	FetchStation(ctx context.Context, stationID string) ([]byte, error)
}

// readyChecker is implemented by sources that can tell, before any request,
// that every request would fail.
type readyChecker interface {
	Ready() error
}

// Catalog is the contract the station catalog file must satisfy.
type Catalog interface {
	// Reset truncates the catalog so it can be rebuilt from scratch.
	Reset() error
	// AppendRegion parses the markup at markupPath and appends its stations
	// tagged with region. Nothing is written if the markup cannot be parsed.
	AppendRegion(region, markupPath string) (int, error)
	// Stations returns every cataloged row in file order.
	Stations() ([]Station, error)
}

// Store is the contract the in-memory aggregate store must satisfy.
type Store interface {
	Replace(aggs []RegionDayAggregate)
	Regions() []string
	GetRange(region string, from, to time.Time) ([]RegionDayAggregate, error)
}
