package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/regional-weather-aggregation/internal/weather"
)

// DefaultSILOURL is the SILO Patched Point Dataset endpoint.
const DefaultSILOURL = "https://longpaddock.qld.gov.au/cgi-bin/silo/PatchedPointDataset.php"

// SILOConfig holds the fixed request parameters sent with every station query.
type SILOConfig struct {
	BaseURL  string
	Username string
	Dataset  string
	Comment  string
	Format   string
	// Start and Finish bound the requested range, formatted YYYYMMDD.
	Start  string
	Finish string

	Breaker BreakerConfig
}

// SILOSource implements the weather.ObservationSource interface for SILO.
type SILOSource struct {
	name    string
	cfg     SILOConfig
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

var _ weather.ObservationSource = (*SILOSource)(nil)

func NewSILOSource(client *http.Client, cfg SILOConfig) *SILOSource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSILOURL
	}

	return &SILOSource{
		name:    "silo",
		cfg:     cfg,
		client:  client,
		circuit: newCircuitBreaker("silo", cfg.Breaker),
	}
}

func (p *SILOSource) Name() string {
	return p.name
}

// Ready reports a configuration that would fail every request.
func (p *SILOSource) Ready() error {
	if p.cfg.Username == "" {
		return errMissingUsername
	}
	return nil
}

// FetchStation requests the configured date range for one station and
// returns the delimited response body untouched.
func (p *SILOSource) FetchStation(ctx context.Context, stationID string) ([]byte, error) {
	if err := p.Ready(); err != nil {
		return nil, err
	}
	if stationID == "" {
		return nil, fmt.Errorf("station id is required")
	}

	req, err := http.NewRequest(http.MethodGet, p.stationURL(stationID), nil)
	if err != nil {
		return nil, err
	}

	body, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		return nil, fmt.Errorf("silo station %s: %w", stationID, err)
	}
	return body, nil
}

func (p *SILOSource) stationURL(stationID string) string {
	values := url.Values{}
	values.Set("station", stationID)
	values.Set("format", p.cfg.Format)
	values.Set("start", p.cfg.Start)
	values.Set("finish", p.cfg.Finish)
	values.Set("username", p.cfg.Username)
	values.Set("dataset", p.cfg.Dataset)
	values.Set("comment", p.cfg.Comment)

	return fmt.Sprintf("%s?%s", p.cfg.BaseURL, values.Encode())
}
