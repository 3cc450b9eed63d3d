package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig controls when the circuit breaker opens. A zero
// MaxConsecutiveFailures never opens it.
type BreakerConfig struct {
	MaxConsecutiveFailures uint32
	Timeout                time.Duration
}

var (
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")

	errMissingUsername = errors.New("silo username is not configured")
)

func newCircuitBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.MaxConsecutiveFailures > 0 && counts.ConsecutiveFailures >= cfg.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// clientError carries a 4xx status out of the breaker as a successful call,
// so a bad station id never counts towards opening it.
type clientError struct {
	status int
}

// doRequest executes the request once through the circuit breaker and returns
// the response body. Non-2xx responses are errors. There is no retry: the
// client's timeout is the only bound on a single attempt.
//
// Only transport errors and 5xx responses count as breaker failures.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
) ([]byte, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	// Ensure the request obeys context cancellation.
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return clientError{status: resp.StatusCode}, nil
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("read body: %w", readErr)
		}
		return body, nil
	})
	if err != nil {
		// If circuit is open, say so rather than reporting the last transport error.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	switch r := result.(type) {
	case []byte:
		return r, nil
	case clientError:
		return nil, fmt.Errorf("%w: %d", errUnexpected, r.status)
	default:
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
}
