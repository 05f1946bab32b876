// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/logging"
	"github.com/tomtom215/airlake/internal/metrics"
)

const breakerName = "object-store"

// HTTPStore fetches objects with GET <base>/<path>. Requests are paced by a
// token bucket and guarded by a circuit breaker that trips on consecutive
// transient failures. Missing objects and permanent errors do not count
// against the breaker.
type HTTPStore struct {
	base      string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	cb        *gobreaker.CircuitBreaker[*http.Response]
}

// NewHTTPStore builds an HTTPStore from cfg.
func NewHTTPStore(cfg *config.SourceConfig) (*HTTPStore, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("source base URL is required")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	trip := cfg.CircuitBreaker.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: cfg.CircuitBreaker.HalfOpenRequests,
		Timeout:     cfg.CircuitBreaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if trip == 0 {
				return false
			}
			return counts.ConsecutiveFailures >= trip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &HTTPStore{
		base:      strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   rate.NewLimiter(limit, burst),
		cb:        cb,
	}, nil
}

// Fetch implements Store.
func (s *HTTPStore) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.cb.Execute(func() (*http.Response, error) {
		return s.get(ctx, path)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &TransientError{Path: path, Err: err}
	}
	metrics.RecordFetch("http", fetchResult(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// get performs one request and classifies the outcome. On success the
// caller owns resp.Body.
func (s *HTTPStore) get(ctx context.Context, path string) (*http.Response, error) {
	url := s.base + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &PermanentError{Path: path, Err: err}
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransientError{Path: path, Err: err}
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	// The body of an error response is small; keep a snippet for the report.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	_ = resp.Body.Close()
	status := resp.StatusCode
	msg := strings.TrimSpace(string(snippet))
	if msg == "" {
		msg = http.StatusText(status)
	}
	detail := errors.New(msg)

	switch {
	case status == http.StatusNotFound || status == http.StatusForbidden:
		// S3 answers 403 for missing keys when listing is not allowed.
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	case status == http.StatusTooManyRequests || status >= 500:
		return nil, &TransientError{Path: path, StatusCode: status, Err: detail}
	default:
		return nil, &PermanentError{Path: path, StatusCode: status, Err: detail}
	}
}

func fetchResult(err error) string {
	var perm *PermanentError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case IsTransient(err):
		return "transient"
	case errors.As(err, &perm):
		return "permanent"
	default:
		return "error"
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
