// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package extract

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/airlake/internal/config"
	"github.com/tomtom215/airlake/internal/objectstore"
)

// RetryPolicy bounds how transient fetch errors are retried. It is a plain
// value so tests can inject ZeroWait.
type RetryPolicy struct {
	// MaxAttempts includes the first attempt; 1 disables retries.
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// ZeroWait retries up to attempts times without sleeping.
func ZeroWait(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts}
}

// RetryPolicyFromConfig converts the configured schedule.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		Multiplier:      cfg.Multiplier,
	}
}

// newBackOff builds a fresh backoff schedule for one task.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.InitialInterval <= 0 {
		b = &backoff.ZeroBackOff{}
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.InitialInterval
		if p.MaxInterval > 0 {
			exp.MaxInterval = p.MaxInterval
		}
		if p.Multiplier >= 1 {
			exp.Multiplier = p.Multiplier
		}
		exp.MaxElapsedTime = 0 // bounded by MaxAttempts instead
		exp.Reset()
		b = exp
	}

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx) //nolint:gosec // non-negative
}

// retry runs op under the policy. Only transient errors are retried; any
// other error stops immediately. onRetry is called before each retry.
func (p RetryPolicy) retry(ctx context.Context, op func() error, onRetry func(error, time.Duration)) error {
	err := backoff.RetryNotify(
		func() error {
			err := op()
			if err == nil || objectstore.IsTransient(err) {
				return err
			}
			return backoff.Permanent(err)
		},
		p.newBackOff(ctx),
		func(err error, wait time.Duration) {
			if onRetry != nil {
				onRetry(err, wait)
			}
		},
	)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	return err
}
