package watcher

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ReloadOptions bounds how hard Reload retries.
type ReloadOptions struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxTries        uint
}

// DefaultReloadOptions retry for roughly two seconds, long enough for an
// editor to finish writing.
func DefaultReloadOptions() ReloadOptions {
	return ReloadOptions{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
		MaxTries:        6,
	}
}

// Reload calls load until it succeeds, retrying with exponential backoff
// while the document is half written. A missing file is not retried.
func Reload[T any](ctx context.Context, opts ReloadOptions, load func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialInterval
	b.MaxInterval = opts.MaxInterval

	op := func() (T, error) {
		v, err := load(ctx)
		if err != nil && errors.Is(err, os.ErrNotExist) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	return backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(opts.MaxTries))
}
