// Package fwait implements the polling wait engine and the per-target
// locking behind the fwait command.
//
// The engine blocks until a path appears, or until its modification time
// advances when waiting for an update. All waiting is sleep-then-recheck at
// a fixed interval; there is no native filesystem notification.
package fwait

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the delay between polls when none is configured.
const DefaultInterval = 10 * time.Second

// Options configures a wait operation.
type Options struct {
	// Interval between polls. Defaults to DefaultInterval.
	Interval time.Duration

	// Timeout bounds the whole wait. Zero means wait forever.
	Timeout time.Duration

	// Logger receives state transitions. If nil, one is created from
	// LogLevel.
	Logger *zap.Logger

	// LogLevel for the logger created when Logger is nil.
	LogLevel LogLevel
}

// WaitForPath blocks until target exists, polling at the configured
// interval. A target whose final segment contains a wildcard marker is
// re-resolved on every iteration until a matching entry appears. The wait
// ends early with ErrWaitAborted when the context is canceled or the
// timeout elapses.
func WaitForPath(ctx context.Context, target string, opts Options) error {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(opts.LogLevel)
		defer logger.Sync()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	wildcard := hasWildcard(target)
	if wildcard {
		// A literal name containing the marker can never exist, so a
		// pattern we cannot split would poll forever. Fail fast instead.
		if _, _, _, ok := splitPattern(target); !ok {
			return fmt.Errorf("malformed wildcard pattern %q: need a directory separator and a %q in the final segment", target, Wildcard)
		}
	}

	logger.Info("waiting for target",
		zap.String("target", target),
		zap.Duration("interval", opts.Interval),
	)

	for {
		path := target
		if wildcard {
			if resolved, ok := resolveWildcard(target); ok {
				path = resolved
				logger.Debug("wildcard resolved",
					zap.String("pattern", target),
					zap.String("path", path),
				)
			}
		}

		_, err := os.Stat(path)
		switch {
		case err == nil:
			logger.Info("target available", zap.String("path", path))
			return nil
		case !os.IsNotExist(err):
			return fmt.Errorf("checking %s: %w", path, err)
		}

		if err := sleep(ctx, opts.Interval); err != nil {
			return err
		}
	}
}

// WaitForUpdate blocks until target's modification time advances past the
// value captured at entry. A target that does not exist yet falls back to
// WaitForPath — there is no baseline to track. A directory target fails
// with ErrIsDirectory; a target that disappears mid-wait fails with
// ErrFileMissing.
func WaitForUpdate(ctx context.Context, target string, opts Options) error {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(opts.LogLevel)
		defer logger.Sync()
		opts.Logger = logger
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if _, err := os.Stat(target); os.IsNotExist(err) {
		logger.Warn("target does not exist yet, waiting for it to appear",
			zap.String("target", target),
		)
		return WaitForPath(ctx, target, opts)
	}

	lastMod, err := modTime(target, logger)
	if err != nil {
		return err
	}

	logger.Info("waiting for update",
		zap.String("target", target),
		zap.Int64("baseline", lastMod),
		zap.Duration("interval", opts.Interval),
	)

	for {
		// The directory check inside modTime runs every iteration, so a
		// target swapped for a directory mid-wait still fails cleanly.
		latest, err := modTime(target, logger)
		if err != nil {
			return err
		}
		if latest > lastMod {
			logger.Info("target updated", zap.String("target", target))
			return nil
		}
		if err := sleep(ctx, opts.Interval); err != nil {
			return err
		}
	}
}

// modTime returns target's modification time in whole seconds since the
// epoch, matching the granularity the update wait compares at.
func modTime(target string, logger *zap.Logger) (int64, error) {
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrFileMissing, target)
		}
		return 0, fmt.Errorf("reading metadata for %s: %w", target, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s", ErrIsDirectory, target)
	}

	sec := info.ModTime().Unix()
	logger.Debug("observed modification time",
		zap.String("target", target),
		zap.Int64("mtime", sec),
	)
	return sec, nil
}

// sleep waits out one poll interval, returning ErrWaitAborted if the
// context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrWaitAborted, context.Cause(ctx))
	}
}
