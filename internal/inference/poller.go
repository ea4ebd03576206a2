package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"async-inference/internal/s3"

	"github.com/cenkalti/backoff/v4"
)

var ErrTimedOut = errors.New("timed out waiting for inference output")

type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, key string) ([]byte, error)
}

// PollConfig bounds the wait for an output object. MaxWait and MaxAttempts of
// zero mean no limit. A Multiplier of 1 keeps the interval fixed.
type PollConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Multiplier  float64
	MaxWait     time.Duration
	MaxAttempts uint64

	// OnWait is called before each sleep with the number of failed attempts so far.
	OnWait func(attempt int, next time.Duration)
}

func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:    2 * time.Second,
		MaxInterval: 30 * time.Second,
		Multiplier:  1,
	}
}

func (c PollConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Interval
	b.RandomizationFactor = 0
	b.Multiplier = max(c.Multiplier, 1)
	b.MaxInterval = max(c.MaxInterval, c.Interval)
	b.MaxElapsedTime = c.MaxWait

	var policy backoff.BackOff = b
	if c.MaxAttempts > 0 {
		policy = backoff.WithMaxRetries(policy, c.MaxAttempts-1)
	}
	return backoff.WithContext(policy, ctx)
}

// GetOutput blocks until the object at outputLocation exists and returns its
// contents. Only not-found errors are retried.
func GetOutput(ctx context.Context, reader ObjectReader, outputLocation string, cfg PollConfig) ([]byte, error) {
	bucket, key, err := s3.ParseS3Path(outputLocation)
	if err != nil {
		return nil, err
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollConfig().Interval
	}

	logger := slog.With("bucket", bucket, "key", key)
	logger.Info("waiting for inference output")

	attempt := 0
	start := time.Now()

	var output []byte
	operation := func() error {
		attempt++
		data, err := reader.ReadObject(ctx, bucket, key)
		if err != nil {
			if s3.IsNotFound(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		output = data
		return nil
	}

	notify := func(err error, next time.Duration) {
		logger.Debug("output not ready", "attempt", attempt, "retry_in", next)
		if cfg.OnWait != nil {
			cfg.OnWait(attempt, next)
		}
	}

	if err := backoff.RetryNotify(operation, cfg.backOff(ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if s3.IsNotFound(err) {
			logger.Warn("gave up waiting for inference output", "attempts", attempt, "elapsed", time.Since(start))
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrTimedOut, attempt, err)
		}
		logger.Error("failed to read inference output", "error", err)
		return nil, err
	}

	logger.Info("inference output is ready", "attempts", attempt, "elapsed", time.Since(start), "bytes", len(output))
	return output, nil
}
