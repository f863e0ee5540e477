// internal/engine/retry.go

// Package engine drives the Annotate -> Decide -> Act -> Observe -> Evaluate
// loop for one task. Step-local errors are absorbed into the next iteration;
// only exhausted budgets surface, always as a terminal TaskResult.
package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Classifier reports whether an error is transient and worth retrying.
// A nil classifier treats every error as transient.
type Classifier func(error) bool

// Retry runs op up to maxAttempts times with exponential backoff starting at
// baseDelay. Errors the classifier rejects stop the retries immediately. The
// context cancels waits between attempts.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, classify Classifier, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	retries := uint64(0)
	if maxAttempts > 1 {
		retries = uint64(maxAttempts - 1)
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if classify != nil && !classify(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx))
}
