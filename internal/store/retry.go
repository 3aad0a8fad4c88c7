package store

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// lockWait bounds how long a hook waits for a contended state file. The host
// applies its own timeout to the whole invocation, so this stays well under it.
//
//nolint:gochecknoglobals // tests shorten the wait
var lockWait = 1500 * time.Millisecond

// RetryWithBackoff wraps an operation with exponential backoff retry logic.
// Retries only on lock contention (errLockBusy); every other error stops
// immediately.
func RetryWithBackoff(operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 10 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = lockWait
	b.RandomizationFactor = 0.1

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if isRetryableError(err) {
			return err
		}

		return backoff.Permanent(err)
	}, b)
}

// isRetryableError determines if an error should be retried.
func isRetryableError(err error) bool {
	return errors.Is(err, errLockBusy)
}
