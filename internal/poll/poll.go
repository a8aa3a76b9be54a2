// Package poll drives long-running remote jobs to a terminal state with a
// plain interval/max-wait loop. Blocking sleeps are deliberate: this is a
// batch pipeline, not a latency-sensitive request path.
package poll

import (
	"context"
	"time"

	"media-insights-go/internal/types"
)

// CheckFunc asks the remote side for the job's current status. On Failed it
// should also return the remote failure message.
type CheckFunc func(ctx context.Context) (types.JobStatus, string, error)

// Wait polls check until the job reaches a terminal state. It checks at most
// once per interval and never past maxWait; the timeout stops the waiting
// only, the remote computation itself is not interruptible.
//
// Returns nil on Completed, *types.RemoteFailure on Failed, and
// *types.TimeoutError when maxWait elapses while still Running. Transport
// errors from a single check are not terminal; the next tick retries.
func Wait(ctx context.Context, op string, check CheckFunc, interval, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	for {
		status, message, err := check(ctx)
		if err == nil {
			switch status {
			case types.JobCompleted:
				return nil
			case types.JobFailed:
				return &types.RemoteFailure{Op: op, Message: message}
			}
		}

		if time.Now().Add(interval).After(deadline) {
			return &types.TimeoutError{Op: op, Waited: maxWait}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
