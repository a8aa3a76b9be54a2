package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-insights-go/internal/types"
)

func TestWait_Completed(t *testing.T) {
	calls := 0
	check := func(ctx context.Context) (types.JobStatus, string, error) {
		calls++
		if calls < 3 {
			return types.JobRunning, "", nil
		}
		return types.JobCompleted, "", nil
	}

	err := Wait(context.Background(), "test-job", check, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWait_RemoteFailure(t *testing.T) {
	check := func(ctx context.Context) (types.JobStatus, string, error) {
		return types.JobFailed, "model exploded", nil
	}

	err := Wait(context.Background(), "test-job", check, time.Millisecond, time.Second)
	var rf *types.RemoteFailure
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, "model exploded", rf.Message)
	assert.Equal(t, "test-job", rf.Op)
}

// A job stuck in Running must time out within ~maxWait and perform at most
// maxWait/interval (+1) checks.
func TestWait_Timeout(t *testing.T) {
	const (
		interval = 10 * time.Millisecond
		maxWait  = 30 * time.Millisecond
	)
	calls := 0
	check := func(ctx context.Context) (types.JobStatus, string, error) {
		calls++
		return types.JobRunning, "", nil
	}

	start := time.Now()
	err := Wait(context.Background(), "stuck-job", check, interval, maxWait)
	elapsed := time.Since(start)

	var te *types.TimeoutError
	require.True(t, errors.As(err, &te), "expected TimeoutError, got %v", err)
	assert.Equal(t, maxWait, te.Waited)
	assert.LessOrEqual(t, calls, int(maxWait/interval)+1)
	assert.Less(t, elapsed, maxWait+interval*2, "waited well past maxWait")
}

func TestWait_TransportErrorRetriesUntilTerminal(t *testing.T) {
	calls := 0
	check := func(ctx context.Context) (types.JobStatus, string, error) {
		calls++
		if calls == 1 {
			return "", "", errors.New("connection reset")
		}
		return types.JobCompleted, "", nil
	}

	err := Wait(context.Background(), "flaky-job", check, time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWait_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	check := func(ctx context.Context) (types.JobStatus, string, error) {
		return types.JobRunning, "", nil
	}

	err := Wait(ctx, "cancelled-job", check, 50*time.Millisecond, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}
