package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

func TestRun_PreservesOrderAndBound(t *testing.T) {
	p := NewPool("test", nil, WithWorkers(2))
	var inFlight, peak atomic.Int32

	items := []int{5, 1, 4, 2, 3}
	out := Run(context.Background(), p, items, func(_ context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(time.Duration(n) * time.Millisecond)
		inFlight.Add(-1)
		return n * 10, nil
	})

	require.Len(t, out, len(items))
	for i, n := range items {
		assert.NoError(t, out[i].Err)
		assert.Equal(t, n*10, out[i].Value)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRun_IsolatesFailuresAndPanics(t *testing.T) {
	p := NewPool("test", nil, WithWorkers(3))
	out := Run(context.Background(), p, []string{"ok", "fail", "panic"}, func(_ context.Context, s string) (string, error) {
		switch s {
		case "fail":
			return "", errors.New("boom")
		case "panic":
			panic("collaborator exploded")
		}
		return s, nil
	})

	assert.Equal(t, "ok", out[0].Value)
	assert.EqualError(t, out[1].Err, "boom")
	require.Error(t, out[2].Err)
	assert.ErrorIs(t, out[2].Err, common.ErrInternal)
	assert.Contains(t, out[2].Err.Error(), "collaborator exploded")
}

func TestRun_TaskTimeout(t *testing.T) {
	p := NewPool("test", nil, WithTaskTimeout(10*time.Millisecond))
	out := Run(context.Background(), p, []int{1}, func(ctx context.Context, _ int) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, out[0].Err, context.DeadlineExceeded)
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	out := Run(ctx, NewPool("test", nil), []int{1, 2}, func(context.Context, int) (int, error) {
		calls.Add(1)
		return 0, nil
	})
	assert.Equal(t, int32(0), calls.Load())
	assert.ErrorIs(t, out[0].Err, context.Canceled)
	assert.ErrorIs(t, out[1].Err, context.Canceled)
}
