package ocr

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

type scriptedBackend struct {
	calls   atomic.Int32
	results []func(ctx context.Context) (string, error)
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Recognize(ctx context.Context, _ []byte) (string, error) {
	n := int(b.calls.Add(1)) - 1
	if n >= len(b.results) {
		n = len(b.results) - 1
	}
	return b.results[n](ctx)
}

func always(fn func(ctx context.Context) (string, error)) *scriptedBackend {
	return &scriptedBackend{results: []func(ctx context.Context) (string, error){fn}}
}

type recordedSleep struct {
	waits []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

var png = []byte("\x89PNG fake")

func TestRecognize_AlwaysTransientExhaustsAfterThreeAttempts(t *testing.T) {
	backend := always(func(context.Context) (string, error) {
		return "", Transient(errors.New("rate limited"))
	})
	rs := &recordedSleep{}
	e := NewEngine(backend, EngineConfig{}, nil, WithSleep(rs.sleep))

	_, err := e.Recognize(context.Background(), png)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindExhausted, oe.Kind)
	assert.Len(t, oe.Attempts, 3)
	assert.EqualValues(t, 3, backend.calls.Load())
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rs.waits)
}

func TestRecognize_InvalidInputFailsFast(t *testing.T) {
	backend := always(func(context.Context) (string, error) {
		return "", Invalid(errors.New("unsupported format"))
	})
	rs := &recordedSleep{}
	e := NewEngine(backend, EngineConfig{}, nil, WithSleep(rs.sleep))

	_, err := e.Recognize(context.Background(), png)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindInvalidInput, oe.Kind)
	assert.EqualValues(t, 1, backend.calls.Load())
	assert.Empty(t, rs.waits)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestRecognize_EmptyImageIsInvalidWithoutCallingBackend(t *testing.T) {
	backend := always(func(context.Context) (string, error) { return "text", nil })
	e := NewEngine(backend, EngineConfig{}, nil)

	_, err := e.Recognize(context.Background(), nil)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindInvalidInput, oe.Kind)
	assert.EqualValues(t, 0, backend.calls.Load())
}

func TestRecognize_SucceedsAfterTransient(t *testing.T) {
	backend := &scriptedBackend{results: []func(ctx context.Context) (string, error){
		func(context.Context) (string, error) { return "", Transient(errors.New("503")) },
		func(context.Context) (string, error) { return "  20% OFF\r\nsynthetic   oil  ", nil },
	}}
	rs := &recordedSleep{}
	e := NewEngine(backend, EngineConfig{}, nil, WithSleep(rs.sleep))

	res, err := e.Recognize(context.Background(), png)

	require.NoError(t, err)
	assert.Equal(t, "20% OFF\nsynthetic oil", res.Text)
	require.Len(t, res.Attempts, 2)
	assert.Equal(t, KindTransient, res.Attempts[0].Kind)
	assert.Empty(t, res.Attempts[1].Kind)
	assert.Equal(t, "scripted", res.Backend)
}

func TestRecognize_PerCallTimeoutCountsAsTransient(t *testing.T) {
	backend := always(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	rs := &recordedSleep{}
	e := NewEngine(backend, EngineConfig{CallTimeout: 5 * time.Millisecond}, nil, WithSleep(rs.sleep))

	_, err := e.Recognize(context.Background(), png)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindExhausted, oe.Kind)
	assert.EqualValues(t, 3, backend.calls.Load())
	for _, a := range oe.Attempts {
		assert.Equal(t, KindTransient, a.Kind)
	}
}

func TestRecognize_ParentCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	backend := always(func(context.Context) (string, error) {
		cancel()
		return "", Transient(errors.New("unavailable"))
	})
	e := NewEngine(backend, EngineConfig{}, nil)

	_, err := e.Recognize(ctx, png)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, KindTransient, oe.Kind)
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestBackoff_CapsAtMaxDelay(t *testing.T) {
	e := NewEngine(always(nil), EngineConfig{MaxAttempts: 8}, nil)

	got := []time.Duration{}
	for n := 1; n <= 6; n++ {
		got = append(got, e.backoff(n))
	}
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second,
	}, got)
}
