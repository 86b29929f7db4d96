package main

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedule_ClosedChangesOnlyTicks(t *testing.T) {
	changes := make(chan struct{})
	close(changes)

	var runs atomic.Int32
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	schedule(ctx, time.Hour, changes, func() { runs.Add(1) }, slog.Default())
	assert.Equal(t, int32(0), runs.Load())
}

func TestSchedule_RunsOnChangeAndTick(t *testing.T) {
	changes := make(chan struct{}, 1)
	changes <- struct{}{}

	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		schedule(ctx, 20*time.Millisecond, changes, func() { runs.Add(1) }, slog.Default())
		close(done)
	}()

	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("schedule did not return after cancel")
	}
}

func TestSchedule_NilChanges(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	schedule(ctx, time.Hour, nil, func() { runs.Add(1) }, slog.Default())
	assert.Equal(t, int32(0), runs.Load())
}
