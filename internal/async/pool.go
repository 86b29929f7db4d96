// Package async runs bounded, order-preserving fan-out work.
package async

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

type Pool struct {
	name    string
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithTaskTimeout bounds each task; 0 leaves tasks bounded only by the parent context.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(name string, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{name: name, workers: 3, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

// Outcome is one task's result, at the same index as its input.
type Outcome[R any] struct {
	Value R
	Err   error
}

// Run calls fn for every item with at most p.Workers() in flight. A failing
// or panicking task only affects its own Outcome. Items not started before
// ctx is done get ctx.Err().
func Run[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, item T) (R, error)) []Outcome[R] {
	out := make([]Outcome[R], len(items))
	var g errgroup.Group
	g.SetLimit(p.workers)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				out[j].Err = err
			}
			break
		}
		g.Go(func() error {
			out[i] = runOne(ctx, p, i, item, fn)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func runOne[T, R any](ctx context.Context, p *Pool, i int, item T, fn func(context.Context, T) (R, error)) (o Outcome[R]) {
	taskCtx, cancel := common.WithTimeout(ctx, p.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("async.task.panic", "pool", p.name, "index", i, "panic", rec, "stack", string(debug.Stack()))
			o = Outcome[R]{Err: common.NewAppError("PANIC", fmt.Sprintf("%v", rec), common.ErrInternal)}
		}
	}()
	v, err := fn(taskCtx, item)
	return Outcome[R]{Value: v, Err: err}
}
