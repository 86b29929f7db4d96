package ocr

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Backend performs a single recognition call. Errors should be wrapped with
// Transient or Invalid so the engine can apply its retry policy.
type Backend interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

type EngineConfig struct {
	MaxAttempts  int           // default 3
	InitialDelay time.Duration // default 1s
	MaxDelay     time.Duration // default 10s
	CallTimeout  time.Duration // per attempt; 0 = none
}

// Result is a successful recognition plus every attempt it took.
type Result struct {
	Text       string
	Backend    string
	Attempts   []Attempt
	Confidence float32
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Engine struct {
	backend Backend
	cfg     EngineConfig
	sleep   SleepFunc
	logger  *slog.Logger
}

type Option func(*Engine)

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(e *Engine) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

func NewEngine(backend Backend, cfg EngineConfig, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	e := &Engine{backend: backend, cfg: cfg, sleep: sleepCtx, logger: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Name() string { return e.backend.Name() }

// Recognize runs the backend with retry and exponential backoff. Failures are
// always *Error with Kind TRANSIENT (parent context done), INVALID_INPUT or EXHAUSTED.
func (e *Engine) Recognize(ctx context.Context, image []byte) (Result, error) {
	name := e.backend.Name()
	if len(image) == 0 {
		err := Invalid(errors.New("empty image"))
		return Result{}, &Error{Kind: KindInvalidInput, Backend: name, Attempts: []Attempt{{Number: 1, Kind: KindInvalidInput, Err: err}}, Err: err}
	}

	var attempts []Attempt
	var lastErr error
	for n := 1; n <= e.cfg.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return Result{}, &Error{Kind: KindTransient, Backend: name, Attempts: attempts, Err: Transient(err)}
		}

		callCtx, cancel := e.callContext(ctx)
		start := time.Now()
		text, err := e.backend.Recognize(callCtx, image)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()
		dur := time.Since(start)

		if err == nil {
			attempts = append(attempts, Attempt{Number: n, Duration: dur})
			text = Normalize(text)
			return Result{Text: text, Backend: name, Attempts: attempts, Confidence: heuristicConfidence(text)}, nil
		}

		kind := classify(err)
		if timedOut && ctx.Err() == nil {
			kind = KindTransient
			err = Transient(err)
		}
		attempts = append(attempts, Attempt{Number: n, Kind: kind, Err: err, Duration: dur})
		lastErr = err
		e.logger.Debug("ocr.recognize.attempt_failed",
			"backend", name, "attempt", n, "kind", kind, "error", err, "elapsed_ms", dur.Milliseconds())

		if kind == KindInvalidInput {
			return Result{}, &Error{Kind: KindInvalidInput, Backend: name, Attempts: attempts, Err: err}
		}
		if n == e.cfg.MaxAttempts {
			break
		}
		if err := e.sleep(ctx, e.backoff(n)); err != nil {
			return Result{}, &Error{Kind: KindTransient, Backend: name, Attempts: attempts, Err: Transient(err)}
		}
	}
	return Result{}, &Error{Kind: KindExhausted, Backend: name, Attempts: attempts, Err: lastErr}
}

// backoff is the wait after the n-th failed attempt: initial * 2^(n-1), capped.
func (e *Engine) backoff(n int) time.Duration {
	d := e.cfg.InitialDelay
	for i := 1; i < n; i++ {
		d *= 2
		if d >= e.cfg.MaxDelay {
			return e.cfg.MaxDelay
		}
	}
	if d > e.cfg.MaxDelay {
		return e.cfg.MaxDelay
	}
	return d
}

func (e *Engine) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.cfg.CallTimeout)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
