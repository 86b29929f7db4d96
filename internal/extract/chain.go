package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

// Chain tries strategies in priority order and returns the first non-empty text.
// Strategies for a different source kind are skipped.
type Chain struct {
	strategies []Strategy
	logger     *slog.Logger
}

func NewChain(logger *slog.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{strategies: strategies, logger: logger}
}

// Supports reports whether any strategy handles kind.
func (c *Chain) Supports(kind string) bool {
	for _, s := range c.strategies {
		if s.Kind() == kind {
			return true
		}
	}
	return false
}

// Extract returns ErrNoText when nothing yielded text. When a strategy failed
// the error matches ErrFailed and carries a PartialFailure of every strategy error.
func (c *Chain) Extract(ctx context.Context, src Source) (Result, error) {
	start := time.Now()
	failures := &common.PartialFailure{Scope: "extract " + strings.ToLower(src.Kind)}

	for _, s := range c.strategies {
		if s.Kind() != src.Kind {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		name := strategyName(s)
		text, ok, err := s.Extract(ctx, src)
		if err != nil {
			failures.Add(name, err)
			c.logger.Warn("extract.strategy.failed",
				"strategy", name,
				"kind", src.Kind,
				"page_url", src.PageURL,
				"media_url", src.MediaURL,
				"error", err,
			)
			continue
		}
		if ok && strings.TrimSpace(text) != "" {
			return Result{Text: text, Strategy: name, Duration: time.Since(start)}, nil
		}
	}
	if err := failures.Err(); err != nil {
		return Result{}, errors.Join(ErrFailed, err)
	}
	return Result{}, ErrNoText
}

func strategyName(s Strategy) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return strings.ToLower(s.Kind())
}
