package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

// BaselineStore persists versioned baseline snapshots. Load is called once at
// the start of a run and Swap once at the end.
type BaselineStore interface {
	// Load returns the latest snapshot, or entity.EmptyBaseline when none exists.
	Load(ctx context.Context) (entity.Baseline, error)
	// Swap stores next if the latest stored version is still expectedVersion.
	// next.Version must be expectedVersion+1. A stale expectedVersion fails
	// with an error matching common.ErrConflict.
	Swap(ctx context.Context, expectedVersion int64, next entity.Baseline) error
	Ping(ctx context.Context) error
	Close() error
}

func conflictError(expected, actual int64) error {
	return common.NewAppError("BASELINE_CONFLICT",
		fmt.Sprintf("baseline version is %d, expected %d", actual, expected), common.ErrConflict)
}

func checkNext(expected int64, next entity.Baseline) error {
	if next.Version != expected+1 {
		return common.NewAppError("BASELINE_INVALID",
			fmt.Sprintf("next version %d does not follow %d", next.Version, expected), common.ErrInvalidInput)
	}
	return nil
}

func encodeBaseline(b entity.Baseline) ([]byte, error) {
	if b.Competitors == nil {
		b.Competitors = map[string]entity.CompetitorRunResult{}
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, common.WrapError(err, "encode baseline")
	}
	return raw, nil
}

func decodeBaseline(raw []byte) (entity.Baseline, error) {
	b := entity.EmptyBaseline()
	if err := json.Unmarshal(raw, &b); err != nil {
		return entity.Baseline{}, common.NewAppError("BASELINE_CORRUPT", "decode baseline snapshot", err)
	}
	if b.Competitors == nil {
		b.Competitors = map[string]entity.CompetitorRunResult{}
	}
	return b, nil
}

// OpenStore picks the implementation named by cfg.Driver.
func OpenStore(ctx context.Context, cfg common.StoreConfig, logger *slog.Logger) (BaselineStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Driver {
	case "memory":
		logger.Warn("repository.store.memory", "reason", "baseline is not persisted across processes")
		return NewMemoryStore(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN, logger)
	case "postgres":
		pool, err := Open(ctx, Config{
			DSN:              cfg.DSN,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "open postgres", fmt.Errorf("%w: %v", common.ErrDatabase, err))
		}
		return NewPostgresStore(ctx, pool, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown store driver "+cfg.Driver, common.ErrInvalidInput)
	}
}
