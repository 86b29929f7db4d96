package repository

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

const pgSchema = `CREATE TABLE IF NOT EXISTS baseline_snapshots (
	version   BIGINT PRIMARY KEY,
	id        UUID NOT NULL,
	run_id    TEXT NOT NULL DEFAULT '',
	saved_at  TIMESTAMPTZ NOT NULL,
	payload   JSONB NOT NULL
)`

// pgLockKey serializes writers from different processes.
const pgLockKey int64 = 0x70726f6d6f

type PostgresStore struct {
	pool   *pgxpool.Pool
	mu     sync.Mutex
	logger *slog.Logger
}

// NewPostgresStore creates the snapshot table if needed. The store owns pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		logger.Error("failed to create baseline table", "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "create baseline table", errors.Join(common.ErrDatabase, err))
	}
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) Load(ctx context.Context) (entity.Baseline, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM baseline_snapshots ORDER BY version DESC LIMIT 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.EmptyBaseline(), nil
	}
	if err != nil {
		s.logger.Error("failed to load baseline", "error", err)
		return entity.Baseline{}, common.NewAppError("DATABASE_ERROR", "load baseline", errors.Join(common.ErrDatabase, err))
	}
	return decodeBaseline(raw)
}

func (s *PostgresStore) Swap(ctx context.Context, expectedVersion int64, next entity.Baseline) error {
	if err := checkNext(expectedVersion, next); err != nil {
		return err
	}
	raw, err := encodeBaseline(next)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return common.NewAppError("DATABASE_ERROR", "begin baseline swap", errors.Join(common.ErrDatabase, err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, pgLockKey); err != nil {
		return common.NewAppError("DATABASE_ERROR", "lock baseline", errors.Join(common.ErrDatabase, err))
	}
	var current int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM baseline_snapshots`).Scan(&current); err != nil {
		return common.NewAppError("DATABASE_ERROR", "read baseline version", errors.Join(common.ErrDatabase, err))
	}
	if current != expectedVersion {
		return conflictError(expectedVersion, current)
	}

	savedAt := next.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO baseline_snapshots (version, id, run_id, saved_at, payload) VALUES ($1, $2, $3, $4, $5)`,
		next.Version, uuid.NewString(), common.RunIDFromContext(ctx), savedAt, raw)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return conflictError(expectedVersion, next.Version)
		}
		return common.NewAppError("DATABASE_ERROR", "insert baseline", errors.Join(common.ErrDatabase, err))
	}
	if err := tx.Commit(ctx); err != nil {
		return common.NewAppError("DATABASE_ERROR", "commit baseline", errors.Join(common.ErrDatabase, err))
	}
	s.logger.Info("baseline saved", "version", next.Version, "competitors", len(next.Competitors))
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return HealthCheck(ctx, s.pool, 0, s.logger)
}

func (s *PostgresStore) Close() error {
	Close(s.pool, s.logger)
	return nil
}
