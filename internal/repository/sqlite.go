package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS baseline_snapshots (
	version   INTEGER PRIMARY KEY,
	id        TEXT NOT NULL,
	run_id    TEXT NOT NULL DEFAULT '',
	saved_at  TEXT NOT NULL,
	payload   TEXT NOT NULL
)`

// SQLiteStore keeps snapshots in a local database file.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "create store directory", errors.Join(common.ErrDatabase, err))
		}
	}

	logger.Info("opening sqlite baseline store", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "open sqlite", errors.Join(common.ErrDatabase, err))
	}
	// one writer connection; sqlite serializes writes anyway
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{`PRAGMA busy_timeout = 5000`, `PRAGMA journal_mode = WAL`, sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			logger.Error("failed to prepare sqlite store", "error", err)
			return nil, common.NewAppError("DATABASE_ERROR", "prepare sqlite", errors.Join(common.ErrDatabase, err))
		}
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (entity.Baseline, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM baseline_snapshots ORDER BY version DESC LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.EmptyBaseline(), nil
	}
	if err != nil {
		s.logger.Error("failed to load baseline", "error", err)
		return entity.Baseline{}, common.NewAppError("DATABASE_ERROR", "load baseline", errors.Join(common.ErrDatabase, err))
	}
	return decodeBaseline([]byte(raw))
}

func (s *SQLiteStore) Swap(ctx context.Context, expectedVersion int64, next entity.Baseline) error {
	if err := checkNext(expectedVersion, next); err != nil {
		return err
	}
	raw, err := encodeBaseline(next)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DATABASE_ERROR", "begin baseline swap", errors.Join(common.ErrDatabase, err))
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM baseline_snapshots`).Scan(&current); err != nil {
		return common.NewAppError("DATABASE_ERROR", "read baseline version", errors.Join(common.ErrDatabase, err))
	}
	if current != expectedVersion {
		return conflictError(expectedVersion, current)
	}

	savedAt := next.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO baseline_snapshots (version, id, run_id, saved_at, payload) VALUES (?, ?, ?, ?, ?)`,
		next.Version, uuid.NewString(), common.RunIDFromContext(ctx), savedAt.UTC().Format(time.RFC3339Nano), string(raw))
	if err != nil {
		return common.NewAppError("DATABASE_ERROR", "insert baseline", errors.Join(common.ErrDatabase, err))
	}
	if err := tx.Commit(); err != nil {
		return common.NewAppError("DATABASE_ERROR", "commit baseline", errors.Join(common.ErrDatabase, err))
	}
	s.logger.Info("baseline saved", "version", next.Version, "competitors", len(next.Competitors))
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
