package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/promo-tracker/constants"
	"github.com/joseph-ayodele/promo-tracker/internal/common"
	"github.com/joseph-ayodele/promo-tracker/internal/entity"
)

func runResult(competitor, service string) entity.CompetitorRunResult {
	p := entity.TaggedPromotion{
		PromotionCandidate: entity.PromotionCandidate{
			Website: "speedy.com",
			RawText: service + " $20 off",
			Fields:  entity.Fields{ServiceName: service, DiscountValue: "$20 off"},
		},
		NewOrUpdated: constants.StatusNew,
	}
	return entity.NewCompetitorRunResult(competitor, "speedy.com", time.Unix(1700000000, 0).UTC(), []entity.TaggedPromotion{p})
}

func exerciseStore(t *testing.T, store BaselineStore) {
	ctx := context.Background()

	b, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Version)
	assert.Empty(t, b.Competitors)

	first := b.With([]entity.CompetitorRunResult{runResult("Speedy", "oil change"), runResult("Midas", "brakes")}, time.Now())
	require.NoError(t, store.Swap(ctx, b.Version, first))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loaded.Version)
	require.Contains(t, loaded.Competitors, "Speedy")
	assert.Equal(t, "oil change", loaded.Competitors["Speedy"].Promotions[0].ServiceName)

	// a writer still holding version 0 loses
	err = store.Swap(ctx, 0, b.With(nil, time.Now()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrConflict))

	// version must advance by exactly one
	err = store.Swap(ctx, 1, entity.Baseline{Version: 5})
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	second := loaded.With([]entity.CompetitorRunResult{runResult("Speedy", "battery")}, time.Now())
	require.NoError(t, store.Swap(ctx, loaded.Version, second))

	final, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), final.Version)
	assert.Equal(t, "battery", final.Competitors["Speedy"].Promotions[0].ServiceName)
	assert.Equal(t, "brakes", final.Competitors["Midas"].Promotions[0].ServiceName)

	require.NoError(t, store.Ping(ctx))
}

func exerciseConcurrentSwap(t *testing.T, store BaselineStore) {
	ctx := context.Background()
	base, err := store.Load(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Swap(ctx, base.Version, base.With(nil, time.Now()))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, common.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, ok)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
	exerciseConcurrentSwap(t, NewMemoryStore())
}

func TestMemoryStore_LoadedCopyIsIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	next := entity.EmptyBaseline().With([]entity.CompetitorRunResult{runResult("Speedy", "oil change")}, time.Now())
	require.NoError(t, store.Swap(ctx, 0, next))

	a, err := store.Load(ctx)
	require.NoError(t, err)
	a.Competitors["Speedy"].Promotions[0].ServiceName = "mutated"

	b, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "oil change", b.Competitors["Speedy"].Promotions[0].ServiceName)
	assert.Equal(t, 1, store.Saves())
}

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "baseline.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, openTestSQLite(t))
	exerciseConcurrentSwap(t, openTestSQLite(t))
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "baseline.db")

	store, err := OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	next := entity.EmptyBaseline().With([]entity.CompetitorRunResult{runResult("Speedy", "oil change")}, time.Now())
	require.NoError(t, store.Swap(ctx, 0, next))
	require.NoError(t, store.Close())

	store, err = OpenSQLite(ctx, path, nil)
	require.NoError(t, err)
	defer store.Close()
	b, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Version)
	assert.Len(t, b.Competitors, 1)
}

func TestOpenStore_Memory(t *testing.T) {
	store, err := OpenStore(context.Background(), common.StoreConfig{Driver: "memory"}, nil)
	require.NoError(t, err)
	_, ok := store.(*MemoryStore)
	assert.True(t, ok)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), common.StoreConfig{Driver: "mongo", DSN: "x"}, nil)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PROMO_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("PROMO_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := OpenStore(ctx, common.StoreConfig{Driver: "postgres", DSN: dsn}, nil)
	require.NoError(t, err)
	defer store.Close()

	pg := store.(*PostgresStore)
	_, err = pg.pool.Exec(ctx, `TRUNCATE baseline_snapshots`)
	require.NoError(t, err)

	exerciseStore(t, store)
}
