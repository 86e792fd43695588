package database_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"airease-backend/pkg/database"
	"airease-backend/pkg/database/dbtest"
	"airease-backend/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories returns every store implementation reachable in this environment.
func storeFactories(t *testing.T) map[string]func(t *testing.T) database.WatchStore {
	t.Helper()

	factories := map[string]func(t *testing.T) database.WatchStore{
		"sqlite": func(t *testing.T) database.WatchStore { return dbtest.NewTestStore(t) },
		"sqlite-file": func(t *testing.T) database.WatchStore {
			s, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "airease.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		"local": func(t *testing.T) database.WatchStore {
			s, err := database.NewLocalStore(t.TempDir())
			require.NoError(t, err)
			return s
		},
	}

	if url := os.Getenv("AIREASE_TEST_MONGO_URL"); url != "" {
		factories["mongo"] = func(t *testing.T) database.WatchStore {
			dbName := "airease_test_" + uuid.NewString()[:8]
			s, err := database.OpenMongo(context.Background(), url, dbName)
			require.NoError(t, err)
			t.Cleanup(func() {
				_ = s.Drop(context.Background())
				s.Close()
			})
			return s
		}
	}

	if dsn := os.Getenv("AIREASE_TEST_POSTGRES_DSN"); dsn != "" {
		factories["postgres"] = func(t *testing.T) database.WatchStore {
			s, err := database.OpenPostgres(context.Background(), dsn)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			// Start from an empty table.
			list, err := s.List(context.Background())
			require.NoError(t, err)
			for _, w := range list {
				require.NoError(t, s.Delete(context.Background(), w.ID))
			}
			return s
		}
	}

	return factories
}

func newWatch(from, to string, created time.Time) *models.Watch {
	return &models.Watch{
		From:        from,
		To:          to,
		DepartDate:  "2026-12-15",
		TargetPrice: 500,
		Email:       "traveler@example.com",
		Active:      true,
		CreatedAt:   created,
	}
}

func TestWatchStores(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("InsertAndGet", func(t *testing.T) { testInsertAndGet(t, factory(t)) })
			t.Run("ListOrder", func(t *testing.T) { testListOrder(t, factory(t)) })
			t.Run("RecordCheck", func(t *testing.T) { testRecordCheck(t, factory(t)) })
			t.Run("RecordMatch", func(t *testing.T) { testRecordMatch(t, factory(t)) })
			t.Run("RecordNoMatch", func(t *testing.T) { testRecordNoMatch(t, factory(t)) })
			t.Run("DispatchFailures", func(t *testing.T) { testDispatchFailures(t, factory(t)) })
			t.Run("SetActiveAndDelete", func(t *testing.T) { testSetActiveAndDelete(t, factory(t)) })
			t.Run("NotFound", func(t *testing.T) { testNotFound(t, factory(t)) })
			t.Run("ConcurrentMatches", func(t *testing.T) { testConcurrentMatches(t, factory(t)) })
		})
	}
}

func testInsertAndGet(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(ctx, w))
	require.NotEmpty(t, w.ID)
	require.False(t, w.CreatedAt.IsZero())

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "AMM", got.From)
	assert.Equal(t, "LHR", got.To)
	assert.Equal(t, "2026-12-15", got.DepartDate)
	assert.Equal(t, 500.0, got.TargetPrice)
	assert.True(t, got.Active)
	assert.Nil(t, got.LastCheck)
	assert.Nil(t, got.LastMatch)
	assert.Nil(t, got.MatchedPrice)
	assert.Zero(t, got.NotificationCount)
	assert.WithinDuration(t, w.CreatedAt, got.CreatedAt, time.Millisecond)
}

func testListOrder(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	first := newWatch("AMM", "LHR", base)
	second := newWatch("JFK", "CDG", base.Add(time.Minute))
	third := newWatch("DXB", "LHR", base.Add(2*time.Minute))
	third.Active = false

	// Insert out of order; store order follows createdAt.
	require.NoError(t, s.Insert(ctx, second))
	require.NoError(t, s.Insert(ctx, third))
	require.NoError(t, s.Insert(ctx, first))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, ids(all))

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, ids(active))
}

func testRecordCheck(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(ctx, w))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordCheck(ctx, w.ID, at))

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastCheck)
	assert.True(t, at.Equal(*got.LastCheck))
	assert.Nil(t, got.LastMatch)
	assert.Zero(t, got.NotificationCount)
}

func TestLocalStoreServerlessDataDir(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	t.Setenv("VERCEL_ENV", "preview")

	s, err := database.NewLocalStore("./data")
	require.NoError(t, err)

	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(context.Background(), w))

	_, err = os.Stat(filepath.Join(tmp, "airease-data", "watch_"+w.ID+".json"))
	assert.NoError(t, err)
}

func testRecordNoMatch(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(ctx, w))

	matched := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordMatch(ctx, w.ID, 300, matched))

	at := matched.Add(6 * time.Hour)
	require.NoError(t, s.RecordNoMatch(ctx, w.ID, at))

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MatchedPrice)
	require.NotNil(t, got.LastCheck)
	assert.True(t, at.Equal(*got.LastCheck))
	require.NotNil(t, got.LastMatch)
	assert.True(t, matched.Equal(*got.LastMatch))
	assert.Equal(t, 1, got.NotificationCount)
}

func testRecordMatch(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(ctx, w))

	_, err := s.RecordDispatchFailure(ctx, w.ID, 5)
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(t, s.RecordMatch(ctx, w.ID, 445, at))
	require.NoError(t, s.RecordMatch(ctx, w.ID, 430, at.Add(time.Hour)))

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NotificationCount)
	require.NotNil(t, got.MatchedPrice)
	assert.Equal(t, 430, *got.MatchedPrice)
	require.NotNil(t, got.LastMatch)
	assert.True(t, at.Add(time.Hour).Equal(*got.LastMatch))
	require.NotNil(t, got.LastNotification)
	require.NotNil(t, got.LastCheck)
	assert.True(t, got.LastMatch.Equal(*got.LastCheck))
	assert.Zero(t, got.DispatchFailures)
}

func testDispatchFailures(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(ctx, w))

	for i := 1; i < 3; i++ {
		deactivated, err := s.RecordDispatchFailure(ctx, w.ID, 3)
		require.NoError(t, err)
		assert.False(t, deactivated, "attempt %d", i)
	}

	deactivated, err := s.RecordDispatchFailure(ctx, w.ID, 3)
	require.NoError(t, err)
	assert.True(t, deactivated)

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 3, got.DispatchFailures)
	assert.Nil(t, got.LastCheck, "failed dispatch leaves check fields untouched")
	assert.Zero(t, got.NotificationCount)
}

func testSetActiveAndDelete(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(ctx, w))

	require.NoError(t, s.SetActive(ctx, w.ID, false))
	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, s.SetActive(ctx, w.ID, true))
	active, err = s.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, s.Delete(ctx, w.ID))
	_, err = s.Get(ctx, w.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testNotFound(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	missing := uuid.NewString()

	_, err := s.Get(ctx, missing)
	assert.ErrorIs(t, err, database.ErrNotFound)
	assert.ErrorIs(t, s.RecordCheck(ctx, missing, time.Now()), database.ErrNotFound)
	assert.ErrorIs(t, s.RecordNoMatch(ctx, missing, time.Now()), database.ErrNotFound)
	assert.ErrorIs(t, s.RecordMatch(ctx, missing, 100, time.Now()), database.ErrNotFound)
	assert.ErrorIs(t, s.SetActive(ctx, missing, false), database.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, missing), database.ErrNotFound)
	_, err = s.RecordDispatchFailure(ctx, missing, 3)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func testConcurrentMatches(t *testing.T, s database.WatchStore) {
	ctx := context.Background()
	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(ctx, w))

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.RecordMatch(ctx, w.ID, 400+i, time.Now()))
		}(i)
	}
	wg.Wait()

	got, err := s.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.NotificationCount, "every increment is kept")
}

func ids(ws []models.Watch) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.ID
	}
	return out
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "airease.db")

	s, err := database.OpenSQLite(ctx, path)
	require.NoError(t, err)
	w := newWatch("AMM", "LHR", time.Time{})
	require.NoError(t, s.Insert(ctx, w))
	require.NoError(t, s.Close())

	reopened, err := database.OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	version, err := reopened.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	got, err := reopened.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := database.Open(context.Background(), database.StoreConfig{Driver: "redis"})
	assert.Error(t, err)
}
