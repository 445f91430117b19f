package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
)

// setupTestStore creates a temporary store for testing
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "cerita-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")

	s := New(dbPath, nil)
	require.NoError(t, s.Open(context.Background()))

	cleanup := func() {
		s.Close()
		os.RemoveAll(tmpDir)
	}

	return s, cleanup
}

func ptr(v float64) *float64 { return &v }

func testStory(id string, createdAt time.Time) domain.StoryRecord {
	return domain.StoryRecord{
		ID:          id,
		Name:        "Penulis " + id,
		Description: "Sebuah cerita untuk " + id,
		PhotoURL:    "https://cerita.example/photos/" + id + ".jpg",
		CreatedAt:   createdAt,
	}
}

func TestOpen_Idempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.Open(context.Background()))
	require.NoError(t, s.Open(context.Background()))
}

func TestOpen_CoalescesConcurrentAttempts(t *testing.T) {
	tmpDir := t.TempDir()
	s := New(filepath.Join(tmpDir, "db"), nil)
	defer s.Close()

	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Open(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Schema was migrated exactly once to the current version.
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	version, err := storedSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)
}

func TestReopen_PreservesDataAndVersion(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "db")
	ctx := context.Background()

	s := New(dbPath, nil)
	require.NoError(t, s.Open(ctx))

	now := time.Now().UTC()
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{testStory("s1", now)}))
	require.NoError(t, s.Close())

	reopened := New(dbPath, nil)
	defer reopened.Close()

	stories, err := reopened.GetAllStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "s1", stories[0].ID)
}

func TestWriteAfterClose_ReopensTransparently(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{testStory("s1", time.Now())}))

	// Simulate the handle dying underneath the store.
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	require.NoError(t, db.Close())

	// The next write must reopen rather than surfacing a closed-handle error.
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{testStory("s2", time.Now())}))

	stories, err := s.GetAllStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "s2", stories[0].ID)
}

func TestReadDegradesToEmpty_WhenStorageUnavailable(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "db")

	// Hold the database open so a second store cannot acquire the lock.
	blocker := New(dbPath, nil)
	require.NoError(t, blocker.Open(context.Background()))
	defer blocker.Close()

	s := New(dbPath, nil)
	ctx := context.Background()

	stories, err := s.GetAllStories(ctx)
	require.NoError(t, err)
	assert.Empty(t, stories)

	favs, err := s.GetAllFavorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, favs)

	fav, err := s.IsFavorite(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, fav)

	stats, err := s.ComputeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.StoryStats{}, stats)
}

func TestWritePropagates_WhenStorageUnavailable(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "db")

	blocker := New(dbPath, nil)
	require.NoError(t, blocker.Open(context.Background()))
	defer blocker.Close()

	s := New(dbPath, nil)
	err := s.ReplaceAllStories(context.Background(), []domain.StoryRecord{testStory("s1", time.Now())})
	require.Error(t, err)
}

func TestComputeStats(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	withLoc := testStory("s1", now)
	withLoc.Lat = ptr(-6.2)
	withLoc.Lon = ptr(106.8)
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{withLoc, testStory("s2", now)}))

	_, err := s.AddOfflineDraft(ctx, domain.NewDraft{Description: "draf satu"})
	require.NoError(t, err)
	syncedID, err := s.AddOfflineDraft(ctx, domain.NewDraft{Description: "draf dua"})
	require.NoError(t, err)
	require.NoError(t, s.MarkOfflineDraftSynced(ctx, syncedID))

	require.NoError(t, s.AddFavorite(ctx, "s1", &domain.FavoriteRecord{StoryID: "s1"}))

	stats, err := s.ComputeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalStories)
	assert.Equal(t, 1, stats.WithLocation)
	assert.Equal(t, 1, stats.UnsyncedDrafts)
	assert.Equal(t, 1, stats.Favorites)
}
