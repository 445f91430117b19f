package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/errors"
)

func TestReplaceAllStories_RoundTrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	located := testStory("s1", now)
	located.Lat = ptr(-6.2)
	located.Lon = ptr(106.8)
	bare := testStory("s2", now.Add(time.Minute))

	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{located, bare}))

	stories, err := s.GetAllStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 2)

	byID := map[string]domain.StoryRecord{}
	for _, st := range stories {
		byID[st.ID] = st
	}

	assert.True(t, byID["s1"].HasLocation)
	assert.False(t, byID["s2"].HasLocation)
	assert.False(t, byID["s1"].CachedAt.IsZero(), "cachedAt must be set on write")
}

func TestReplaceAllStories_ClearsPreviousSet(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{testStory("old-1", now), testStory("old-2", now)}))
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{testStory("new-1", now)}))

	stories, err := s.GetAllStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, "new-1", stories[0].ID)

	// Index entries for the old set must be gone too.
	ordered, err := s.StoriesByCreated(ctx, SortDesc)
	require.NoError(t, err)
	require.Len(t, ordered, 1)
	assert.Equal(t, "new-1", ordered[0].ID)
}

func TestReplaceAllStories_IgnoresCallerHasLocation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	// HasLocation is derived, so a lying caller is corrected on write.
	lying := testStory("s1", time.Now())
	lying.HasLocation = true

	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{lying}))

	got, err := s.GetStoryByID(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, got.HasLocation)
}

func TestGetStoryByID_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := s.GetStoryByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteStory_Idempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{testStory("s1", time.Now())}))

	require.NoError(t, s.DeleteStory(ctx, "s1"))
	require.NoError(t, s.DeleteStory(ctx, "s1"))

	stories, err := s.GetAllStories(ctx)
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestUpdateStory_MergesFields(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{testStory("s1", time.Now())}))

	name := "Nama Baru"
	updated, err := s.UpdateStory(ctx, "s1", domain.StoryPatch{Name: &name, Lat: ptr(-6.2), Lon: ptr(106.8)})
	require.NoError(t, err)

	assert.Equal(t, "Nama Baru", updated.Name)
	assert.Equal(t, "Sebuah cerita untuk s1", updated.Description, "unpatched fields keep their value")
	assert.True(t, updated.HasLocation)

	// Location index moved from the 0 to the 1 segment.
	located, err := s.StoriesByLocation(ctx, true)
	require.NoError(t, err)
	require.Len(t, located, 1)
	assert.Equal(t, "s1", located[0].ID)

	bare, err := s.StoriesByLocation(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, bare)
}

func TestUpdateStory_NotFound(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	name := "x"
	_, err := s.UpdateStory(context.Background(), "missing", domain.StoryPatch{Name: &name})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStoriesByCreated_Order(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{
		testStory("oldest", base),
		testStory("middle", base.Add(time.Hour)),
		testStory("newest", base.Add(2*time.Hour)),
	}))

	desc, err := s.StoriesByCreated(ctx, SortDesc)
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, "newest", desc[0].ID)
	assert.Equal(t, "oldest", desc[2].ID)

	asc, err := s.StoriesByCreated(ctx, SortAsc)
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, "oldest", asc[0].ID)
	assert.Equal(t, "newest", asc[2].ID)
}

func TestStoriesByLocation(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	located := testStory("with-loc", now)
	located.Lat = ptr(1.1)
	located.Lon = ptr(2.2)

	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{located, testStory("no-loc", now)}))

	with, err := s.StoriesByLocation(ctx, true)
	require.NoError(t, err)
	require.Len(t, with, 1)
	assert.Equal(t, "with-loc", with[0].ID)

	without, err := s.StoriesByLocation(ctx, false)
	require.NoError(t, err)
	require.Len(t, without, 1)
	assert.Equal(t, "no-loc", without[0].ID)
}

func TestReplaceAllStories_RejectsInvalidRecord(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	invalid := domain.StoryRecord{ID: "s1"} // missing description

	err := s.ReplaceAllStories(context.Background(), []domain.StoryRecord{invalid})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
