package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
)

func TestFavoriteLifecycle(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, s.AddFavorite(ctx, "s1", &domain.FavoriteRecord{
		StoryID: "s1",
		Name:    "budi",
	}))

	fav, err := s.IsFavorite(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, fav)

	require.NoError(t, s.RemoveFavorite(ctx, "s1"))

	fav, err = s.IsFavorite(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, fav)
}

func TestAddFavorite_DuplicateIsIdempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, s.AddFavorite(ctx, "s1", &domain.FavoriteRecord{StoryID: "s1", Name: "lama"}))

	before, err := s.GetAllFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, before, 1)
	firstAddedAt := before[0].AddedAt

	// The storyId is the key: re-adding overwrites display fields, keeps
	// AddedAt, and still leaves exactly one favorite.
	require.NoError(t, s.AddFavorite(ctx, "s1", &domain.FavoriteRecord{StoryID: "s1", Name: "baru"}))

	after, err := s.GetAllFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "baru", after[0].Name)
	assert.WithinDuration(t, firstAddedAt, after[0].AddedAt, time.Millisecond)
}

func TestRemoveFavorite_AbsentSucceeds(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.RemoveFavorite(context.Background(), "never-added"))
}

func TestFavoriteOutlivesStory(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	story := testStory("s1", now)
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{story}))
	require.NoError(t, s.AddFavorite(ctx, "s1", domain.FavoriteFromStory(&story, now)))

	// A refresh that drops the story leaves the bookmark untouched.
	require.NoError(t, s.ReplaceAllStories(ctx, []domain.StoryRecord{testStory("s2", now)}))

	fav, err := s.IsFavorite(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, fav)

	favorites, err := s.GetAllFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, "Penulis s1", favorites[0].Name, "denormalized copy keeps display fields")
}
