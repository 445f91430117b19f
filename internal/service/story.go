// Package service provides the business logic layer: refreshing the local
// story cache from the API, answering queries over it, and reconciling
// offline drafts.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
	"github.com/ceritasekitarmu/cerita-server/internal/remote"
	"github.com/ceritasekitarmu/cerita-server/internal/search"
	"github.com/ceritasekitarmu/cerita-server/internal/store"
)

// StoryLister is the part of the API client the story service needs.
type StoryLister interface {
	FetchStories(ctx context.Context, opts remote.FetchOptions) ([]domain.StoryRecord, error)
}

// StoryService orchestrates reads over the local story cache.
type StoryService struct {
	store  *store.Store
	remote StoryLister
	logger *slog.Logger
}

// NewStoryService creates a new story service.
func NewStoryService(st *store.Store, rem StoryLister, logger *slog.Logger) *StoryService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StoryService{store: st, remote: rem, logger: logger}
}

// RefreshResult is what a refresh produced and where it came from.
type RefreshResult struct {
	Stories   []domain.StoryRecord `json:"stories"`
	FromCache bool                 `json:"fromCache"`
}

// Refresh pulls the latest stories from the API and replaces the local
// cache. When the network is down it falls back to cached data and flags the
// result, it never surfaces the outage as an error.
func (s *StoryService) Refresh(ctx context.Context) (*RefreshResult, error) {
	fetched, err := s.remote.FetchStories(ctx, remote.FetchOptions{WithLocation: true})
	if err != nil {
		if !domainerrors.Is(err, domainerrors.ErrNetworkUnreachable) {
			return nil, fmt.Errorf("fetch stories: %w", err)
		}

		s.logger.Warn("story API unreachable, serving cached stories", "error", err)
		cached, cacheErr := s.store.StoriesByCreated(ctx, store.SortDesc)
		if cacheErr != nil {
			return nil, fmt.Errorf("load cached stories: %w", cacheErr)
		}
		return &RefreshResult{Stories: cached, FromCache: true}, nil
	}

	if err := s.store.ReplaceAllStories(ctx, fetched); err != nil {
		return nil, fmt.Errorf("replace cached stories: %w", err)
	}

	stories, err := s.store.StoriesByCreated(ctx, store.SortDesc)
	if err != nil {
		return nil, fmt.Errorf("load refreshed stories: %w", err)
	}

	s.logger.Info("story cache refreshed", "count", len(stories))
	return &RefreshResult{Stories: stories}, nil
}

// QueryParams selects and orders a view over the cached stories.
type QueryParams struct {
	// Query is free text, ranked by relevance when non-blank.
	Query string
	// HasLocation filters by coordinate presence when set.
	HasLocation *bool
	// Sort orders by creation time. Ignored when Query is non-blank, where
	// relevance wins. Defaults to newest first.
	Sort store.SortOrder
	// FavoritesOnly keeps favorited stories only.
	FavoritesOnly bool
}

// StoryView is one story prepared for rendering: the record, its favorite
// flag, and the extracted display title.
type StoryView struct {
	Story    domain.StoryRecord `json:"story"`
	Favorite bool               `json:"favorite"`
	Display  domain.DisplayInfo `json:"display"`
}

// Query builds a transient view over the cached stories: search, filter,
// order, favorite join. The view is derived per call and never stored.
func (s *StoryService) Query(ctx context.Context, params QueryParams) ([]StoryView, error) {
	var (
		corpus []domain.StoryRecord
		err    error
	)
	if params.Query != "" {
		corpus, err = s.store.GetAllStories(ctx)
		if err == nil {
			corpus = search.Search(params.Query, corpus)
		}
	} else {
		order := params.Sort
		if order == "" {
			order = store.SortDesc
		}
		corpus, err = s.store.StoriesByCreated(ctx, order)
	}
	if err != nil {
		return nil, fmt.Errorf("load stories: %w", err)
	}

	favorites, err := s.favoriteSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("load favorites: %w", err)
	}

	views := make([]StoryView, 0, len(corpus))
	for i := range corpus {
		record := corpus[i]
		if params.HasLocation != nil && record.HasLocation != *params.HasLocation {
			continue
		}
		favorite := favorites[record.ID]
		if params.FavoritesOnly && !favorite {
			continue
		}
		views = append(views, StoryView{
			Story:    record,
			Favorite: favorite,
			Display:  domain.ExtractDisplayInfo(&record),
		})
	}
	return views, nil
}

// Get returns a single cached story as a view.
func (s *StoryService) Get(ctx context.Context, id string) (*StoryView, error) {
	record, err := s.store.GetStoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	favorite, err := s.store.IsFavorite(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check favorite: %w", err)
	}
	return &StoryView{
		Story:    *record,
		Favorite: favorite,
		Display:  domain.ExtractDisplayInfo(record),
	}, nil
}

// ToggleFavorite flips the favorite state of a cached story and reports the
// new state.
func (s *StoryService) ToggleFavorite(ctx context.Context, storyID string) (bool, error) {
	favorite, err := s.store.IsFavorite(ctx, storyID)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}

	if favorite {
		if err := s.store.RemoveFavorite(ctx, storyID); err != nil {
			return false, fmt.Errorf("remove favorite: %w", err)
		}
		return false, nil
	}

	record, err := s.store.GetStoryByID(ctx, storyID)
	if err != nil {
		return false, err
	}
	fav := domain.FavoriteFromStory(record, time.Now().UTC())
	if err := s.store.AddFavorite(ctx, storyID, fav); err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	return true, nil
}

// Stats summarizes the local collections.
func (s *StoryService) Stats(ctx context.Context) (*domain.StoryStats, error) {
	return s.store.ComputeStats(ctx)
}

func (s *StoryService) favoriteSet(ctx context.Context) (map[string]bool, error) {
	favorites, err := s.store.GetAllFavorites(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(favorites))
	for i := range favorites {
		set[favorites[i].StoryID] = true
	}
	return set, nil
}
