package store

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/errors"
	"github.com/ceritasekitarmu/cerita-server/internal/normalize"
)

// FilterParams narrows a story listing. Zero-valued fields do not filter.
type FilterParams struct {
	// HasLocation keeps stories with (true) or without (false) coordinates.
	HasLocation *bool
	// From and Until bound CreatedAt, inclusive. A zero time is unbounded.
	From  time.Time
	Until time.Time
	// FavoritesOnly keeps bookmarked stories.
	FavoritesOnly bool
}

// FilterStories returns the stories matching every set filter, newest first.
// Date bounds are served by the createdAt index, location by the
// has_location index. Degrades to empty when storage is unavailable.
func (s *Store) FilterStories(ctx context.Context, params FilterParams) ([]domain.StoryRecord, error) {
	var (
		records []domain.StoryRecord
		err     error
	)
	if !params.From.IsZero() || !params.Until.IsZero() {
		records, err = s.storiesInRange(ctx, params.From, params.Until)
	} else {
		records, err = s.StoriesByCreated(ctx, SortDesc)
	}
	if err != nil {
		return nil, err
	}

	if params.HasLocation != nil {
		kept := records[:0]
		for _, record := range records {
			if record.HasLocation == *params.HasLocation {
				kept = append(kept, record)
			}
		}
		records = kept
	}

	if params.FavoritesOnly {
		favorites, err := s.GetAllFavorites(ctx)
		if err != nil {
			return nil, err
		}
		favored := make(map[string]struct{}, len(favorites))
		for _, fav := range favorites {
			favored[fav.StoryID] = struct{}{}
		}

		kept := records[:0]
		for _, record := range records {
			if _, ok := favored[record.ID]; ok {
				kept = append(kept, record)
			}
		}
		records = kept
	}

	return records, nil
}

// storiesInRange scans the createdAt index between the two bounds and
// returns matches newest first.
func (s *Store) storiesInRange(ctx context.Context, from, until time.Time) ([]domain.StoryRecord, error) {
	ids := []string{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(storyCreatedIdxPrefix)})
		defer it.Close()

		var lowKey []byte
		if from.IsZero() {
			lowKey = []byte(storyCreatedIdxPrefix)
		} else {
			lowKey = formatTimestampIndexKey(storyCreatedIdxPrefix, from, "")
		}
		var highKey []byte
		if !until.IsZero() {
			// The trailing 0xff keeps ids at the exact bound inside the range.
			highKey = append(formatTimestampIndexKey(storyCreatedIdxPrefix, until, ""), 0xff)
		}

		for it.Seek(lowKey); it.Valid(); it.Next() {
			key := it.Item().Key()
			if highKey != nil && bytes.Compare(key, highKey) > 0 {
				break
			}
			id, perr := parseTimestampIndexKey(key, storyCreatedIdxPrefix)
			if perr != nil {
				return perr
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.ErrStorageUnavailable) {
			return []domain.StoryRecord{}, nil
		}
		return nil, err
	}

	records := make([]domain.StoryRecord, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		record, err := s.GetStoryByID(ctx, ids[i])
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// SortField selects what SortStories orders by.
type SortField string

// Sort fields.
const (
	SortByCreated SortField = "createdAt"
	SortByName    SortField = "name"
)

// SortStories returns every story ordered by the given field. CreatedAt is
// served by the index; name sorts folded text in memory.
func (s *Store) SortStories(ctx context.Context, field SortField, order SortOrder) ([]domain.StoryRecord, error) {
	switch field {
	case SortByName:
		records, err := s.GetAllStories(ctx)
		if err != nil {
			return nil, err
		}
		slices.SortStableFunc(records, func(a, b domain.StoryRecord) int {
			cmp := strings.Compare(normalize.Fold(a.Name), normalize.Fold(b.Name))
			if order == SortDesc {
				return -cmp
			}
			return cmp
		})
		return records, nil
	case SortByCreated, "":
		return s.StoriesByCreated(ctx, order)
	default:
		return nil, errors.Validationf("unknown sort field %q", field)
	}
}
