package store

import (
	"context"
	stderrors "errors"
	"fmt"

	"encoding/json/v2"

	"github.com/dgraph-io/badger/v4"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/errors"
)

func unmarshalFavorite(val []byte) (*domain.FavoriteRecord, error) {
	var fav domain.FavoriteRecord
	if err := json.Unmarshal(val, &fav); err != nil {
		return nil, fmt.Errorf("unmarshal favorite: %w", err)
	}
	return &fav, nil
}

// AddFavorite bookmarks a story. The storyId is the unique key, so adding an
// already favorited story overwrites the denormalized copy and succeeds:
// duplicate add is idempotent.
func (s *Store) AddFavorite(ctx context.Context, storyID string, record *domain.FavoriteRecord) error {
	fav := *record
	fav.StoryID = storyID
	if fav.AddedAt.IsZero() {
		fav.AddedAt = s.now()
	}
	if err := s.validate.Validate(&fav); err != nil {
		return err
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		key := buildKey(favoritePrefix, storyID)
		defer releaseKey(key)

		// An existing favorite keeps its original AddedAt and index entry.
		item, err := txn.Get(key)
		switch {
		case err == nil:
			verr := item.Value(func(val []byte) error {
				existing, uerr := unmarshalFavorite(val)
				if uerr != nil {
					return uerr
				}
				fav.AddedAt = existing.AddedAt
				return nil
			})
			if verr != nil {
				return verr
			}
		case !stderrors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		data, err := json.Marshal(&fav)
		if err != nil {
			return fmt.Errorf("marshal favorite: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}

		addedKey := formatTimestampIndexKey(favoriteAddedIdxPrefix, fav.AddedAt, storyID)
		return txn.Set(addedKey, []byte(storyID))
	})
}

// RemoveFavorite deletes a bookmark. Removing an absent favorite succeeds.
func (s *Store) RemoveFavorite(ctx context.Context, storyID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		key := buildKey(favoritePrefix, storyID)
		defer releaseKey(key)

		item, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var fav *domain.FavoriteRecord
		if err := item.Value(func(val []byte) error {
			fav, err = unmarshalFavorite(val)
			return err
		}); err != nil {
			return err
		}

		addedKey := formatTimestampIndexKey(favoriteAddedIdxPrefix, fav.AddedAt, storyID)
		if err := txn.Delete(addedKey); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// IsFavorite reports whether a story is bookmarked. Storage unavailability
// degrades to false.
func (s *Store) IsFavorite(ctx context.Context, storyID string) (bool, error) {
	found := false
	err := s.view(ctx, func(txn *badger.Txn) error {
		key := buildKey(favoritePrefix, storyID)
		defer releaseKey(key)

		_, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.ErrStorageUnavailable) {
			return false, nil
		}
		return false, err
	}
	return found, nil
}

// GetAllFavorites returns every bookmark. Degrades to empty when storage is
// unavailable.
func (s *Store) GetAllFavorites(ctx context.Context) ([]domain.FavoriteRecord, error) {
	favorites := []domain.FavoriteRecord{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(favoritePrefix), PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				fav, uerr := unmarshalFavorite(val)
				if uerr != nil {
					return uerr
				}
				favorites = append(favorites, *fav)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.ErrStorageUnavailable) {
			s.logger.Warn("favorites read degraded to empty, storage unavailable", "error", err)
			return []domain.FavoriteRecord{}, nil
		}
		return nil, err
	}

	return favorites, nil
}
