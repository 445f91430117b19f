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

func unmarshalStory(val []byte) (*domain.StoryRecord, error) {
	var record domain.StoryRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("unmarshal story: %w", err)
	}
	return &record, nil
}

// ReplaceAllStories clears the stories collection and writes the given
// records in one atomic transaction: after a successful call exactly the new
// set is visible, after a failed one the old set is undisturbed.
//
// Each record gets its HasLocation derived and a fresh CachedAt before the
// write; the caller's slice is not modified.
func (s *Store) ReplaceAllStories(ctx context.Context, records []domain.StoryRecord) error {
	now := s.now()

	prepared := make([]domain.StoryRecord, len(records))
	for i := range records {
		prepared[i] = records[i]
		prepared[i].DeriveLocation()
		prepared[i].CachedAt = now
		if err := s.validate.Validate(&prepared[i]); err != nil {
			return err
		}
	}

	return s.update(ctx, func(txn *badger.Txn) error {
		for _, prefix := range []string{storyPrefix, storyCreatedIdxPrefix, storyLocationIdxPrefix} {
			if err := deletePrefix(txn, prefix); err != nil {
				return err
			}
		}

		for i := range prepared {
			if err := putStory(txn, &prepared[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// putStory writes a story record and its index entries.
func putStory(txn *badger.Txn, record *domain.StoryRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal story: %w", err)
	}

	key := buildKey(storyPrefix, record.ID)
	defer releaseKey(key)
	if err := txn.Set(key, data); err != nil {
		return err
	}

	createdKey := formatTimestampIndexKey(storyCreatedIdxPrefix, record.CreatedAt, record.ID)
	if err := txn.Set(createdKey, []byte(record.ID)); err != nil {
		return err
	}

	locationKey := storyLocationIdxPrefix + boolIdxSegment(record.HasLocation) + ":" + record.ID
	return txn.Set([]byte(locationKey), []byte(record.ID))
}

// deleteStoryIndexes removes the index entries belonging to a record.
func deleteStoryIndexes(txn *badger.Txn, record *domain.StoryRecord) error {
	createdKey := formatTimestampIndexKey(storyCreatedIdxPrefix, record.CreatedAt, record.ID)
	if err := txn.Delete(createdKey); err != nil {
		return err
	}
	locationKey := storyLocationIdxPrefix + boolIdxSegment(record.HasLocation) + ":" + record.ID
	return txn.Delete([]byte(locationKey))
}

// deletePrefix removes every key under prefix.
func deletePrefix(txn *badger.Txn, prefix string) error {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// GetAllStories returns every cached story. When the database is
// unavailable the result degrades to an empty slice.
func (s *Store) GetAllStories(ctx context.Context) ([]domain.StoryRecord, error) {
	stories := []domain.StoryRecord{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(storyPrefix), PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				record, uerr := unmarshalStory(val)
				if uerr != nil {
					return uerr
				}
				stories = append(stories, *record)
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
			s.logger.Warn("stories read degraded to empty, storage unavailable", "error", err)
			return []domain.StoryRecord{}, nil
		}
		return nil, err
	}

	return stories, nil
}

// GetStoryByID returns the story with the given id, or NotFound.
func (s *Store) GetStoryByID(ctx context.Context, id string) (*domain.StoryRecord, error) {
	var record *domain.StoryRecord

	err := s.view(ctx, func(txn *badger.Txn) error {
		key := buildKey(storyPrefix, id)
		defer releaseKey(key)

		item, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFoundf("story %s not found", id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = unmarshalStory(val)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, errors.ErrStorageUnavailable) {
			return nil, errors.NotFoundf("story %s not found", id)
		}
		return nil, err
	}

	return record, nil
}

// DeleteStory removes a story. Deleting an absent story is a success:
// the desired end state already holds.
func (s *Store) DeleteStory(ctx context.Context, id string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		key := buildKey(storyPrefix, id)
		defer releaseKey(key)

		item, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var record *domain.StoryRecord
		if err := item.Value(func(val []byte) error {
			record, err = unmarshalStory(val)
			return err
		}); err != nil {
			return err
		}

		if err := deleteStoryIndexes(txn, record); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// UpdateStory merges the patch into the stored record. It fails with
// NotFound when the story is absent; this is an update, not an upsert.
func (s *Store) UpdateStory(ctx context.Context, id string, patch domain.StoryPatch) (*domain.StoryRecord, error) {
	if err := s.validate.Validate(&patch); err != nil {
		return nil, err
	}

	var updated *domain.StoryRecord
	err := s.update(ctx, func(txn *badger.Txn) error {
		key := buildKey(storyPrefix, id)
		defer releaseKey(key)

		item, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.NotFoundf("story %s not found", id)
		}
		if err != nil {
			return err
		}

		var record *domain.StoryRecord
		if err := item.Value(func(val []byte) error {
			record, err = unmarshalStory(val)
			return err
		}); err != nil {
			return err
		}

		// Drop old index entries before the merge changes their segments.
		if err := deleteStoryIndexes(txn, record); err != nil {
			return err
		}

		patch.Apply(record)
		record.CachedAt = s.now()
		if err := s.validate.Validate(record); err != nil {
			return err
		}

		if err := putStory(txn, record); err != nil {
			return err
		}
		updated = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SortOrder selects ascending or descending iteration.
type SortOrder string

// Sort orders.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// StoriesByCreated returns stories ordered by CreatedAt using the timestamp
// index. Degrades to empty when storage is unavailable.
func (s *Store) StoriesByCreated(ctx context.Context, order SortOrder) ([]domain.StoryRecord, error) {
	ids := []string{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.IteratorOptions{Prefix: []byte(storyCreatedIdxPrefix)}
		opts.Reverse = order == SortDesc
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := []byte(storyCreatedIdxPrefix)
		if opts.Reverse {
			// Seek past the last key in the prefix range for reverse iteration.
			seek = append([]byte(storyCreatedIdxPrefix), 0xff)
		}
		for it.Seek(seek); it.Valid(); it.Next() {
			id, perr := parseTimestampIndexKey(it.Item().Key(), storyCreatedIdxPrefix)
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
	for _, id := range ids {
		record, err := s.GetStoryByID(ctx, id)
		if errors.Is(err, errors.ErrNotFound) {
			continue // index raced a delete
		}
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// StoriesByLocation returns stories filtered by location presence using the
// has_location index. Degrades to empty when storage is unavailable.
func (s *Store) StoriesByLocation(ctx context.Context, hasLocation bool) ([]domain.StoryRecord, error) {
	prefix := storyLocationIdxPrefix + boolIdxSegment(hasLocation) + ":"
	ids := []string{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
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
	for _, id := range ids {
		record, err := s.GetStoryByID(ctx, id)
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
