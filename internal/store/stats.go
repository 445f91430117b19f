package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/errors"
)

// ComputeStats aggregates counts across the three collections. It is a
// read-only derived view; unavailability degrades to all-zero counts.
func (s *Store) ComputeStats(ctx context.Context) (*domain.StoryStats, error) {
	stats := &domain.StoryStats{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		stats.TotalStories = countPrefix(txn, storyPrefix)
		stats.WithLocation = countPrefix(txn, storyLocationIdxPrefix+"1:")
		stats.UnsyncedDrafts = countPrefix(txn, draftSyncedIdxPrefix+"0:")
		stats.Favorites = countPrefix(txn, favoritePrefix)
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.ErrStorageUnavailable) {
			return &domain.StoryStats{}, nil
		}
		return nil, err
	}

	return stats, nil
}

// countPrefix counts keys under a prefix without reading values.
func countPrefix(txn *badger.Txn, prefix string) int {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix)})
	defer it.Close()

	count := 0
	for it.Rewind(); it.Valid(); it.Next() {
		count++
	}
	return count
}
