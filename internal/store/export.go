package store

import (
	"context"
	"iter"

	"encoding/json/v2"

	"github.com/dgraph-io/badger/v4"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
)

// StreamStories returns an iterator over all stories for backup export.
func (s *Store) StreamStories(ctx context.Context) iter.Seq2[*domain.StoryRecord, error] {
	return streamRecords[domain.StoryRecord](s, ctx, storyPrefix)
}

// StreamDrafts returns an iterator over all offline drafts.
func (s *Store) StreamDrafts(ctx context.Context) iter.Seq2[*domain.OfflineDraft, error] {
	return streamRecords[domain.OfflineDraft](s, ctx, draftPrefix)
}

// StreamFavorites returns an iterator over all favorites.
func (s *Store) StreamFavorites(ctx context.Context) iter.Seq2[*domain.FavoriteRecord, error] {
	return streamRecords[domain.FavoriteRecord](s, ctx, favoritePrefix)
}

// streamRecords yields every record under a prefix inside one read
// transaction. The yielded pointers are freshly allocated per record.
func streamRecords[T any](s *Store, ctx context.Context, prefix string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		err := s.view(ctx, func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(prefix), PrefetchValues: true})
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				var record T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &record)
				})
				if err != nil {
					if !yield(nil, err) {
						return nil
					}
					continue
				}
				if !yield(&record, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(nil, err)
		}
	}
}
