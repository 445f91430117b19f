package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"encoding/json/v2"

	"github.com/dgraph-io/badger/v4"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/errors"
)

func unmarshalDraft(val []byte) (*domain.OfflineDraft, error) {
	var draft domain.OfflineDraft
	if err := json.Unmarshal(val, &draft); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &draft, nil
}

// AddOfflineDraft stores a story authored while disconnected and returns its
// locally assigned id. Ids come from the creation timestamp in milliseconds
// and are bumped when two drafts land in the same millisecond, so they stay
// strictly monotonic per store instance.
func (s *Store) AddOfflineDraft(ctx context.Context, payload domain.NewDraft) (int64, error) {
	if err := s.validate.Validate(&payload); err != nil {
		return 0, err
	}

	now := s.now()

	s.mu.Lock()
	draftID := now.UnixMilli()
	if draftID <= s.lastDraftID {
		draftID = s.lastDraftID + 1
	}
	s.lastDraftID = draftID
	s.mu.Unlock()

	draft := domain.OfflineDraft{
		ID:          draftID,
		Name:        payload.Name,
		Description: payload.Description,
		PhotoURL:    payload.PhotoURL,
		Photo:       payload.Photo,
		PhotoName:   payload.PhotoName,
		Lat:         payload.Lat,
		Lon:         payload.Lon,
		CreatedAt:   now,
		Synced:      false,
	}

	err := s.update(ctx, func(txn *badger.Txn) error {
		data, err := json.Marshal(&draft)
		if err != nil {
			return fmt.Errorf("marshal draft: %w", err)
		}
		if err := txn.Set(draftKey(draft.ID), data); err != nil {
			return err
		}
		return txn.Set(draftSyncedIdxKey(draft.ID, false), nil)
	})
	if err != nil {
		return 0, err
	}
	return draftID, nil
}

func draftSyncedIdxKey(id int64, synced bool) []byte {
	return fmt.Appendf(nil, "%s%s:%020d", draftSyncedIdxPrefix, boolIdxSegment(synced), id)
}

// GetOfflineDrafts returns all drafts in creation order. Degrades to empty
// when storage is unavailable.
func (s *Store) GetOfflineDrafts(ctx context.Context) ([]domain.OfflineDraft, error) {
	drafts := []domain.OfflineDraft{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(draftPrefix), PrefetchValues: true})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				draft, uerr := unmarshalDraft(val)
				if uerr != nil {
					return uerr
				}
				drafts = append(drafts, *draft)
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
			s.logger.Warn("drafts read degraded to empty, storage unavailable", "error", err)
			return []domain.OfflineDraft{}, nil
		}
		return nil, err
	}

	return drafts, nil
}

// GetUnsyncedDrafts returns drafts still waiting for remote acceptance,
// in creation order, via the synced index.
func (s *Store) GetUnsyncedDrafts(ctx context.Context) ([]domain.OfflineDraft, error) {
	drafts := []domain.OfflineDraft{}

	err := s.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(draftSyncedIdxPrefix + boolIdxSegment(false) + ":")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		// Index keys zero-pad the draft id, so prefix order is creation order.
		for it.Rewind(); it.Valid(); it.Next() {
			id, err := strconv.ParseInt(string(it.Item().Key()[len(prefix):]), 10, 64)
			if err != nil {
				return fmt.Errorf("malformed draft index key %q: %w", it.Item().Key(), err)
			}

			item, err := txn.Get(draftKey(id))
			if stderrors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := item.Value(func(val []byte) error {
				draft, uerr := unmarshalDraft(val)
				if uerr != nil {
					return uerr
				}
				drafts = append(drafts, *draft)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errors.ErrStorageUnavailable) {
			s.logger.Warn("drafts read degraded to empty, storage unavailable", "error", err)
			return []domain.OfflineDraft{}, nil
		}
		return nil, err
	}

	return drafts, nil
}

// DeleteOfflineDraft removes a draft. Absent drafts delete successfully.
func (s *Store) DeleteOfflineDraft(ctx context.Context, id int64) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		key := draftKey(id)

		item, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var draft *domain.OfflineDraft
		if err := item.Value(func(val []byte) error {
			draft, err = unmarshalDraft(val)
			return err
		}); err != nil {
			return err
		}

		if err := txn.Delete(draftSyncedIdxKey(id, draft.Synced)); err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// MarkOfflineDraftSynced flips a draft to synced. Marking an absent draft is
// a no-op success: synced is a terminal state and the draft may already have
// been cleaned up. Marking twice leaves the same final state.
func (s *Store) MarkOfflineDraftSynced(ctx context.Context, id int64) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		key := draftKey(id)

		item, err := txn.Get(key)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var draft *domain.OfflineDraft
		if err := item.Value(func(val []byte) error {
			draft, err = unmarshalDraft(val)
			return err
		}); err != nil {
			return err
		}

		if draft.Synced {
			return nil
		}

		draft.Synced = true
		data, err := json.Marshal(draft)
		if err != nil {
			return fmt.Errorf("marshal draft: %w", err)
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Delete(draftSyncedIdxKey(id, false)); err != nil {
			return err
		}
		return txn.Set(draftSyncedIdxKey(id, true), nil)
	})
}
