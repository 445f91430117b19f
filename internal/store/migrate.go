package store

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

// schemaVersion is the version this build migrates to. Migrations are
// additive only: they create collection manifests and backfill index
// entries, never touching existing records destructively.
const schemaVersion = 2

type migration struct {
	version int
	name    string
	apply   func(txn *badger.Txn) error
}

var migrations = []migration{
	{
		version: 1,
		name:    "stories and offline drafts",
		apply: func(txn *badger.Txn) error {
			if err := ensureCollection(txn, "stories"); err != nil {
				return err
			}
			return ensureCollection(txn, "offline_drafts")
		},
	},
	{
		version: 2,
		name:    "favorites and location index",
		apply: func(txn *badger.Txn) error {
			if err := ensureCollection(txn, "favorites"); err != nil {
				return err
			}
			return backfillLocationIndex(txn)
		},
	},
}

// migrate applies pending migrations in strict ascending order from the
// stored version to schemaVersion. Each migration commits together with its
// version bump, so a crash never leaves a half-applied step recorded.
func (s *Store) migrate(db *badger.DB) error {
	current, err := storedSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := db.Update(func(txn *badger.Txn) error {
			if err := m.apply(txn); err != nil {
				return err
			}
			return txn.Set([]byte(schemaVersionKey), []byte(strconv.Itoa(m.version)))
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		s.logger.Info("applied schema migration", "version", m.version, "name", m.name)
	}

	return nil
}

// storedSchemaVersion reads the persisted schema version, 0 for a fresh database.
func storedSchemaVersion(db *badger.DB) (int, error) {
	version := 0
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(schemaVersionKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, parseErr := strconv.Atoi(string(val))
			if parseErr != nil {
				return fmt.Errorf("malformed schema version %q: %w", val, parseErr)
			}
			version = v
			return nil
		})
	})
	return version, err
}

// ensureCollection records a collection manifest if absent. Creating an
// already present collection is a no-op, keeping migrations additive.
func ensureCollection(txn *badger.Txn, name string) error {
	key := []byte(collectionPrefix + name)
	_, err := txn.Get(key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}
	return txn.Set(key, []byte("1"))
}

// backfillLocationIndex writes a has_location index entry for every story
// present before the index existed. Entries already written are overwritten
// with identical values, so the backfill is safe to re-run.
func backfillLocationIndex(txn *badger.Txn) error {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte(storyPrefix)})
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		id := string(item.Key()[len(storyPrefix):])

		var hasLocation bool
		err := item.Value(func(val []byte) error {
			record, uerr := unmarshalStory(val)
			if uerr != nil {
				return uerr
			}
			hasLocation = record.HasLocation
			return nil
		})
		if err != nil {
			return err
		}

		idxKey := storyLocationIdxPrefix + boolIdxSegment(hasLocation) + ":" + id
		if err := txn.Set([]byte(idxKey), []byte(id)); err != nil {
			return err
		}
	}
	return nil
}
