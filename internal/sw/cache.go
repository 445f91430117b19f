// Package sw is the offline gateway: versioned response caches, an ordered
// fetch-routing pipeline, installation and activation of cache versions, and
// offline fallbacks.
package sw

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
)

const (
	cacheEntryPrefix = "cache:"
	cacheMetaPrefix  = "cachemeta:"
)

// StoredResponse is a cached HTTP response.
type StoredResponse struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"storedAt"`
}

// Storage holds every named response cache in one badger database, separate
// from the story database.
type Storage struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenStorage opens the response cache database at path.
func OpenStorage(path string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domainerrors.StorageUnavailable("open response cache").WithCause(err)
	}

	logger.Info("response cache opened", "path", path)
	return &Storage{db: db, logger: logger}, nil
}

// Close closes the cache database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// Cache returns a handle on the named cache, creating its manifest on first
// write.
func (s *Storage) Cache(name string) *Cache {
	return &Cache{storage: s, name: name}
}

// Names lists every cache that has been written to.
func (s *Storage) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(cacheMetaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, string(it.Item().Key()[len(cacheMetaPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list caches: %w", err)
	}
	return names, nil
}

// Delete removes the named cache and every entry in it.
func (s *Storage) Delete(name string) error {
	prefix := []byte(entryKey(name, ""))
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)

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
		return txn.Delete([]byte(cacheMetaPrefix + name))
	})
	if err != nil {
		return fmt.Errorf("delete cache %s: %w", name, err)
	}
	s.logger.Info("cache deleted", "cache", name)
	return nil
}

func entryKey(cacheName, requestKey string) string {
	return cacheEntryPrefix + cacheName + ":" + requestKey
}

// Cache is one named response cache.
type Cache struct {
	storage *Storage
	name    string
}

// Name returns the cache's name.
func (c *Cache) Name() string {
	return c.name
}

// Put stores a response under the request key, overwriting any previous
// entry.
func (c *Cache) Put(requestKey string, resp *StoredResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal cached response: %w", err)
	}
	err = c.storage.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(cacheMetaPrefix+c.name), []byte{1}); err != nil {
			return err
		}
		return txn.Set([]byte(entryKey(c.name, requestKey)), data)
	})
	if err != nil {
		return fmt.Errorf("store cached response: %w", err)
	}
	return nil
}

// Match looks up the response stored under the request key.
func (c *Cache) Match(requestKey string) (*StoredResponse, error) {
	var resp StoredResponse
	err := c.storage.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(entryKey(c.name, requestKey)))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &resp)
		})
	})
	if err != nil {
		if domainerrors.Is(err, badger.ErrKeyNotFound) {
			return nil, domainerrors.NotFoundf("no cached response for %s", requestKey)
		}
		return nil, fmt.Errorf("match cached response: %w", err)
	}
	return &resp, nil
}

// Delete removes one entry. Absent entries are not an error.
func (c *Cache) Delete(requestKey string) error {
	err := c.storage.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(entryKey(c.name, requestKey)))
	})
	if err != nil {
		return fmt.Errorf("delete cached response: %w", err)
	}
	return nil
}
