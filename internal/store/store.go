// Package store provides durable, versioned storage for the three Cerita
// collections: stories, offline drafts, and favorites.
//
// The store owns all three collections exclusively. Every operation is
// atomic per call; there is no cross-call transactional isolation. Reads
// degrade to an empty result when the underlying database cannot be opened,
// writes propagate a StorageUnavailable error instead.
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ceritasekitarmu/cerita-server/internal/errors"
	"github.com/ceritasekitarmu/cerita-server/internal/validation"
)

// Store wraps a Badger database holding the story collections.
//
// The connection is opened lazily. Concurrent Open calls while an attempt is
// in flight share that single attempt, so schema migrations never race.
type Store struct {
	path     string
	logger   *slog.Logger
	validate *validation.Validator

	mu      sync.Mutex
	db      *badger.DB
	opening chan struct{} // non-nil while an open attempt is in flight
	openErr error

	lastDraftID int64
}

// New creates a Store for the database at path. The database is not touched
// until Open or the first operation.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		path:     path,
		logger:   logger,
		validate: validation.New(),
	}
}

// Open establishes the database connection and applies pending schema
// migrations. It is idempotent; concurrent callers share one in-flight
// attempt.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.db != nil {
		s.mu.Unlock()
		return nil
	}
	if s.opening != nil {
		// Another goroutine is already opening; wait for its outcome.
		ch := s.opening
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.db != nil {
			return nil
		}
		return s.openErr
	}

	ch := make(chan struct{})
	s.opening = ch
	s.mu.Unlock()

	db, err := s.openAndMigrate()

	s.mu.Lock()
	if err == nil {
		s.db = db
	}
	s.openErr = err
	s.opening = nil
	s.mu.Unlock()
	close(ch)

	return err
}

// openAndMigrate opens badger and runs migrations up to the target schema
// version.
func (s *Store) openAndMigrate() (*badger.DB, error) {
	opts := badger.DefaultOptions(s.path)
	opts.Logger = nil      // Disable Badger's internal logging
	opts.SyncWrites = true // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.StorageUnavailable("failed to open story database").WithCause(err)
	}

	if err := s.migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Info("story database opened", "path", s.path)
	return db, nil
}

// Close closes the database connection, if open.
func (s *Store) Close() error {
	s.mu.Lock()
	db := s.db
	s.db = nil
	s.mu.Unlock()

	if db == nil {
		return nil
	}
	return db.Close()
}

// handle returns the live database, opening it if necessary.
func (s *Store) handle(ctx context.Context) (*badger.DB, error) {
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, errors.StorageUnavailable("story database is not open")
	}
	return db, nil
}

// invalidate drops a handle that has become unusable so the next operation
// reopens instead of failing with an unrelated error.
func (s *Store) invalidate(db *badger.DB) {
	s.mu.Lock()
	if s.db == db {
		s.db = nil
	}
	s.mu.Unlock()
	_ = db.Close()
}

// isDeadHandle reports whether err means the handle itself is unusable
// rather than the operation having failed.
func isDeadHandle(err error) bool {
	return errors.Is(err, badger.ErrDBClosed) || errors.Is(err, badger.ErrBlockedWrites)
}

// update runs fn in a read-write transaction. A dead handle is reopened and
// the transaction retried once.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}

	err = db.Update(fn)
	if err != nil && isDeadHandle(err) {
		s.logger.Warn("story database handle unusable, reopening", "error", err)
		s.invalidate(db)
		db, herr := s.handle(ctx)
		if herr != nil {
			return herr
		}
		err = db.Update(fn)
	}
	return err
}

// view runs fn in a read-only transaction. Callers on the read path turn an
// open failure into an empty result.
func (s *Store) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	return db.View(fn)
}

// now is split out so tests can reason about CachedAt freshness.
func (s *Store) now() time.Time {
	return time.Now().UTC()
}
