package sw

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is a worker's lifecycle phase.
type State int

const (
	// StateInstalling is the initial phase: the version's cache is being
	// populated.
	StateInstalling State = iota
	// StateActive means this version owns the cache and answers fetches.
	StateActive
	// StateSuperseded means a newer version has activated. A superseded
	// worker is abandoned, never reactivated.
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateInstalling:
		return "installing"
	case StateActive:
		return "active"
	case StateSuperseded:
		return "superseded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// cacheNamePrefix versions every cache name so activation can recognize and
// drop caches of other versions.
const cacheNamePrefix = "cerita-static-"

// CacheName returns the cache name for a version.
func CacheName(version string) string {
	return cacheNamePrefix + version
}

// AssetLoader resolves one shell asset path to a response to pre-cache.
type AssetLoader interface {
	Load(ctx context.Context, path string) (*StoredResponse, error)
}

// Worker manages one cache version through install, activation and
// supersession.
type Worker struct {
	version string
	storage *Storage
	assets  []string
	loader  AssetLoader
	logger  *slog.Logger

	mu    sync.RWMutex
	state State
}

// NewWorker creates a worker for the given version. assets is the list of
// shell asset paths to pre-cache during install.
func NewWorker(version string, storage *Storage, assets []string, loader AssetLoader, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		version: version,
		storage: storage,
		assets:  assets,
		loader:  loader,
		logger:  logger,
		state:   StateInstalling,
	}
}

// Version returns the worker's version tag.
func (w *Worker) Version() string {
	return w.version
}

// CacheName returns the name of the cache this worker owns.
func (w *Worker) CacheName() string {
	return CacheName(w.version)
}

// State returns the current lifecycle phase.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Cache returns the worker's cache handle.
func (w *Worker) Cache() *Cache {
	return w.storage.Cache(w.CacheName())
}

// Install populates the version's cache with the shell assets. Individual
// asset failures are logged and skipped, they never fail the install. The
// worker stays Installing until Activate.
func (w *Worker) Install(ctx context.Context) error {
	if state := w.State(); state != StateInstalling {
		return fmt.Errorf("install from state %s", state)
	}

	cache := w.Cache()
	cached := 0
	for _, path := range w.assets {
		if err := ctx.Err(); err != nil {
			return err
		}
		resp, err := w.loader.Load(ctx, path)
		if err != nil {
			w.logger.Warn("shell asset skipped", "cache", cache.Name(), "asset", path, "error", err)
			continue
		}
		if err := cache.Put(path, resp); err != nil {
			w.logger.Warn("shell asset not cached", "cache", cache.Name(), "asset", path, "error", err)
			continue
		}
		cached++
	}

	w.logger.Info("cache version installed",
		"cache", cache.Name(),
		"assets", len(w.assets),
		"cached", cached,
	)
	return nil
}

// Activate promotes the worker: every cache whose name differs from this
// version's is deleted, and this worker starts answering fetches.
func (w *Worker) Activate(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateSuperseded {
		w.mu.Unlock()
		return fmt.Errorf("activate superseded version %s", w.version)
	}
	w.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	names, err := w.storage.Names()
	if err != nil {
		return fmt.Errorf("enumerate caches: %w", err)
	}
	for _, name := range names {
		if name == w.CacheName() {
			continue
		}
		if err := w.storage.Delete(name); err != nil {
			return fmt.Errorf("drop stale cache %s: %w", name, err)
		}
	}

	w.mu.Lock()
	w.state = StateActive
	w.mu.Unlock()

	w.logger.Info("cache version activated", "cache", w.CacheName())
	return nil
}

// Supersede marks the worker as replaced by a newer version. Idempotent.
func (w *Worker) Supersede() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateSuperseded {
		return
	}
	w.state = StateSuperseded
	w.logger.Info("cache version superseded", "cache", w.CacheName())
}

// now is stubbed in tests.
var now = time.Now
