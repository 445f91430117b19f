package sw

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// upgradeDebounce batches bursts of asset writes into one upgrade.
const upgradeDebounce = 500 * time.Millisecond

// Manager owns the worker lifecycle: it installs and activates versions and
// rolls to a successor version when shell assets change on disk.
type Manager struct {
	storage     *Storage
	staticDir   string
	baseVersion string
	logger      *slog.Logger

	mu       sync.Mutex
	current  *Worker
	revision int
}

// NewManager creates a lifecycle manager for the static directory.
func NewManager(storage *Storage, staticDir, baseVersion string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		storage:     storage,
		staticDir:   staticDir,
		baseVersion: baseVersion,
		logger:      logger,
	}
}

// Start installs and activates the base version.
func (m *Manager) Start(ctx context.Context) error {
	_, err := m.roll(ctx, m.baseVersion)
	return err
}

// Current returns the active worker, or nil before Start.
func (m *Manager) Current() *Worker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Cache returns the active worker's cache. Before Start it resolves to the
// base version's cache name, which is empty until installed.
func (m *Manager) Cache() *Cache {
	if w := m.Current(); w != nil {
		return w.Cache()
	}
	return m.storage.Cache(CacheName(m.baseVersion))
}

// Upgrade installs a successor version and activates it. The previous worker
// becomes Superseded once the new one is active; its cache is dropped by the
// activation.
func (m *Manager) Upgrade(ctx context.Context) error {
	m.mu.Lock()
	m.revision++
	version := fmt.Sprintf("%s.%d", m.baseVersion, m.revision)
	m.mu.Unlock()

	_, err := m.roll(ctx, version)
	return err
}

func (m *Manager) roll(ctx context.Context, version string) (*Worker, error) {
	assets, err := EnumerateAssets(m.staticDir)
	if err != nil {
		return nil, fmt.Errorf("enumerate assets: %w", err)
	}

	next := NewWorker(version, m.storage, assets, NewDiskAssets(m.staticDir), m.logger)
	if err := next.Install(ctx); err != nil {
		return nil, fmt.Errorf("install %s: %w", version, err)
	}
	if err := next.Activate(ctx); err != nil {
		return nil, fmt.Errorf("activate %s: %w", version, err)
	}

	m.mu.Lock()
	previous := m.current
	m.current = next
	m.mu.Unlock()

	if previous != nil {
		previous.Supersede()
	}
	return next, nil
}

// Watch monitors the static directory and upgrades to a successor version
// when assets change. Blocks until the context is cancelled.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create asset watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(m.staticDir); err != nil {
		return fmt.Errorf("watch %s: %w", m.staticDir, err)
	}
	m.logger.Info("watching shell assets", "dir", m.staticDir)

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(upgradeDebounce)
				timerC = timer.C
			} else {
				timer.Reset(upgradeDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("asset watcher error", "error", err)
		case <-timerC:
			timer = nil
			timerC = nil
			if err := m.Upgrade(ctx); err != nil {
				m.logger.Error("asset upgrade failed", "error", err)
				continue
			}
			m.logger.Info("shell assets changed, new cache version active",
				"cache", m.Current().CacheName())
		}
	}
}
