package providers

import (
	"context"
	"errors"
	"net/url"

	"github.com/samber/do/v2"

	"github.com/ceritasekitarmu/cerita-server/internal/config"
	"github.com/ceritasekitarmu/cerita-server/internal/logger"
	"github.com/ceritasekitarmu/cerita-server/internal/sw"
)

// CacheStorageHandle wraps the asset cache database with shutdown capability.
type CacheStorageHandle struct {
	*sw.Storage
}

// Shutdown implements do.Shutdownable.
func (h *CacheStorageHandle) Shutdown() error {
	return h.Close()
}

// ProvideCacheStorage provides the asset cache database.
func ProvideCacheStorage(i do.Injector) (*CacheStorageHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	storage, err := sw.OpenStorage(cfg.CachePath(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Asset cache ready", "path", cfg.CachePath())

	return &CacheStorageHandle{Storage: storage}, nil
}

// ShellManagerHandle wraps the worker lifecycle manager with its asset
// watcher's context.
type ShellManagerHandle struct {
	*sw.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *ShellManagerHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideShellManager provides the shell cache lifecycle manager. The base
// version installs and activates at startup; when asset watching is on, disk
// changes roll the cache to a successor version.
func ProvideShellManager(i do.Injector) (*ShellManagerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storageHandle := do.MustInvoke[*CacheStorageHandle](i)

	manager := sw.NewManager(storageHandle.Storage, cfg.Shell.StaticDir, cfg.Shell.Version, log.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err := manager.Start(ctx)
	cancel()
	if err != nil {
		return nil, err
	}

	log.Info("Shell cache installed",
		"version", cfg.Shell.Version,
		"static_dir", cfg.Shell.StaticDir,
	)

	handle := &ShellManagerHandle{Manager: manager}
	if cfg.Shell.WatchAssets && cfg.Shell.StaticDir != "" {
		watchCtx, watchCancel := context.WithCancel(context.Background())
		handle.cancel = watchCancel
		go func() {
			if err := manager.Watch(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Asset watcher stopped", "error", err)
			}
		}()
	}

	return handle, nil
}

// ProvideGateway provides the offline fetch gateway the shell is served
// through.
func ProvideGateway(i do.Injector) (*sw.Router, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	managerHandle := do.MustInvoke[*ShellManagerHandle](i)

	apiHost := ""
	if remoteURL, err := url.Parse(cfg.Remote.BaseURL); err == nil {
		apiHost = remoteURL.Host
	}

	network := sw.NewOriginNetwork(cfg.Shell.Origin, sw.NewDiskAssets(cfg.Shell.StaticDir), nil)
	routerCfg := sw.RouterConfig{
		Origin:        cfg.Shell.Origin,
		APIHost:       apiHost,
		ShellDocument: cfg.Shell.ShellDocument,
	}

	return sw.NewRouter(routerCfg, managerHandle.Manager, network, sw.NewFallbacks(log.Logger), log.Logger), nil
}
