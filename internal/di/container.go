// Package di provides dependency injection configuration for the Cerita server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/ceritasekitarmu/cerita-server/internal/backup"
	"github.com/ceritasekitarmu/cerita-server/internal/config"
	"github.com/ceritasekitarmu/cerita-server/internal/di/providers"
	"github.com/ceritasekitarmu/cerita-server/internal/logger"
	"github.com/ceritasekitarmu/cerita-server/internal/push"
	"github.com/ceritasekitarmu/cerita-server/internal/service"
	"github.com/ceritasekitarmu/cerita-server/internal/sw"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Local persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideCacheStorage)

	// Remote story API
	do.Provide(injector, providers.ProvideRemoteClient)
	do.Provide(injector, providers.ProvidePushManager)

	// Business services
	do.Provide(injector, providers.ProvideStoryService)
	do.Provide(injector, providers.ProvideSyncService)
	do.Provide(injector, providers.ProvideBackupService)

	// Shell cache and gateway
	do.Provide(injector, providers.ProvideShellManager)
	do.Provide(injector, providers.ProvideGateway)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)

	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.CacheStorageHandle](injector)

	_ = do.MustInvoke[*providers.RemoteClientHandle](injector)
	_ = do.MustInvoke[*push.Manager](injector)

	_ = do.MustInvoke[*service.StoryService](injector)
	_ = do.MustInvoke[*service.SyncService](injector)
	_ = do.MustInvoke[*backup.Service](injector)

	_ = do.MustInvoke[*providers.ShellManagerHandle](injector)
	_ = do.MustInvoke[*sw.Router](injector)

	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
