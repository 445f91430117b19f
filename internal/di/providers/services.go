package providers

import (
	"github.com/samber/do/v2"

	"github.com/ceritasekitarmu/cerita-server/internal/backup"
	"github.com/ceritasekitarmu/cerita-server/internal/config"
	"github.com/ceritasekitarmu/cerita-server/internal/logger"
	"github.com/ceritasekitarmu/cerita-server/internal/service"
)

// ProvideStoryService provides the story query and refresh service.
func ProvideStoryService(i do.Injector) (*service.StoryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*RemoteClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStoryService(storeHandle.Store, client.Client, log.Logger), nil
}

// ProvideSyncService provides the offline draft reconciler.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*RemoteClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSyncService(storeHandle.Store, client.Client, log.Logger), nil
}

// ProvideBackupService provides the sqlite snapshot exporter.
func ProvideBackupService(i do.Injector) (*backup.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return backup.NewService(storeHandle.Store, cfg.Backup.Dir, cfg.App.Version, log.Logger), nil
}
