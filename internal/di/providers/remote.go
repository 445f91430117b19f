package providers

import (
	"github.com/samber/do/v2"

	"github.com/ceritasekitarmu/cerita-server/internal/config"
	"github.com/ceritasekitarmu/cerita-server/internal/logger"
	"github.com/ceritasekitarmu/cerita-server/internal/push"
	"github.com/ceritasekitarmu/cerita-server/internal/remote"
)

// RemoteClientHandle wraps the story API client with shutdown capability.
type RemoteClientHandle struct {
	*remote.Client
}

// Shutdown implements do.Shutdownable.
func (h *RemoteClientHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideRemoteClient provides the rate-limited story API client.
func ProvideRemoteClient(i do.Injector) (*RemoteClientHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := remote.New(remote.Config{
		BaseURL:           cfg.Remote.BaseURL,
		RequestsPerSecond: cfg.Remote.RequestsPerSecond,
		Burst:             cfg.Remote.Burst,
		Timeout:           cfg.Remote.Timeout,
	}, remote.StaticToken(cfg.Remote.Token), log.Logger)

	if cfg.Remote.Token == "" {
		log.Info("No API token configured, running in guest mode")
	}

	return &RemoteClientHandle{Client: client}, nil
}

// ProvidePushManager provides the push subscription manager. Without a VAPID
// key push stays disabled and the provider yields nil.
func ProvidePushManager(i do.Injector) (*push.Manager, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*RemoteClientHandle](i)

	if cfg.Push.VAPIDPublicKey == "" {
		log.Info("Push notifications disabled, no VAPID key configured")
		return nil, nil
	}

	manager, err := push.NewManager(cfg.Push.VAPIDPublicKey, client.Client, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Push notifications enabled")
	return manager, nil
}
