package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/ceritasekitarmu/cerita-server/internal/api"
	"github.com/ceritasekitarmu/cerita-server/internal/backup"
	"github.com/ceritasekitarmu/cerita-server/internal/config"
	"github.com/ceritasekitarmu/cerita-server/internal/logger"
	"github.com/ceritasekitarmu/cerita-server/internal/push"
	"github.com/ceritasekitarmu/cerita-server/internal/service"
	"github.com/ceritasekitarmu/cerita-server/internal/sw"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*RemoteClientHandle](i)
	storyService := do.MustInvoke[*service.StoryService](i)
	syncService := do.MustInvoke[*service.SyncService](i)
	pushManager := do.MustInvoke[*push.Manager](i)
	backups := do.MustInvoke[*backup.Service](i)
	gateway := do.MustInvoke[*sw.Router](i)

	handler := api.NewServer(storeHandle.Store, storyService, syncService, client.Client, pushManager, backups, gateway, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
