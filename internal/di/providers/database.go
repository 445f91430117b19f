package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ceritasekitarmu/cerita-server/internal/config"
	"github.com/ceritasekitarmu/cerita-server/internal/logger"
	"github.com/ceritasekitarmu/cerita-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the local story database.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.DatabasePath()
	st := store.New(dbPath, log.Logger)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := st.Open(ctx); err != nil {
		return nil, err
	}

	log.Info("Story database ready", "path", dbPath)

	return &StoreHandle{Store: st}, nil
}
