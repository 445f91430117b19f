package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ceritasekitarmu/cerita-server/internal/http/response"
)

// handleListDrafts lists offline drafts in creation order. ?unsynced=1
// narrows to drafts still waiting for delivery.
func (s *Server) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	unsynced, err := boolParam(r, "unsynced")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if unsynced != nil && *unsynced {
		list, err := s.store.GetUnsyncedDrafts(r.Context())
		if err != nil {
			response.HandleError(w, err, s.logger)
			return
		}
		response.Success(w, list, s.logger)
		return
	}

	list, err := s.store.GetOfflineDrafts(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, list, s.logger)
}

func (s *Server) handleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(chi.URLParam(r, "id"), "draft id")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.store.DeleteOfflineDraft(r.Context(), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleSyncDrafts runs one reconciliation pass over the draft queue.
func (s *Server) handleSyncDrafts(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncService.SyncAll(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}
