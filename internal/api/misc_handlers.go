package api

import (
	"net/http"

	"github.com/ceritasekitarmu/cerita-server/internal/http/response"
	"github.com/ceritasekitarmu/cerita-server/internal/push"
)

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	response.Success(w, healthResponse{Status: "ok"}, s.logger)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.storyService.Stats(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, stats, s.logger)
}

func (s *Server) handleSubscribePush(w http.ResponseWriter, r *http.Request) {
	if s.pushManager == nil {
		response.Error(w, http.StatusServiceUnavailable, "push notifications not configured", s.logger)
		return
	}

	var sub push.Subscription
	if err := decodeJSON(r, &sub); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if err := s.validate.Validate(sub); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if err := s.pushManager.Subscribe(r.Context(), sub); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, sub, s.logger)
}

func (s *Server) handleUnsubscribePush(w http.ResponseWriter, r *http.Request) {
	if s.pushManager == nil {
		response.Error(w, http.StatusServiceUnavailable, "push notifications not configured", s.logger)
		return
	}

	if err := s.pushManager.Unsubscribe(r.Context()); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		response.Error(w, http.StatusServiceUnavailable, "backups not configured", s.logger)
		return
	}

	result, err := s.backups.Create(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, result, s.logger)
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	if s.backups == nil {
		response.Error(w, http.StatusServiceUnavailable, "backups not configured", s.logger)
		return
	}

	snapshots, err := s.backups.List()
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, snapshots, s.logger)
}
