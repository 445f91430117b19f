package api

import (
	"net/http"

	"github.com/ceritasekitarmu/cerita-server/internal/http/response"
)

// handleShellFetch serves app shell requests through the offline gateway:
// cache-first with network fill, shell document for navigations, fallbacks
// when offline.
func (s *Server) handleShellFetch(w http.ResponseWriter, r *http.Request) {
	if s.gateway == nil {
		response.NotFound(w, "not found", s.logger)
		return
	}

	outcome, err := s.gateway.Resolve(r.Context(), r)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	resp := outcome.Response
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.Header().Set("X-Served-From", string(outcome.Source))
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}
