package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/http/response"
)

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	favorites, err := s.store.GetAllFavorites(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, favorites, s.logger)
}

// handleAddFavorite bookmarks a cached story. Idempotent: repeating the call
// keeps the original bookmark time.
func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")

	record, err := s.store.GetStoryByID(r.Context(), storyID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	fav := domain.FavoriteFromStory(record, time.Now().UTC())
	if err := s.store.AddFavorite(r.Context(), storyID, fav); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, fav, s.logger)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveFavorite(r.Context(), chi.URLParam(r, "storyID")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

type toggleFavoriteResponse struct {
	StoryID  string `json:"storyId"`
	Favorite bool   `json:"favorite"`
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "storyID")

	favorite, err := s.storyService.ToggleFavorite(r.Context(), storyID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, toggleFavoriteResponse{StoryID: storyID, Favorite: favorite}, s.logger)
}
