package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
	"github.com/ceritasekitarmu/cerita-server/internal/http/response"
	"github.com/ceritasekitarmu/cerita-server/internal/remote"
	"github.com/ceritasekitarmu/cerita-server/internal/service"
	"github.com/ceritasekitarmu/cerita-server/internal/store"
)

// handleListStories answers GET /api/v1/stories with a derived view over the
// local cache: ?q= ranks by relevance, ?location= filters by coordinate
// presence, ?sort= orders by creation time, ?favorites=1 keeps favorites.
func (s *Server) handleListStories(w http.ResponseWriter, r *http.Request) {
	params := service.QueryParams{
		Query: r.URL.Query().Get("q"),
	}

	hasLocation, err := boolParam(r, "location")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	params.HasLocation = hasLocation

	switch sort := r.URL.Query().Get("sort"); sort {
	case "", "desc":
		params.Sort = store.SortDesc
	case "asc":
		params.Sort = store.SortAsc
	default:
		response.BadRequest(w, "sort must be asc or desc", s.logger)
		return
	}

	favoritesOnly, err := boolParam(r, "favorites")
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	params.FavoritesOnly = favoritesOnly != nil && *favoritesOnly

	views, err := s.storyService.Query(r.Context(), params)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, views, s.logger)
}

// handleRefreshStories pulls the latest stories from the API into the local
// cache. Offline, it answers from cache with fromCache set.
func (s *Server) handleRefreshStories(w http.ResponseWriter, r *http.Request) {
	result, err := s.storyService.Refresh(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, result, s.logger)
}

type createStoryRequest struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description" validate:"required"`
	Photo       []byte   `json:"photo,omitempty"`
	PhotoName   string   `json:"photoName,omitempty"`
	PhotoURL    string   `json:"photoUrl,omitempty" validate:"omitempty,url"`
	Lat         *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lon         *float64 `json:"lon,omitempty" validate:"omitempty,longitude"`
	// Offline forces the story into the draft queue instead of publishing.
	Offline bool `json:"offline,omitempty"`
}

type createStoryResponse struct {
	Queued  bool  `json:"queued"`
	DraftID int64 `json:"draftId,omitempty"`
}

// handleCreateStory publishes a story, or queues it as an offline draft when
// asked to or when the network is down.
func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	var req createStoryRequest
	if err := decodeJSON(r, &req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if err := s.validate.Validate(req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	if !req.Offline {
		err := s.publisher.PostStory(r.Context(), remote.StorySubmission{
			Description: req.Description,
			Photo:       req.Photo,
			PhotoName:   req.PhotoName,
			Lat:         req.Lat,
			Lon:         req.Lon,
		})
		if err == nil {
			response.Created(w, createStoryResponse{}, s.logger)
			return
		}
		if !domainerrors.Is(err, domainerrors.ErrNetworkUnreachable) {
			response.HandleError(w, err, s.logger)
			return
		}
		s.logger.Warn("story API unreachable, queueing draft")
	}

	draftID, err := s.store.AddOfflineDraft(r.Context(), domain.NewDraft{
		Name:        req.Name,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		Photo:       req.Photo,
		PhotoName:   req.PhotoName,
		Lat:         req.Lat,
		Lon:         req.Lon,
	})
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Created(w, createStoryResponse{Queued: true, DraftID: draftID}, s.logger)
}

func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	view, err := s.storyService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, view, s.logger)
}

func (s *Server) handleUpdateStory(w http.ResponseWriter, r *http.Request) {
	var patch domain.StoryPatch
	if err := decodeJSON(r, &patch); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	record, err := s.store.UpdateStory(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, record, s.logger)
}

func (s *Server) handleDeleteStory(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteStory(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}
