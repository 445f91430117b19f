package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/id"
	"github.com/ceritasekitarmu/cerita-server/internal/remote"
	"github.com/ceritasekitarmu/cerita-server/internal/store"
)

// StoryPublisher is the part of the API client the reconciler needs.
type StoryPublisher interface {
	PostStory(ctx context.Context, sub remote.StorySubmission) error
}

// SyncService pushes offline drafts to the story API.
type SyncService struct {
	store  *store.Store
	remote StoryPublisher
	logger *slog.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(st *store.Store, rem StoryPublisher, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SyncService{store: st, remote: rem, logger: logger}
}

// SyncFailure records one draft the reconciler could not deliver.
type SyncFailure struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// SyncResult summarizes a reconciliation pass.
type SyncResult struct {
	Successful []int64       `json:"successful"`
	Failed     []SyncFailure `json:"failed"`
}

// SyncAll pushes every unsynced draft to the API, strictly in creation
// order, one at a time. Each success is marked synced before the next draft
// is attempted, so an interruption never repeats delivered work. A failed
// draft is recorded and skipped; it never aborts the batch, and there is no
// automatic retry.
func (s *SyncService) SyncAll(ctx context.Context) (*SyncResult, error) {
	drafts, err := s.store.GetUnsyncedDrafts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load unsynced drafts: %w", err)
	}

	result := &SyncResult{Successful: []int64{}, Failed: []SyncFailure{}}
	for i := range drafts {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		draft := &drafts[i]

		if err := s.publish(ctx, draft); err != nil {
			s.logger.Warn("draft sync failed", "draft_id", draft.ID, "error", err)
			result.Failed = append(result.Failed, SyncFailure{ID: draft.ID, Error: err.Error()})
			continue
		}

		if err := s.store.MarkOfflineDraftSynced(ctx, draft.ID); err != nil {
			return result, fmt.Errorf("mark draft %d synced: %w", draft.ID, err)
		}
		result.Successful = append(result.Successful, draft.ID)
		s.logger.Info("draft synced", "draft_id", draft.ID)
	}

	s.logger.Info("sync pass finished",
		"attempted", len(drafts),
		"successful", len(result.Successful),
		"failed", len(result.Failed),
	)
	return result, nil
}

func (s *SyncService) publish(ctx context.Context, draft *domain.OfflineDraft) error {
	submission := remote.StorySubmission{
		Description:    draft.Description,
		Photo:          draft.Photo,
		PhotoName:      draft.PhotoName,
		Lat:            draft.Lat,
		Lon:            draft.Lon,
		IdempotencyKey: id.MustGenerate("sync"),
	}
	return s.remote.PostStory(ctx, submission)
}
