package service

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	domainerrors "github.com/ceritasekitarmu/cerita-server/internal/errors"
	"github.com/ceritasekitarmu/cerita-server/internal/remote"
	"github.com/ceritasekitarmu/cerita-server/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "cerita-service-test-*")
	require.NoError(t, err)

	s := store.New(dir, nil)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(dir)
	})
	return s
}

// fakePublisher rejects submissions whose description is in rejects.
type fakePublisher struct {
	posted  []remote.StorySubmission
	rejects map[string]error
}

func (f *fakePublisher) PostStory(_ context.Context, sub remote.StorySubmission) error {
	if err, ok := f.rejects[sub.Description]; ok {
		return err
	}
	f.posted = append(f.posted, sub)
	return nil
}

func addDraft(t *testing.T, s *store.Store, description string) int64 {
	t.Helper()
	id, err := s.AddOfflineDraft(context.Background(), domain.NewDraft{
		Description: description,
		Photo:       []byte{0xFF, 0xD8},
	})
	require.NoError(t, err)
	return id
}

func TestSyncAll_DeliversInCreationOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id1 := addDraft(t, s, "pertama")
	id2 := addDraft(t, s, "kedua")
	id3 := addDraft(t, s, "ketiga")

	pub := &fakePublisher{}
	svc := NewSyncService(s, pub, nil)

	result, err := svc.SyncAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int64{id1, id2, id3}, result.Successful)
	assert.Empty(t, result.Failed)

	require.Len(t, pub.posted, 3)
	assert.Equal(t, "pertama", pub.posted[0].Description)
	assert.Equal(t, "ketiga", pub.posted[2].Description)

	remaining, err := s.GetUnsyncedDrafts(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSyncAll_FailureSkipsDraftButContinues(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id1 := addDraft(t, s, "pertama")
	id2 := addDraft(t, s, "kedua")

	pub := &fakePublisher{rejects: map[string]error{
		"kedua": domainerrors.RemoteRejected("photo too large"),
	}}
	svc := NewSyncService(s, pub, nil)

	result, err := svc.SyncAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int64{id1}, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, id2, result.Failed[0].ID)
	assert.Contains(t, result.Failed[0].Error, "photo too large")

	// The failed draft stays queued for a later pass.
	remaining, err := s.GetUnsyncedDrafts(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, id2, remaining[0].ID)
}

func TestSyncAll_EmptyQueue(t *testing.T) {
	s := setupTestStore(t)

	pub := &fakePublisher{}
	svc := NewSyncService(s, pub, nil)

	result, err := svc.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Successful)
	assert.Empty(t, result.Failed)
	assert.Empty(t, pub.posted)
}

func TestSyncAll_SecondPassRetriesOnlyFailed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	id1 := addDraft(t, s, "pertama")
	id2 := addDraft(t, s, "kedua")

	pub := &fakePublisher{rejects: map[string]error{
		"kedua": domainerrors.NetworkUnreachable("offline"),
	}}
	svc := NewSyncService(s, pub, nil)

	_, err := svc.SyncAll(ctx)
	require.NoError(t, err)

	pub.rejects = nil
	result, err := svc.SyncAll(ctx)
	require.NoError(t, err)

	assert.Equal(t, []int64{id2}, result.Successful)
	assert.NotContains(t, result.Successful, id1, "already delivered drafts must not repeat")
}

func TestSyncAll_SubmissionsCarryIdempotencyKeys(t *testing.T) {
	s := setupTestStore(t)

	addDraft(t, s, "pertama")
	addDraft(t, s, "kedua")

	pub := &fakePublisher{}
	svc := NewSyncService(s, pub, nil)

	_, err := svc.SyncAll(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.posted, 2)
	assert.NotEmpty(t, pub.posted[0].IdempotencyKey)
	assert.NotEmpty(t, pub.posted[1].IdempotencyKey)
	assert.NotEqual(t, pub.posted[0].IdempotencyKey, pub.posted[1].IdempotencyKey)
}
