package remote

import (
	"time"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
)

// envelope is the common wrapper around every API response.
type envelope struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// wireStory mirrors a story as the API serializes it.
type wireStory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photoUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	Lat         *float64  `json:"lat"`
	Lon         *float64  `json:"lon"`
}

func (w *wireStory) toRecord() domain.StoryRecord {
	record := domain.StoryRecord{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		PhotoURL:    w.PhotoURL,
		Lat:         w.Lat,
		Lon:         w.Lon,
		CreatedAt:   w.CreatedAt,
	}
	record.DeriveLocation()
	return record
}

type storiesResponse struct {
	envelope
	ListStory []wireStory `json:"listStory"`
}

type storyDetailResponse struct {
	envelope
	Story wireStory `json:"story"`
}

type loginResponse struct {
	envelope
	LoginResult struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
		Token  string `json:"token"`
	} `json:"loginResult"`
}

// Credentials is the result of a successful login.
type Credentials struct {
	UserID string
	Name   string
	Token  string
}

// FetchOptions tunes a story listing request.
type FetchOptions struct {
	// Page is 1-based. Zero means the API default.
	Page int
	// Size caps the number of stories returned. Zero means the API default.
	Size int
	// WithLocation asks the API for stories that carry coordinates only.
	WithLocation bool
}

// StorySubmission is the payload for publishing a story.
type StorySubmission struct {
	Description string
	Photo       []byte
	PhotoName   string
	Lat         *float64
	Lon         *float64
	// IdempotencyKey deduplicates retried submissions on the server side.
	IdempotencyKey string
}

// PushKeys are the client keys of a web push subscription.
type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription identifies a browser push endpoint.
type PushSubscription struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}
