package domain

import "time"

// FavoriteRecord is a user's bookmark of a story.
//
// It is keyed by StoryID, so at most one favorite exists per story. Display
// fields are denormalized copies: the favorite may outlive the story it
// references after a replace-all refresh drops the story.
type FavoriteRecord struct {
	StoryID     string    `json:"storyId" validate:"required"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
}

// FavoriteFromStory builds a favorite snapshot of the given story.
func FavoriteFromStory(s *StoryRecord, addedAt time.Time) *FavoriteRecord {
	return &FavoriteRecord{
		StoryID:     s.ID,
		Name:        s.Name,
		Description: s.Description,
		PhotoURL:    s.PhotoURL,
		AddedAt:     addedAt,
	}
}
