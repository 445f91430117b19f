package domain

// StoryStats is an aggregate, read-only view over the three collections.
type StoryStats struct {
	TotalStories   int `json:"total_stories"`
	WithLocation   int `json:"with_location"`
	UnsyncedDrafts int `json:"unsynced_drafts"`
	Favorites      int `json:"favorites"`
}
