package domain

import "time"

// OfflineDraft is a locally authored story waiting for remote acceptance.
//
// The ID is assigned by the store from the creation timestamp in
// milliseconds and is strictly monotonic. Synced transitions false -> true
// exactly once, driven by the sync reconciler; drafts are never deleted
// automatically.
type OfflineDraft struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description" validate:"required"`
	PhotoURL    string    `json:"photoUrl,omitempty" validate:"omitempty,url"`
	Photo       []byte    `json:"photo,omitempty"`
	PhotoName   string    `json:"photoName,omitempty"`
	Lat         *float64  `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lon         *float64  `json:"lon,omitempty" validate:"omitempty,longitude"`
	CreatedAt   time.Time `json:"createdAt"`
	Synced      bool      `json:"synced"`
}

// NewDraft is the payload for authoring a story while disconnected.
type NewDraft struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description" validate:"required"`
	PhotoURL    string   `json:"photoUrl,omitempty" validate:"omitempty,url"`
	Photo       []byte   `json:"photo,omitempty"`
	PhotoName   string   `json:"photoName,omitempty"`
	Lat         *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lon         *float64 `json:"lon,omitempty" validate:"omitempty,longitude"`
}
