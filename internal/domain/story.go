// Package domain contains the core records and domain logic for the Cerita story application.
package domain

import (
	"time"
)

// StoryRecord represents a story mirrored from the remote API with optional geolocation.
//
// HasLocation is always derived from Lat/Lon presence; it is recomputed on
// every store write and never settable by callers.
type StoryRecord struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name"`
	Description string    `json:"description" validate:"required"`
	PhotoURL    string    `json:"photoUrl,omitempty" validate:"omitempty,url"`
	Lat         *float64  `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lon         *float64  `json:"lon,omitempty" validate:"omitempty,longitude"`
	CreatedAt   time.Time `json:"createdAt"`
	CachedAt    time.Time `json:"cachedAt,omitzero"`
	HasLocation bool      `json:"hasLocation"`
}

// DeriveLocation recomputes HasLocation from coordinate presence.
// A record carries a location only when both coordinates are set.
func (s *StoryRecord) DeriveLocation() {
	s.HasLocation = s.Lat != nil && s.Lon != nil
}

// StoryPatch describes a partial update to a story. Nil fields are left
// untouched; coordinates are patched as a pair so HasLocation stays derived.
type StoryPatch struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	PhotoURL    *string  `json:"photoUrl,omitempty" validate:"omitempty,url"`
	Lat         *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lon         *float64 `json:"lon,omitempty" validate:"omitempty,longitude"`
}

// Apply merges the patch into the story and re-derives HasLocation.
func (p StoryPatch) Apply(s *StoryRecord) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.PhotoURL != nil {
		s.PhotoURL = *p.PhotoURL
	}
	if p.Lat != nil {
		s.Lat = p.Lat
	}
	if p.Lon != nil {
		s.Lon = p.Lon
	}
	s.DeriveLocation()
}

// Empty reports whether the patch changes nothing.
func (p StoryPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.PhotoURL == nil && p.Lat == nil && p.Lon == nil
}
