package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractDisplayInfo_EmbeddedTitle(t *testing.T) {
	s := &StoryRecord{
		Name:        "budi",
		Description: "**Senja di Pantai**\nLangit berwarna jingga sore itu.",
	}

	info := ExtractDisplayInfo(s)
	assert.Equal(t, "Senja di Pantai", info.Title)
	assert.Equal(t, "Langit berwarna jingga sore itu.", info.Description)
}

func TestExtractDisplayInfo_NameFallback(t *testing.T) {
	s := &StoryRecord{
		Name:        "budi",
		Description: "Cerita biasa tanpa judul tebal.",
	}

	info := ExtractDisplayInfo(s)
	assert.Equal(t, "budi", info.Title)
	assert.Equal(t, "Cerita biasa tanpa judul tebal.", info.Description)
}

func TestExtractDisplayInfo_NoTitleAtAll(t *testing.T) {
	s := &StoryRecord{Description: "tanpa apa-apa"}

	info := ExtractDisplayInfo(s)
	assert.Equal(t, "Cerita Tanpa Judul", info.Title)
}

func TestDeriveLocation(t *testing.T) {
	lat, lon := -6.2, 106.8

	s := &StoryRecord{Lat: &lat, Lon: &lon}
	s.DeriveLocation()
	assert.True(t, s.HasLocation)

	s = &StoryRecord{Lat: &lat}
	s.DeriveLocation()
	assert.False(t, s.HasLocation)

	// HasLocation is derived, never independently settable.
	s = &StoryRecord{HasLocation: true}
	s.DeriveLocation()
	assert.False(t, s.HasLocation)
}

func TestStoryPatchApply(t *testing.T) {
	lat, lon := -6.2, 106.8
	s := &StoryRecord{ID: "s1", Name: "old", Description: "old desc"}

	name := "new"
	StoryPatch{Name: &name, Lat: &lat, Lon: &lon}.Apply(s)

	assert.Equal(t, "new", s.Name)
	assert.Equal(t, "old desc", s.Description)
	assert.True(t, s.HasLocation)
}
