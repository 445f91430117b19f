package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
)

func story(id, name, description string, createdAt time.Time) domain.StoryRecord {
	return domain.StoryRecord{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   createdAt,
	}
}

func TestSearch_BlankQueryReturnsCorpusNewestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	corpus := []domain.StoryRecord{
		story("a", "Pantai", "pagi di pantai", base),
		story("c", "Gunung", "kabut tipis", base.Add(2*time.Hour)),
		story("b", "Kota", "lampu malam", base.Add(time.Hour)),
	}

	got := Search("", corpus)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
	assert.Equal(t, "a", got[2].ID)

	got = Search("   ", corpus)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
}

func TestSearch_DoesNotModifyInput(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	corpus := []domain.StoryRecord{
		story("a", "Pantai", "", base),
		story("b", "Gunung", "", base.Add(time.Hour)),
	}

	Search("", corpus)
	assert.Equal(t, "a", corpus[0].ID)
	assert.Equal(t, "b", corpus[1].ID)
}

func TestSearch_NonMatchesAreDropped(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	corpus := []domain.StoryRecord{
		story("a", "Sunset hike", "trail above the valley", base),
		story("b", "Morning market", "fresh produce downtown", base),
	}

	got := Search("sunset", corpus)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestScore_SignalWeights(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query string
		rec   domain.StoryRecord
		want  int
	}{
		{
			name:  "exact name match",
			query: "sunset",
			rec:   story("a", "Sunset", "no overlap here", base),
			want:  100,
		},
		{
			name:  "exact description match",
			query: "pagi di pantai",
			rec:   story("a", "Beach", "Pagi di pantai", base),
			want:  80,
		},
		{
			name:  "name containment plus per-word exact",
			query: "sunset",
			rec:   story("a", "Sunset at the beach", "no overlap", base),
			want:  55,
		},
		{
			name:  "per-word prefix only in name",
			query: "sun",
			rec:   story("a", "Sunset hike", "no overlap", base),
			want:  45,
		},
		{
			name:  "description containment plus per-word exact",
			query: "pantai",
			rec:   story("a", "Morning walk", "jalan kaki di pantai utara", base),
			want:  35,
		},
		{
			name:  "signals accumulate across fields",
			query: "sunset",
			rec:   story("a", "Sunset at the beach", "a sunset like no other", base),
			want:  90,
		},
		{
			name:  "folded diacritics match",
			query: "cafe",
			rec:   story("a", "Café", "no overlap", base),
			want:  100,
		},
		{
			name:  "no match",
			query: "volcano",
			rec:   story("a", "Sunset hike", "trail above the valley", base),
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.query, &tt.rec))
		})
	}
}

func TestSearch_EqualScoresBreakTiesByRecency(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(3 * time.Hour)
	corpus := []domain.StoryRecord{
		story("beach", "Sunset at the beach", "ombak tenang", t1),
		story("hike", "Sunset hike", "jalur berbatu", t2),
	}

	got := Search("sunset", corpus)
	require.Len(t, got, 2)
	assert.Equal(t, "hike", got[0].ID, "equal scores should order newest first")
	assert.Equal(t, "beach", got[1].ID)

	assert.Equal(t, Score("sunset", &corpus[0]), Score("sunset", &corpus[1]))
	assert.Equal(t, 55, Score("sunset", &corpus[0]))
}

func TestSearch_ExactMatchOutranksEqualScore(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	corpus := []domain.StoryRecord{
		// Name prefix (60) plus description containment (20) = 80, newer.
		story("partial", "Senja", "suasana senja merah di dermaga", t1.Add(time.Hour)),
		// Exact description match (80), older.
		story("exact", "Pagi kelabu", "Senja merah", t1),
	}

	got := Search("senja merah", corpus)
	require.Len(t, got, 2)
	require.Equal(t, Score("senja merah", &corpus[0]), Score("senja merah", &corpus[1]))
	assert.Equal(t, "exact", got[0].ID)
}

func TestSearch_NameMatchOutranksDescriptionOnly(t *testing.T) {
	t1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	corpus := []domain.StoryRecord{
		// Description-only: containment (20) plus a per-word prefix (10) = 30.
		story("desc", "Langit malam", "menatap antariksa dari bukit", t1.Add(time.Hour)),
		// Name-only: containment inside a word (30), no word-level signal.
		story("name", "Pantai sepi", "tidak ada kaitan", t1),
	}

	got := Search("anta", corpus)
	require.Len(t, got, 2)
	require.Equal(t, Score("anta", &corpus[0]), Score("anta", &corpus[1]))
	assert.Equal(t, 30, Score("anta", &corpus[0]))
	assert.Equal(t, "name", got[0].ID, "name matches should order before description-only matches")
}
