// Package search ranks cached stories against a free-text query.
//
// Search is a pure function of its inputs: no index, no hidden state, fully
// deterministic. Relevance is an additive integer score built from
// independent signals on the name and description fields; ties are broken by
// exactness, then field, then recency.
package search

import (
	"slices"
	"strings"

	"github.com/ceritasekitarmu/cerita-server/internal/domain"
	"github.com/ceritasekitarmu/cerita-server/internal/normalize"
)

// fieldWeights holds the signal weights for one field.
type fieldWeights struct {
	exact     int
	prefix    int
	substring int
	wordExact int
	wordPref  int
}

var (
	nameWeights = fieldWeights{exact: 100, prefix: 60, substring: 30, wordExact: 25, wordPref: 15}
	descWeights = fieldWeights{exact: 80, prefix: 40, substring: 20, wordExact: 15, wordPref: 10}
)

// match carries a scored record plus the tie-break signals.
type match struct {
	record domain.StoryRecord
	score  int
	exact  bool // an exact field-level match on name or description
	inName bool // any signal came from the name field
}

// Search ranks the corpus against the query.
//
// A blank query returns the full corpus ordered by CreatedAt descending.
// Otherwise records scoring zero are dropped and the rest are ordered by
// score descending, exact matches first within equal scores, name matches
// before description-only matches, newest first as the final tie-break.
// The input slice is never modified.
func Search(query string, corpus []domain.StoryRecord) []domain.StoryRecord {
	q := normalize.Fold(query)

	if q == "" {
		out := slices.Clone(corpus)
		slices.SortStableFunc(out, func(a, b domain.StoryRecord) int {
			if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
		return out
	}

	matches := make([]match, 0, len(corpus))
	for i := range corpus {
		m := scoreRecord(q, &corpus[i])
		if m.score > 0 {
			matches = append(matches, m)
		}
	}

	slices.SortStableFunc(matches, compareMatches)

	out := make([]domain.StoryRecord, len(matches))
	for i, m := range matches {
		out[i] = m.record
	}
	return out
}

// Score returns the relevance score of a single record for a query.
// Zero means the record does not match.
func Score(query string, record *domain.StoryRecord) int {
	q := normalize.Fold(query)
	if q == "" {
		return 0
	}
	return scoreRecord(q, record).score
}

func scoreRecord(q string, record *domain.StoryRecord) match {
	nameScore, nameExact := scoreField(q, record.Name, nameWeights)
	descScore, descExact := scoreField(q, record.Description, descWeights)

	return match{
		record: *record,
		score:  nameScore + descScore,
		exact:  nameExact || descExact,
		inName: nameScore > 0,
	}
}

// scoreField scores one field. An exact match is terminal. Otherwise the
// field-level signals are tiered, strongest wins: the field being a prefix of
// the query, or the field containing the query. Word-level signals add on
// top: the query matching a word exactly, or failing that, being a prefix of
// a word.
func scoreField(q, field string, w fieldWeights) (score int, exact bool) {
	f := normalize.Fold(field)
	if f == "" {
		return 0, false
	}

	switch {
	case f == q:
		return w.exact, true
	case strings.HasPrefix(q, f):
		score += w.prefix
	case strings.Contains(f, q):
		score += w.substring
	}

	wordExact, wordPref := false, false
	for _, word := range normalize.Words(f) {
		if word == q {
			wordExact = true
			break
		}
		if strings.HasPrefix(word, q) {
			wordPref = true
		}
	}
	switch {
	case wordExact:
		score += w.wordExact
	case wordPref:
		score += w.wordPref
	}

	return score, exact
}

// compareMatches orders by score desc, exact-match first, name match before
// description-only, CreatedAt desc, then ID for full determinism.
func compareMatches(a, b match) int {
	if a.score != b.score {
		return b.score - a.score
	}
	if a.exact != b.exact {
		if a.exact {
			return -1
		}
		return 1
	}
	if a.inName != b.inName {
		if a.inName {
			return -1
		}
		return 1
	}
	if c := b.record.CreatedAt.Compare(a.record.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.record.ID, b.record.ID)
}
