// Package search implements name canonicalization and result ranking for song discovery.
//
// Canonicalization makes substring matching insensitive to case and
// punctuation so "Hey, Jude!" and "hey jude" compare equal. Ranking orders
// candidates by popularity and caps output to one track per artist
// combination as a diversity heuristic for the results page.
package search

import (
	"sort"
	"strings"

	"github.com/desertthunder/trackpick/internal/models"
)

// Canonicalize derives a comparison key from a display name: lower-cased,
// every run of non-letter characters collapsed to a single space, and
// leading/trailing space trimmed. It is pure, total, and idempotent.
func Canonicalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	pending := false
	for _, r := range strings.ToLower(text) {
		if r < 'a' || r > 'z' {
			pending = true
			continue
		}
		if pending && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pending = false
		b.WriteRune(r)
	}

	return b.String()
}

// RankAndDedup stable-sorts tracks by popularity descending (ties keep the
// provider's pagination order) and keeps the first track seen for each exact
// joined-artists string, stopping once limit tracks are kept.
//
// The dedup key is the display string as-is, not a canonicalized form, so the
// same artists under different formatting count as distinct. That matches the
// historical behavior of the results page.
func RankAndDedup(tracks []models.Track, limit int) []models.Track {
	if limit <= 0 {
		return []models.Track{}
	}

	ranked := make([]models.Track, len(tracks))
	copy(ranked, tracks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Popularity > ranked[j].Popularity
	})

	seen := make(map[string]struct{}, limit)
	kept := make([]models.Track, 0, limit)
	for _, track := range ranked {
		if _, ok := seen[track.Artists]; ok {
			continue
		}

		seen[track.Artists] = struct{}{}
		kept = append(kept, track)

		if len(kept) == limit {
			break
		}
	}

	return kept
}
