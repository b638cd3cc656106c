package search

import (
	"testing"

	"github.com/desertthunder/trackpick/internal/models"
)

func TestCanonicalize(t *testing.T) {
	t.Run("Lowercases And Collapses Punctuation", func(t *testing.T) {
		cases := []struct {
			input string
			want  string
		}{
			{"Hey, Jude!", "hey jude"},
			{"  Yesterday  ", "yesterday"},
			{"Don't Stop Me Now", "don t stop me now"},
			{"99 Luftballons", "luftballons"},
			{"---", ""},
			{"", ""},
			{"already canonical", "already canonical"},
		}

		for _, c := range cases {
			if got := Canonicalize(c.input); got != c.want {
				t.Errorf("Canonicalize(%q) = %q, want %q", c.input, got, c.want)
			}
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		inputs := []string{"Hey, Jude!", "  A.B.C  ", "plain", "", "123", "Ça va"}
		for _, input := range inputs {
			once := Canonicalize(input)
			twice := Canonicalize(once)
			if once != twice {
				t.Errorf("Canonicalize not idempotent for %q: %q != %q", input, once, twice)
			}
		}
	})
}

func TestRankAndDedup(t *testing.T) {
	t.Run("Sorts By Popularity Descending", func(t *testing.T) {
		tracks := []models.Track{
			{ID: "a", Artists: "A", Popularity: 10},
			{ID: "b", Artists: "B", Popularity: 90},
			{ID: "c", Artists: "C", Popularity: 50},
		}

		got := RankAndDedup(tracks, 10)
		if len(got) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(got))
		}
		for i, want := range []string{"b", "c", "a"} {
			if got[i].ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
			}
		}
	})

	t.Run("Ties Preserve Input Order", func(t *testing.T) {
		tracks := []models.Track{
			{ID: "first", Artists: "A", Popularity: 50},
			{ID: "second", Artists: "B", Popularity: 50},
			{ID: "third", Artists: "C", Popularity: 50},
		}

		got := RankAndDedup(tracks, 10)
		for i, want := range []string{"first", "second", "third"} {
			if got[i].ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, got[i].ID)
			}
		}
	})

	t.Run("One Track Per Artist Combination", func(t *testing.T) {
		tracks := []models.Track{
			{ID: "hi", Artists: "The Beatles", Popularity: 80},
			{ID: "lo", Artists: "The Beatles", Popularity: 60},
		}

		got := RankAndDedup(tracks, 1)
		if len(got) != 1 {
			t.Fatalf("expected 1 track, got %d", len(got))
		}
		if got[0].ID != "hi" {
			t.Errorf("expected the popularity-80 track, got %s", got[0].ID)
		}
	})

	t.Run("Joined Artist String Is The Dedup Key", func(t *testing.T) {
		tracks := []models.Track{
			{ID: "a", Artists: "X, Y", Popularity: 70},
			{ID: "b", Artists: "X, Y", Popularity: 60},
			{ID: "c", Artists: "X", Popularity: 50},
		}

		got := RankAndDedup(tracks, 10)
		if len(got) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(got))
		}

		seen := map[string]bool{}
		for _, track := range got {
			if seen[track.Artists] {
				t.Errorf("duplicate artists value %q in output", track.Artists)
			}
			seen[track.Artists] = true
		}
	})

	t.Run("Respects Limit", func(t *testing.T) {
		tracks := []models.Track{
			{ID: "a", Artists: "A", Popularity: 30},
			{ID: "b", Artists: "B", Popularity: 20},
			{ID: "c", Artists: "C", Popularity: 10},
		}

		if got := RankAndDedup(tracks, 2); len(got) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(got))
		}
		if got := RankAndDedup(tracks, 0); len(got) != 0 {
			t.Errorf("expected empty result for zero limit, got %d", len(got))
		}
		if got := RankAndDedup(nil, 5); len(got) != 0 {
			t.Errorf("expected empty result for nil input, got %d", len(got))
		}
	})

	t.Run("Does Not Mutate Input", func(t *testing.T) {
		tracks := []models.Track{
			{ID: "a", Artists: "A", Popularity: 10},
			{ID: "b", Artists: "B", Popularity: 90},
		}

		RankAndDedup(tracks, 10)
		if tracks[0].ID != "a" || tracks[1].ID != "b" {
			t.Error("input slice was reordered")
		}
	})
}
