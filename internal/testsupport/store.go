package testsupport

import (
	"context"
	"testing"
	"time"

	"fragreel/internal/config"
	"fragreel/internal/match"
	"fragreel/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedMatch stores a match with one highlight and returns both.
func SeedMatch(t testing.TB, st *store.Store, demoPath string) (match.Record, match.Highlight) {
	t.Helper()

	rec := match.Record{
		ID:        match.IDFor(demoPath, time.UnixMilli(1700000000000)),
		MapName:   "de_mirage",
		MatchDate: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
		ScoreCT:   16,
		ScoreT:    12,
		DemoPath:  demoPath,
	}
	h := match.Highlight{
		ID:          match.HighlightID(rec.ID, 3, "76561198000000001", match.KindQuadra),
		MatchID:     rec.ID,
		Kind:        match.KindQuadra,
		PlayerID:    "76561198000000001",
		PlayerName:  "s1mple",
		Round:       3,
		StartTick:   1000,
		EndTick:     1600,
		KillCount:   4,
		Description: "s1mple gets a 4K in round 3",
	}
	err := st.SaveIngestion(context.Background(), store.Ingestion{
		Match:      rec,
		Highlights: []match.Highlight{h},
	})
	if err != nil {
		t.Fatalf("SaveIngestion: %v", err)
	}
	return rec, h
}
