package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fragreel/internal/match"
	"fragreel/internal/services"
	"fragreel/internal/store"
	"fragreel/internal/testsupport"
)

func sampleEvents(matchID string) ([]match.Round, []match.Kill, []match.PlayerStat) {
	rounds := []match.Round{
		{Number: 1, WinnerSide: match.SideCT, WinReason: "elimination", Duration: 95, CTMoney: 4000, TMoney: 4000},
		{Number: 2, WinnerSide: match.SideT, WinReason: "bomb", Duration: 110},
	}
	kills := []match.Kill{
		{Round: 1, Tick: 100, KillerID: "a", KillerName: "alice", VictimID: "b", VictimName: "bob", Weapon: "ak47", Headshot: true,
			KillerPosition: &match.Position{X: 1, Y: 2, Z: 3}},
		{Round: 2, Tick: 900, VictimID: "a", VictimName: "alice", Weapon: "world"},
	}
	players := []match.PlayerStat{
		{SteamID: "a", Name: "alice", Team: match.SideCT, Kills: 1, Deaths: 1, Headshots: 1, Damage: 100},
		{SteamID: "b", Name: "bob", Team: match.SideT, Deaths: 1},
	}
	for i := range kills {
		kills[i].MatchID = matchID
	}
	return rounds, kills, players
}

func TestUpsertMatchIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := match.Record{ID: "match_demo_1", MapName: "de_inferno", MatchDate: time.Now(), DemoPath: "/tmp/demo.dem"}
	if err := st.UpsertMatch(ctx, rec); err != nil {
		t.Fatalf("UpsertMatch failed: %v", err)
	}
	rec.ScoreCT = 13
	if err := st.UpsertMatch(ctx, rec); err != nil {
		t.Fatalf("second UpsertMatch failed: %v", err)
	}

	all, err := st.ListMatches(ctx)
	if err != nil {
		t.Fatalf("ListMatches failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one match, got %d", len(all))
	}
	if all[0].ScoreCT != 13 || all[0].MapName != "de_inferno" {
		t.Fatalf("unexpected match: %#v", all[0])
	}

	missing, err := st.GetMatch(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing match, got %#v, %v", missing, err)
	}
}

func TestInsertEventsReplacesPreviousSet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := match.Record{ID: "m1", MapName: "de_nuke", MatchDate: time.Now(), DemoPath: "/x.dem"}
	if err := st.UpsertMatch(ctx, rec); err != nil {
		t.Fatalf("UpsertMatch failed: %v", err)
	}
	rounds, kills, players := sampleEvents(rec.ID)
	for i := 0; i < 2; i++ {
		if err := st.InsertEvents(ctx, rec.ID, rounds, kills, players); err != nil {
			t.Fatalf("InsertEvents #%d failed: %v", i, err)
		}
	}

	gotRounds, err := st.ListRounds(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListRounds failed: %v", err)
	}
	if len(gotRounds) != 2 || gotRounds[0].Number != 1 || gotRounds[1].WinReason != "bomb" {
		t.Fatalf("unexpected rounds: %#v", gotRounds)
	}

	gotKills, err := st.ListKills(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListKills failed: %v", err)
	}
	if len(gotKills) != 2 {
		t.Fatalf("expected 2 kills after re-insert, got %d", len(gotKills))
	}
	first := gotKills[0]
	if !first.Headshot || first.KillerPosition == nil || first.KillerPosition.Z != 3 || first.VictimPosition != nil {
		t.Fatalf("first kill did not round-trip: %#v", first)
	}
	if gotKills[1].KillerID != "" {
		t.Fatalf("world kill should have no killer, got %q", gotKills[1].KillerID)
	}

	gotPlayers, err := st.ListPlayerStats(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListPlayerStats failed: %v", err)
	}
	if len(gotPlayers) != 2 || gotPlayers[0].SteamID != "a" {
		t.Fatalf("unexpected player stats: %#v", gotPlayers)
	}

	history, err := st.PlayerHistory(ctx, "a")
	if err != nil {
		t.Fatalf("PlayerHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].MapName != "de_nuke" || history[0].Damage != 100 {
		t.Fatalf("unexpected history: %#v", history)
	}
}

func TestInsertEventsRollsBackOnFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := match.Record{ID: "m1", MapName: "de_nuke", MatchDate: time.Now(), DemoPath: "/x.dem"}
	if err := st.UpsertMatch(ctx, rec); err != nil {
		t.Fatalf("UpsertMatch failed: %v", err)
	}
	rounds, kills, players := sampleEvents(rec.ID)
	if err := st.InsertEvents(ctx, rec.ID, rounds, kills, players); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}

	// Duplicate round numbers violate the unique constraint halfway through.
	bad := append([]match.Round{}, rounds...)
	bad = append(bad, match.Round{Number: 1})
	if err := st.InsertEvents(ctx, rec.ID, bad, nil, nil); err == nil {
		t.Fatal("expected duplicate round to fail")
	}

	gotKills, err := st.ListKills(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListKills failed: %v", err)
	}
	if len(gotKills) != 2 {
		t.Fatalf("failed batch must leave prior events intact, got %d kills", len(gotKills))
	}
}

func TestInsertEventsRejectsUnknownMatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	rounds, kills, players := sampleEvents("ghost")
	if err := st.InsertEvents(context.Background(), "ghost", rounds, kills, players); err == nil {
		t.Fatal("expected foreign key violation for unknown match")
	}
	if err := st.UpsertHighlight(context.Background(), match.Highlight{ID: "h", MatchID: "ghost", Kind: match.KindAce, PlayerID: "a"}); err == nil {
		t.Fatal("expected foreign key violation for highlight of unknown match")
	}
}

func TestReplaceHighlightsPreservesArtifacts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec, h := testsupport.SeedMatch(t, st, filepath.Join(t.TempDir(), "demo.dem"))
	if err := st.UpdateHighlightArtifact(ctx, h.ID, "/videos/out.mp4", "/videos/out.jpg"); err != nil {
		t.Fatalf("UpdateHighlightArtifact failed: %v", err)
	}

	extra := match.Highlight{
		ID:        match.HighlightID(rec.ID, 7, "p2", match.KindDeagle),
		MatchID:   rec.ID,
		Kind:      match.KindDeagle,
		PlayerID:  "p2",
		Round:     7,
		KillCount: 3,
	}
	h.Description = "updated"
	if err := st.ReplaceHighlights(ctx, rec.ID, []match.Highlight{h, extra}); err != nil {
		t.Fatalf("ReplaceHighlights failed: %v", err)
	}

	got, err := st.GetHighlight(ctx, h.ID)
	if err != nil || got == nil {
		t.Fatalf("GetHighlight failed: %#v, %v", got, err)
	}
	if got.VideoPath != "/videos/out.mp4" || got.ThumbnailPath != "/videos/out.jpg" {
		t.Fatalf("artifacts were not preserved: %#v", got)
	}
	if got.Description != "updated" {
		t.Fatalf("description not updated: %q", got.Description)
	}

	if err := st.ReplaceHighlights(ctx, rec.ID, []match.Highlight{extra}); err != nil {
		t.Fatalf("ReplaceHighlights prune failed: %v", err)
	}
	list, err := st.ListHighlights(ctx, rec.ID)
	if err != nil {
		t.Fatalf("ListHighlights failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != extra.ID {
		t.Fatalf("expected only the deagle highlight to remain, got %#v", list)
	}
}

func TestUpdateHighlightArtifactMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	err := st.UpdateHighlightArtifact(context.Background(), "missing", "/a.mp4", "")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteMatchCascades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec, h := testsupport.SeedMatch(t, st, "/demos/a.dem")
	rounds, kills, players := sampleEvents(rec.ID)
	if err := st.InsertEvents(ctx, rec.ID, rounds, kills, players); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}
	task := store.Task{ID: "t1", HighlightID: h.ID, TemplateID: "clean", Status: store.TaskPending, CreatedAt: time.Now()}
	if err := st.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask failed: %v", err)
	}

	removed, err := st.DeleteMatch(ctx, rec.ID)
	if err != nil || !removed {
		t.Fatalf("DeleteMatch = %v, %v", removed, err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalMatches != 0 || stats.TotalRounds != 0 || stats.TotalKills != 0 || stats.TotalHighlights != 0 {
		t.Fatalf("expected empty library after cascade, got %#v", stats)
	}
	if got, err := st.GetTask(ctx, "t1"); err != nil || got != nil {
		t.Fatalf("expected task removed by cascade, got %#v, %v", got, err)
	}

	removed, err = st.DeleteMatch(ctx, rec.ID)
	if err != nil || removed {
		t.Fatalf("second DeleteMatch = %v, %v", removed, err)
	}
}

func TestTasksRoundTripAndOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, h := testsupport.SeedMatch(t, st, "/demos/a.dem")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	done := base.Add(time.Minute)
	tasks := []store.Task{
		{ID: "old", HighlightID: h.ID, TemplateID: "clean", Status: store.TaskCompleted, Progress: 100,
			OutputPath: "/o.mp4", Strategy: "placeholder", CreatedAt: base, CompletedAt: &done},
		{ID: "new", HighlightID: h.ID, Kind: store.TaskKindImport, TemplateID: "minimal", Status: store.TaskProcessing,
			Progress: 40, CreatedAt: base.Add(time.Hour)},
	}
	for _, task := range tasks {
		if err := st.SaveTask(ctx, task); err != nil {
			t.Fatalf("SaveTask failed: %v", err)
		}
	}

	list, err := st.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("expected newest first, got %#v", list)
	}
	if list[0].Kind != store.TaskKindImport || list[1].Kind != store.TaskKindRender {
		t.Fatalf("unexpected kinds: %q %q", list[0].Kind, list[1].Kind)
	}
	if list[1].CompletedAt == nil || !list[1].CompletedAt.Equal(done) {
		t.Fatalf("completed_at did not round-trip: %#v", list[1].CompletedAt)
	}

	live, err := st.ListTasks(ctx, store.TaskPending, store.TaskProcessing)
	if err != nil {
		t.Fatalf("ListTasks filtered failed: %v", err)
	}
	if len(live) != 1 || live[0].ID != "new" {
		t.Fatalf("unexpected live tasks: %#v", live)
	}

	n, err := st.FailInterruptedTasks(ctx)
	if err != nil || n != 1 {
		t.Fatalf("FailInterruptedTasks = %d, %v", n, err)
	}
	got, err := st.GetTask(ctx, "new")
	if err != nil || got == nil || got.Status != store.TaskError || got.CompletedAt == nil {
		t.Fatalf("interrupted task not failed: %#v, %v", got, err)
	}

	if err := st.SaveTask(ctx, store.Task{ID: "bad", HighlightID: h.ID, Status: "weird"}); err == nil {
		t.Fatal("expected invalid status to be rejected")
	}
}

func TestStatsCountsMapsAndRenders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	_, h := testsupport.SeedMatch(t, st, "/demos/a.dem")
	if err := st.UpdateHighlightArtifact(ctx, h.ID, "/v.mp4", ""); err != nil {
		t.Fatalf("UpdateHighlightArtifact failed: %v", err)
	}
	for _, id := range []string{"m2", "m3"} {
		rec := match.Record{ID: id, MapName: "de_dust2", MatchDate: time.Now(), DemoPath: "/" + id}
		if err := st.UpsertMatch(ctx, rec); err != nil {
			t.Fatalf("UpsertMatch failed: %v", err)
		}
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalMatches != 3 || stats.TotalHighlights != 1 || stats.RenderedHighlights != 1 {
		t.Fatalf("unexpected totals: %#v", stats)
	}
	if len(stats.Maps) != 2 || stats.Maps[0].MapName != "de_dust2" || stats.Maps[0].Matches != 2 {
		t.Fatalf("unexpected map counts: %#v", stats.Maps)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	raw, err := store.OpenPath(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if err := raw.ForceSchemaVersion(context.Background(), 99); err != nil {
		t.Fatalf("ForceSchemaVersion failed: %v", err)
	}
	raw.Close()

	if _, err := store.Open(cfg); !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		t.Fatalf("database should remain on disk: %v", err)
	}
}
