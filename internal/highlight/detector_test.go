package highlight_test

import (
	"math/rand/v2"
	"reflect"
	"testing"

	"fragreel/internal/highlight"
	"fragreel/internal/match"
)

const matchID = "match_de_mirage_1700000000000"

func kill(round, tick int, killer, weapon string) match.Kill {
	return match.Kill{
		MatchID:    matchID,
		Round:      round,
		Tick:       tick,
		KillerID:   killer,
		KillerName: "player-" + killer,
		VictimID:   "victim",
		Weapon:     weapon,
	}
}

func kinds(highlights []match.Highlight) []match.HighlightKind {
	out := make([]match.HighlightKind, 0, len(highlights))
	for _, h := range highlights {
		out = append(out, h.Kind)
	}
	return out
}

func TestDetectAceNotQuadra(t *testing.T) {
	kills := []match.Kill{
		kill(3, 100, "A", "ak47"),
		kill(3, 200, "A", "ak47"),
		kill(3, 300, "A", "m4a1"),
		kill(3, 400, "A", "ak47"),
		kill(3, 500, "A", "glock"),
	}
	got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(kills)
	if len(got) != 1 || got[0].Kind != match.KindAce {
		t.Fatalf("expected exactly one ace, got %v", kinds(got))
	}
	if got[0].StartTick != 100 || got[0].EndTick != 500 {
		t.Fatalf("unexpected span %d-%d", got[0].StartTick, got[0].EndTick)
	}
	if got[0].ID != match.HighlightID(matchID, 3, "A", match.KindAce) {
		t.Fatalf("unexpected id %q", got[0].ID)
	}
	if got[0].PlayerName != "player-A" || got[0].Description == "" {
		t.Fatalf("unexpected naming: %+v", got[0])
	}
}

func TestDetectQuadraNotAce(t *testing.T) {
	kills := []match.Kill{
		kill(1, 10, "B", "ak47"),
		kill(1, 20, "B", "ak47"),
		kill(1, 30, "B", "ak47"),
		kill(1, 40, "B", "ak47"),
	}
	got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(kills)
	if !reflect.DeepEqual(kinds(got), []match.HighlightKind{match.KindQuadra}) {
		t.Fatalf("expected one quadra, got %v", kinds(got))
	}
}

func TestDetectSniperStreakWithoutMultiKill(t *testing.T) {
	kills := []match.Kill{
		kill(4, 10, "C", "awp"),
		kill(4, 20, "C", "weapon_awp"),
		kill(4, 30, "C", "AWP"),
		kill(4, 15, "D", "ak47"),
		kill(4, 25, "D", "ak47"),
	}
	got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(kills)
	if !reflect.DeepEqual(kinds(got), []match.HighlightKind{match.KindAWPTriple}) {
		t.Fatalf("expected single awp_triple, got %v", kinds(got))
	}
	if got[0].StartTick != 10 || got[0].EndTick != 30 || got[0].KillCount != 3 {
		t.Fatalf("unexpected streak span: %+v", got[0])
	}
}

func TestDetectQuadraBeforeStreak(t *testing.T) {
	kills := []match.Kill{
		kill(2, 35, "C", "weapon_awp"),
		kill(2, 10, "C", "AWP"),
		kill(2, 20, "C", "ak47"),
		kill(2, 30, "C", "awp"),
	}
	got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(kills)
	if !reflect.DeepEqual(kinds(got), []match.HighlightKind{match.KindQuadra, match.KindAWPTriple}) {
		t.Fatalf("expected quadra then awp_triple, got %v", kinds(got))
	}
	if got[1].StartTick != 10 || got[1].EndTick != 35 {
		t.Fatalf("unexpected streak span: %+v", got[1])
	}
}

func TestDetectThreeKillsWithoutStreakYieldsNothing(t *testing.T) {
	kills := []match.Kill{
		kill(5, 10, "C", "awp"),
		kill(5, 20, "C", "ak47"),
		kill(5, 30, "C", "deagle"),
	}
	if got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(kills); len(got) != 0 {
		t.Fatalf("expected no highlights, got %v", kinds(got))
	}
}

func TestDetectKillsSplitAcrossRoundsDoNotCombine(t *testing.T) {
	kills := []match.Kill{
		kill(6, 10, "E", "awp"),
		kill(6, 20, "E", "awp"),
		kill(6, 30, "E", "awp"),
		kill(7, 40, "E", "ak47"),
		kill(7, 50, "E", "ak47"),
	}
	got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(kills)
	if !reflect.DeepEqual(kinds(got), []match.HighlightKind{match.KindAWPTriple}) {
		t.Fatalf("expected awp_triple only, got %v", kinds(got))
	}
}

func TestDetectAceAndSniperStreakCoexist(t *testing.T) {
	kills := make([]match.Kill, 0, 5)
	for i := range 5 {
		kills = append(kills, kill(1, (i+1)*100, "A", "AWP"))
	}
	got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(kills)
	if !reflect.DeepEqual(kinds(got), []match.HighlightKind{match.KindAce, match.KindAWPTriple}) {
		t.Fatalf("expected ace and awp_triple, got %v", kinds(got))
	}
	for _, h := range got {
		if h.PlayerID != "A" || h.Round != 1 {
			t.Fatalf("unexpected highlight owner: %+v", h)
		}
	}
}

func TestDetectExclusiveStreakPolicy(t *testing.T) {
	kills := make([]match.Kill, 0, 5)
	for i := range 5 {
		kills = append(kills, kill(1, (i+1)*100, "A", "deagle"))
	}
	policy := highlight.DefaultPolicy()
	policy.ExclusiveStreaks = true
	got := highlight.NewDetector(policy).Detect(kills)
	if !reflect.DeepEqual(kinds(got), []match.HighlightKind{match.KindAce}) {
		t.Fatalf("expected ace only under exclusive policy, got %v", kinds(got))
	}
}

func TestDetectSkipsKillsWithoutKiller(t *testing.T) {
	kills := []match.Kill{
		kill(1, 10, "", "world"),
		kill(1, 20, "", "world"),
		kill(1, 30, "", "world"),
		kill(1, 40, "", "world"),
	}
	if got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(kills); len(got) != 0 {
		t.Fatalf("expected no highlights for world kills, got %v", kinds(got))
	}
	if got := highlight.NewDetector(highlight.DefaultPolicy()).Detect(nil); len(got) != 0 {
		t.Fatalf("expected no highlights for empty input, got %v", kinds(got))
	}
}

func TestDetectIsDeterministicAcrossInputOrder(t *testing.T) {
	var kills []match.Kill
	for round := 1; round <= 4; round++ {
		for i := range 5 {
			kills = append(kills, kill(round, i*10, "A", "awp"))
			kills = append(kills, kill(round, i*10+5, "B", "deagle"))
		}
		kills = append(kills, kill(round, 99, "C", "ak47"))
	}

	detector := highlight.NewDetector(highlight.DefaultPolicy())
	want := detector.Detect(kills)
	if len(want) == 0 {
		t.Fatal("expected highlights")
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for range 10 {
		shuffled := append([]match.Kill(nil), kills...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := detector.Detect(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("detection depends on input order:\n got %v\nwant %v", got, want)
		}
	}

	for i := 1; i < len(want); i++ {
		if want[i].Round < want[i-1].Round {
			t.Fatalf("highlights not ordered by round: %v", want)
		}
	}
}
