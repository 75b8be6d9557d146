package highlight

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"fragreel/internal/match"
)

const (
	quadraKills = 4
	aceKills    = 5
	streakKills = 3
)

// Policy configures weapon classes and streak exclusivity.
type Policy struct {
	// SniperWeapons and PistolWeapons are case-insensitive substrings matched
	// against the kill weapon name.
	SniperWeapons []string
	PistolWeapons []string
	// ExclusiveStreaks drops weapon streaks for a killer and round that
	// already produced a multi-kill.
	ExclusiveStreaks bool
}

// DefaultPolicy matches the AWP as the sniper class and the Desert Eagle as
// the pistol of interest.
func DefaultPolicy() Policy {
	return Policy{
		SniperWeapons: []string{"awp"},
		PistolWeapons: []string{"deagle", "desert eagle"},
	}
}

// Detector finds highlights in kill events.
type Detector struct {
	policy Policy
}

// NewDetector returns a detector for the given policy. Empty weapon lists fall
// back to the defaults.
func NewDetector(policy Policy) *Detector {
	defaults := DefaultPolicy()
	policy.SniperWeapons = lowerAll(policy.SniperWeapons)
	policy.PistolWeapons = lowerAll(policy.PistolWeapons)
	if len(policy.SniperWeapons) == 0 {
		policy.SniperWeapons = defaults.SniperWeapons
	}
	if len(policy.PistolWeapons) == 0 {
		policy.PistolWeapons = defaults.PistolWeapons
	}
	return &Detector{policy: policy}
}

type groupKey struct {
	round  int
	killer string
}

// Detect returns the highlights found in kills. The input slice is not modified.
func (d *Detector) Detect(kills []match.Kill) []match.Highlight {
	ordered := make([]match.Kill, 0, len(kills))
	for _, kill := range kills {
		if strings.TrimSpace(kill.KillerID) == "" {
			continue
		}
		ordered = append(ordered, kill)
	}
	slices.SortStableFunc(ordered, compareKills)

	groups := make(map[groupKey][]match.Kill)
	var keys []groupKey
	for _, kill := range ordered {
		key := groupKey{round: kill.Round, killer: kill.KillerID}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], kill)
	}
	slices.SortFunc(keys, func(a, b groupKey) int {
		if c := cmp.Compare(a.round, b.round); c != 0 {
			return c
		}
		return cmp.Compare(a.killer, b.killer)
	})

	var out []match.Highlight
	for _, key := range keys {
		out = append(out, d.detectGroup(groups[key])...)
	}
	return out
}

func (d *Detector) detectGroup(kills []match.Kill) []match.Highlight {
	var out []match.Highlight

	multiKill := false
	switch {
	case len(kills) >= aceKills:
		out = append(out, build(match.KindAce, kills))
		multiKill = true
	case len(kills) == quadraKills:
		out = append(out, build(match.KindQuadra, kills))
		multiKill = true
	}
	if multiKill && d.policy.ExclusiveStreaks {
		return out
	}

	if sniper := filterWeapon(kills, d.policy.SniperWeapons); len(sniper) >= streakKills {
		out = append(out, build(match.KindAWPTriple, sniper))
	}
	if pistol := filterWeapon(kills, d.policy.PistolWeapons); len(pistol) >= streakKills {
		out = append(out, build(match.KindDeagle, pistol))
	}
	return out
}

// build expects kills in tick order and non-empty.
func build(kind match.HighlightKind, kills []match.Kill) match.Highlight {
	first, last := kills[0], kills[len(kills)-1]
	name := playerName(kills)
	return match.Highlight{
		ID:          match.HighlightID(first.MatchID, first.Round, first.KillerID, kind),
		MatchID:     first.MatchID,
		Kind:        kind,
		PlayerID:    first.KillerID,
		PlayerName:  name,
		Round:       first.Round,
		StartTick:   first.Tick,
		EndTick:     last.Tick,
		KillCount:   len(kills),
		Description: describe(kind, name, first.Round, len(kills)),
	}
}

func describe(kind match.HighlightKind, name string, round, count int) string {
	switch kind {
	case match.KindAce:
		return fmt.Sprintf("%s aced round %d (%d kills)", name, round, count)
	case match.KindQuadra:
		return fmt.Sprintf("%s took 4 kills in round %d", name, round)
	case match.KindAWPTriple:
		return fmt.Sprintf("%s landed %d AWP kills in round %d", name, count, round)
	case match.KindDeagle:
		return fmt.Sprintf("%s landed %d Desert Eagle kills in round %d", name, count, round)
	default:
		return fmt.Sprintf("%s highlight in round %d", name, round)
	}
}

// playerName picks the first non-empty killer name, falling back to the id.
func playerName(kills []match.Kill) string {
	for _, kill := range kills {
		if name := strings.TrimSpace(kill.KillerName); name != "" {
			return name
		}
	}
	return kills[0].KillerID
}

func filterWeapon(kills []match.Kill, patterns []string) []match.Kill {
	var out []match.Kill
	for _, kill := range kills {
		if matchesWeapon(kill.Weapon, patterns) {
			out = append(out, kill)
		}
	}
	return out
}

func matchesWeapon(weapon string, patterns []string) bool {
	weapon = strings.ToLower(weapon)
	if weapon == "" {
		return false
	}
	for _, pattern := range patterns {
		if strings.Contains(weapon, pattern) {
			return true
		}
	}
	return false
}

// compareKills orders by round and tick, breaking ties on the remaining
// fields so equal ticks sort the same way on every run.
func compareKills(a, b match.Kill) int {
	if c := cmp.Compare(a.Round, b.Round); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Tick, b.Tick); c != 0 {
		return c
	}
	if c := cmp.Compare(a.KillerID, b.KillerID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.VictimID, b.VictimID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Weapon, b.Weapon); c != 0 {
		return c
	}
	return cmp.Compare(a.KillerName, b.KillerName)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
			out = append(out, value)
		}
	}
	return out
}
