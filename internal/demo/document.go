package demo

import (
	"strings"
	"time"

	"fragreel/internal/match"
)

// Document is the decoder's JSON report. Every field is optional.
type Document struct {
	Map      string      `json:"map"`
	Date     string      `json:"date"`
	Duration float64     `json:"duration"`
	Score    docScore    `json:"score"`
	TeamCT   string      `json:"teamCTName"`
	TeamT    string      `json:"teamTName"`
	Players  []docPlayer `json:"players"`
	Rounds   []docRound  `json:"rounds"`
	Kills    []docKill   `json:"kills"`

	raw []byte
}

type docScore struct {
	CT int `json:"ct"`
	T  int `json:"t"`
}

type docPlayer struct {
	SteamID   string `json:"steamId"`
	Name      string `json:"name"`
	Team      string `json:"team"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	Assists   int    `json:"assists"`
	Headshots int    `json:"headshots"`
	Damage    int    `json:"damage"`
}

type docRound struct {
	Number     *int    `json:"roundNumber"`
	Winner     string  `json:"winner"`
	WinReason  string  `json:"winReason"`
	Duration   float64 `json:"duration"`
	TeamAMoney int     `json:"teamAMoney"`
	TeamBMoney int     `json:"teamBMoney"`
}

type docKill struct {
	Round          int             `json:"round"`
	Tick           int             `json:"tick"`
	KillerSteamID  string          `json:"killerSteamId"`
	KillerName     string          `json:"killerName"`
	VictimSteamID  string          `json:"victimSteamId"`
	VictimName     string          `json:"victimName"`
	Weapon         string          `json:"weapon"`
	Headshot       bool            `json:"headshot"`
	KillerPosition *match.Position `json:"killerPosition"`
	VictimPosition *match.Position `json:"victimPosition"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return fallback
}

func normalizeSide(side string) string {
	switch strings.ToUpper(strings.TrimSpace(side)) {
	case "CT", "COUNTERTERRORIST", "COUNTER-TERRORIST", "3":
		return match.SideCT
	case "T", "TERRORIST", "2":
		return match.SideT
	}
	return strings.TrimSpace(side)
}

// rounds keeps the decoder's numbering, which may start at 0. Rounds without
// a number take the next one after the highest seen; repeats are dropped.
func (d Document) rounds(matchID string) []match.Round {
	out := make([]match.Round, 0, len(d.Rounds))
	seen := make(map[int]struct{}, len(d.Rounds))
	next := 1
	for _, r := range d.Rounds {
		number := next
		if r.Number != nil && *r.Number >= 0 {
			number = *r.Number
		}
		if _, dup := seen[number]; dup {
			continue
		}
		seen[number] = struct{}{}
		if number >= next {
			next = number + 1
		}
		out = append(out, match.Round{
			MatchID:    matchID,
			Number:     number,
			WinnerSide: normalizeSide(r.Winner),
			WinReason:  r.WinReason,
			Duration:   int(r.Duration),
			CTMoney:    r.TeamAMoney,
			TMoney:     r.TeamBMoney,
		})
	}
	return out
}

func (d Document) kills(matchID string) []match.Kill {
	out := make([]match.Kill, 0, len(d.Kills))
	for _, k := range d.Kills {
		out = append(out, match.Kill{
			MatchID:        matchID,
			Round:          k.Round,
			Tick:           k.Tick,
			KillerID:       strings.TrimSpace(k.KillerSteamID),
			KillerName:     k.KillerName,
			VictimID:       strings.TrimSpace(k.VictimSteamID),
			VictimName:     k.VictimName,
			Weapon:         k.Weapon,
			Headshot:       k.Headshot,
			KillerPosition: k.KillerPosition,
			VictimPosition: k.VictimPosition,
		})
	}
	return out
}

func (d Document) players(matchID string) []match.PlayerStat {
	out := make([]match.PlayerStat, 0, len(d.Players))
	seen := make(map[string]struct{}, len(d.Players))
	for _, p := range d.Players {
		id := strings.TrimSpace(p.SteamID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, match.PlayerStat{
			MatchID:   matchID,
			SteamID:   id,
			Name:      p.Name,
			Team:      normalizeSide(p.Team),
			Kills:     p.Kills,
			Deaths:    p.Deaths,
			Assists:   p.Assists,
			Headshots: p.Headshots,
			Damage:    p.Damage,
		})
	}
	return out
}
