package match

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Side names the two teams.
const (
	SideCT = "CT"
	SideT  = "T"
)

// UnknownMap is used when no map name can be recovered.
const UnknownMap = "unknown"

// Record describes one ingested match.
type Record struct {
	ID         string    `json:"match_id"`
	MapName    string    `json:"map_name"`
	MatchDate  time.Time `json:"match_date"`
	Duration   int       `json:"duration"`
	ScoreCT    int       `json:"score_ct"`
	ScoreT     int       `json:"score_t"`
	TeamCTName string    `json:"team_ct_name"`
	TeamTName  string    `json:"team_t_name"`
	DemoPath   string    `json:"demo_path"`
	ParsedData string    `json:"parsed_data,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Round is one round of a match.
type Round struct {
	MatchID    string `json:"match_id"`
	Number     int    `json:"round_number"`
	WinnerSide string `json:"winner_team"`
	WinReason  string `json:"win_reason"`
	Duration   int    `json:"duration"`
	CTMoney    int    `json:"team_ct_money"`
	TMoney     int    `json:"team_t_money"`
}

// Position is a world coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Kill is a single kill event. KillerID is empty for world damage and suicides.
type Kill struct {
	MatchID        string    `json:"match_id"`
	Round          int       `json:"round_number"`
	Tick           int       `json:"tick"`
	KillerID       string    `json:"killer_steam_id,omitempty"`
	KillerName     string    `json:"killer_name,omitempty"`
	VictimID       string    `json:"victim_steam_id"`
	VictimName     string    `json:"victim_name"`
	Weapon         string    `json:"weapon"`
	Headshot       bool      `json:"is_headshot"`
	KillerPosition *Position `json:"killer_position,omitempty"`
	VictimPosition *Position `json:"victim_position,omitempty"`
}

// PlayerStat is a player's scoreboard line for one match.
type PlayerStat struct {
	MatchID   string `json:"match_id"`
	SteamID   string `json:"steam_id"`
	Name      string `json:"player_name"`
	Team      string `json:"team"`
	Kills     int    `json:"kills"`
	Deaths    int    `json:"deaths"`
	Assists   int    `json:"assists"`
	Headshots int    `json:"headshots"`
	Damage    int    `json:"damage"`
}

// KD returns the kill/death ratio; deaths of zero count as one.
func (p PlayerStat) KD() float64 {
	if p.Deaths <= 0 {
		return float64(p.Kills)
	}
	return float64(p.Kills) / float64(p.Deaths)
}

// ADR returns average damage per round.
func (p PlayerStat) ADR(rounds int) float64 {
	if rounds <= 0 {
		return 0
	}
	return float64(p.Damage) / float64(rounds)
}

// HighlightKind classifies a highlight.
type HighlightKind string

const (
	KindAce       HighlightKind = "ace"
	KindQuadra    HighlightKind = "quadra"
	KindAWPTriple HighlightKind = "awp_triple"
	KindDeagle    HighlightKind = "deagle"
)

// Valid reports whether k is a known kind.
func (k HighlightKind) Valid() bool {
	switch k {
	case KindAce, KindQuadra, KindAWPTriple, KindDeagle:
		return true
	}
	return false
}

// Highlight is a detected moment worth rendering. ID is derived from the
// match, round, player and kind so re-detection yields the same identifiers.
type Highlight struct {
	ID            string        `json:"id"`
	MatchID       string        `json:"match_id"`
	Kind          HighlightKind `json:"type"`
	PlayerID      string        `json:"player_steam_id"`
	PlayerName    string        `json:"player_name"`
	Round         int           `json:"round_number"`
	StartTick     int           `json:"start_tick"`
	EndTick       int           `json:"end_tick"`
	KillCount     int           `json:"kill_count"`
	Description   string        `json:"description"`
	VideoPath     string        `json:"video_path,omitempty"`
	ThumbnailPath string        `json:"thumbnail_path,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// HighlightID builds the stable identifier for a highlight.
func HighlightID(matchID string, round int, playerID string, kind HighlightKind) string {
	return fmt.Sprintf("%s_r%d_%s_%s", matchID, round, playerID, kind)
}

// IDFor derives the match identifier from a recording base name and its
// modification time.
func IDFor(demoPath string, modTime time.Time) string {
	base := strings.TrimSuffix(filepath.Base(demoPath), filepath.Ext(demoPath))
	return fmt.Sprintf("match_%s_%d", base, modTime.UnixMilli())
}
