package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fragreel/internal/match"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertEvents replaces the rounds, kills and player stats of a match in one
// transaction. Either every row is written or none is.
func (s *Store) InsertEvents(ctx context.Context, matchID string, rounds []match.Round, kills []match.Kill, players []match.PlayerStat) error {
	if matchID == "" {
		return errors.New("match id is empty")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return replaceEvents(ctx, tx, matchID, rounds, kills, players)
	})
	if err != nil {
		return fmt.Errorf("insert events for %s: %w", matchID, err)
	}
	return nil
}

func replaceEvents(ctx context.Context, tx execer, matchID string, rounds []match.Round, kills []match.Kill, players []match.PlayerStat) error {
	for _, table := range []string{"rounds", "kill_events", "player_stats"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE match_id = ?`, matchID); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, r := range rounds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rounds (match_id, round_number, winner_team, win_reason, duration, team_ct_money, team_t_money)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			matchID, r.Number, nullableString(r.WinnerSide), nullableString(r.WinReason), r.Duration, r.CTMoney, r.TMoney,
		); err != nil {
			return fmt.Errorf("insert round %d: %w", r.Number, err)
		}
	}
	for _, k := range kills {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kill_events (
                match_id, round_number, tick, killer_steam_id, killer_name, victim_steam_id,
                victim_name, weapon, is_headshot, killer_position, victim_position
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			matchID, k.Round, k.Tick, nullableString(k.KillerID), nullableString(k.KillerName), k.VictimID,
			nullableString(k.VictimName), nullableString(k.Weapon), boolToInt(k.Headshot),
			encodePosition(k.KillerPosition), encodePosition(k.VictimPosition),
		); err != nil {
			return fmt.Errorf("insert kill at tick %d: %w", k.Tick, err)
		}
	}
	for _, p := range players {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO player_stats (match_id, steam_id, player_name, team, kills, deaths, assists, headshots, damage)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
             ON CONFLICT(match_id, steam_id) DO UPDATE SET
                player_name = excluded.player_name, team = excluded.team, kills = excluded.kills,
                deaths = excluded.deaths, assists = excluded.assists, headshots = excluded.headshots,
                damage = excluded.damage`,
			matchID, p.SteamID, nullableString(p.Name), nullableString(p.Team),
			p.Kills, p.Deaths, p.Assists, p.Headshots, p.Damage,
		); err != nil {
			return fmt.Errorf("insert player %s: %w", p.SteamID, err)
		}
	}
	return nil
}

// ListRounds returns the rounds of a match in order.
func (s *Store) ListRounds(ctx context.Context, matchID string) ([]match.Round, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT match_id, round_number, winner_team, win_reason, duration, team_ct_money, team_t_money
         FROM rounds WHERE match_id = ? ORDER BY round_number`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []match.Round
	for rows.Next() {
		var (
			r      match.Round
			winner sql.NullString
			reason sql.NullString
		)
		if err := rows.Scan(&r.MatchID, &r.Number, &winner, &reason, &r.Duration, &r.CTMoney, &r.TMoney); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		r.WinnerSide = winner.String
		r.WinReason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListKills returns the kill events of a match ordered by round and tick.
func (s *Store) ListKills(ctx context.Context, matchID string) ([]match.Kill, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT match_id, round_number, tick, killer_steam_id, killer_name, victim_steam_id,
                victim_name, weapon, is_headshot, killer_position, victim_position
         FROM kill_events WHERE match_id = ? ORDER BY round_number, tick, id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list kills: %w", err)
	}
	defer rows.Close()

	var out []match.Kill
	for rows.Next() {
		var (
			k          match.Kill
			killerID   sql.NullString
			killerName sql.NullString
			victimName sql.NullString
			weapon     sql.NullString
			headshot   int
			killerPos  sql.NullString
			victimPos  sql.NullString
		)
		if err := rows.Scan(&k.MatchID, &k.Round, &k.Tick, &killerID, &killerName, &k.VictimID,
			&victimName, &weapon, &headshot, &killerPos, &victimPos); err != nil {
			return nil, fmt.Errorf("scan kill: %w", err)
		}
		k.KillerID = killerID.String
		k.KillerName = killerName.String
		k.VictimName = victimName.String
		k.Weapon = weapon.String
		k.Headshot = headshot != 0
		k.KillerPosition = decodePosition(killerPos.String)
		k.VictimPosition = decodePosition(victimPos.String)
		out = append(out, k)
	}
	return out, rows.Err()
}

// ListPlayerStats returns the scoreboard of a match, best fraggers first.
func (s *Store) ListPlayerStats(ctx context.Context, matchID string) ([]match.PlayerStat, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT match_id, steam_id, player_name, team, kills, deaths, assists, headshots, damage
         FROM player_stats WHERE match_id = ? ORDER BY kills DESC, deaths ASC, steam_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list player stats: %w", err)
	}
	defer rows.Close()

	var out []match.PlayerStat
	for rows.Next() {
		var (
			p    match.PlayerStat
			name sql.NullString
			team sql.NullString
		)
		if err := rows.Scan(&p.MatchID, &p.SteamID, &name, &team, &p.Kills, &p.Deaths, &p.Assists, &p.Headshots, &p.Damage); err != nil {
			return nil, fmt.Errorf("scan player stat: %w", err)
		}
		p.Name = name.String
		p.Team = team.String
		out = append(out, p)
	}
	return out, rows.Err()
}

// PlayerHistory returns every recorded match for a player, newest first.
func (s *Store) PlayerHistory(ctx context.Context, steamID string) ([]PlayerMatch, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT m.match_id, m.map_name, m.match_date, p.player_name, p.team,
                p.kills, p.deaths, p.assists, p.headshots, p.damage
         FROM player_stats p JOIN matches m ON m.match_id = p.match_id
         WHERE p.steam_id = ? ORDER BY m.match_date DESC`, steamID)
	if err != nil {
		return nil, fmt.Errorf("player history: %w", err)
	}
	defer rows.Close()

	var out []PlayerMatch
	for rows.Next() {
		var (
			pm      PlayerMatch
			dateRaw string
			name    sql.NullString
			team    sql.NullString
		)
		if err := rows.Scan(&pm.MatchID, &pm.MapName, &dateRaw, &name, &team,
			&pm.Kills, &pm.Deaths, &pm.Assists, &pm.Headshots, &pm.Damage); err != nil {
			return nil, fmt.Errorf("scan player history: %w", err)
		}
		pm.Name = name.String
		pm.Team = team.String
		if t, err := parseTimeString(dateRaw); err == nil {
			pm.MatchDate = t
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}
