package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fragreel/internal/match"
)

const matchColumns = "match_id, map_name, match_date, duration, score_ct, score_t, team_ct_name, team_t_name, demo_path, parsed_data, created_at"

// UpsertMatch inserts a match or updates an existing one with the same id.
// CreatedAt of an existing row is preserved.
func (s *Store) UpsertMatch(ctx context.Context, rec match.Record) error {
	if rec.ID == "" {
		return errors.New("match id is empty")
	}
	_, err := s.execWithRetry(ctx, upsertMatchSQL, matchArgs(rec)...)
	if err != nil {
		return fmt.Errorf("upsert match %s: %w", rec.ID, err)
	}
	return nil
}

const upsertMatchSQL = `INSERT INTO matches (
        match_id, map_name, match_date, duration, score_ct, score_t,
        team_ct_name, team_t_name, demo_path, parsed_data, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(match_id) DO UPDATE SET
        map_name = excluded.map_name,
        match_date = excluded.match_date,
        duration = excluded.duration,
        score_ct = excluded.score_ct,
        score_t = excluded.score_t,
        team_ct_name = excluded.team_ct_name,
        team_t_name = excluded.team_t_name,
        demo_path = excluded.demo_path,
        parsed_data = excluded.parsed_data,
        updated_at = excluded.updated_at`

func matchArgs(rec match.Record) []any {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	created := now
	if !rec.CreatedAt.IsZero() {
		created = formatTime(rec.CreatedAt)
	}
	return []any{
		rec.ID,
		rec.MapName,
		formatTime(rec.MatchDate),
		rec.Duration,
		rec.ScoreCT,
		rec.ScoreT,
		nullableString(rec.TeamCTName),
		nullableString(rec.TeamTName),
		rec.DemoPath,
		nullableString(rec.ParsedData),
		created,
		now,
	}
}

// GetMatch fetches a match by id. It returns nil, nil when absent.
func (s *Store) GetMatch(ctx context.Context, id string) (*match.Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+matchColumns+` FROM matches WHERE match_id = ?`, id)
	rec, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return rec, nil
}

// ListMatches returns all matches, most recent first.
func (s *Store) ListMatches(ctx context.Context) ([]match.Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+matchColumns+` FROM matches ORDER BY match_date DESC, match_id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []match.Record
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// DeleteMatch removes a match and, by cascade, its rounds, kills, player
// stats, highlights and video tasks. It reports whether a row was removed.
func (s *Store) DeleteMatch(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM matches WHERE match_id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete match %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanMatch(sc scanner) (*match.Record, error) {
	var (
		rec        match.Record
		dateRaw    string
		ctName     sql.NullString
		tName      sql.NullString
		parsed     sql.NullString
		createdRaw sql.NullString
	)
	if err := sc.Scan(
		&rec.ID,
		&rec.MapName,
		&dateRaw,
		&rec.Duration,
		&rec.ScoreCT,
		&rec.ScoreT,
		&ctName,
		&tName,
		&rec.DemoPath,
		&parsed,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	rec.TeamCTName = ctName.String
	rec.TeamTName = tName.String
	rec.ParsedData = parsed.String
	if t, err := parseTimeString(dateRaw); err == nil {
		rec.MatchDate = t
	}
	if t, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}
