package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fragreel/internal/match"
	"fragreel/internal/services"
)

const highlightColumns = "id, match_id, type, player_steam_id, player_name, round_number, start_tick, end_tick, kill_count, description, video_path, thumbnail_path, created_at"

// Artifact paths are owned by the render pipeline; re-detection never clears them.
const upsertHighlightSQL = `INSERT INTO highlights (
        id, match_id, type, player_steam_id, player_name, round_number,
        start_tick, end_tick, kill_count, description, video_path, thumbnail_path, created_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(id) DO UPDATE SET
        type = excluded.type,
        player_steam_id = excluded.player_steam_id,
        player_name = excluded.player_name,
        round_number = excluded.round_number,
        start_tick = excluded.start_tick,
        end_tick = excluded.end_tick,
        kill_count = excluded.kill_count,
        description = excluded.description,
        video_path = COALESCE(excluded.video_path, highlights.video_path),
        thumbnail_path = COALESCE(excluded.thumbnail_path, highlights.thumbnail_path)`

func highlightArgs(h match.Highlight) []any {
	return []any{
		h.ID,
		h.MatchID,
		string(h.Kind),
		h.PlayerID,
		nullableString(h.PlayerName),
		h.Round,
		h.StartTick,
		h.EndTick,
		h.KillCount,
		nullableString(h.Description),
		nullableString(h.VideoPath),
		nullableString(h.ThumbnailPath),
		formatTime(h.CreatedAt),
	}
}

// UpsertHighlight inserts or updates a single highlight. An unknown match id
// is rejected by the foreign key.
func (s *Store) UpsertHighlight(ctx context.Context, h match.Highlight) error {
	if h.ID == "" {
		return errors.New("highlight id is empty")
	}
	if _, err := s.execWithRetry(ctx, upsertHighlightSQL, highlightArgs(h)...); err != nil {
		return fmt.Errorf("upsert highlight %s: %w", h.ID, err)
	}
	return nil
}

// ReplaceHighlights makes the stored highlights of a match equal to hs.
// Highlights that survive re-detection keep their rendered artifacts; the
// rest are removed along with their tasks.
func (s *Store) ReplaceHighlights(ctx context.Context, matchID string, hs []match.Highlight) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return replaceHighlights(ctx, tx, matchID, hs)
	})
	if err != nil {
		return fmt.Errorf("replace highlights for %s: %w", matchID, err)
	}
	return nil
}

func replaceHighlights(ctx context.Context, tx execer, matchID string, hs []match.Highlight) error {
	ids := make([]any, 0, len(hs)+1)
	ids = append(ids, matchID)
	for _, h := range hs {
		if h.MatchID != matchID {
			return fmt.Errorf("highlight %s belongs to match %q", h.ID, h.MatchID)
		}
		if _, err := tx.ExecContext(ctx, upsertHighlightSQL, highlightArgs(h)...); err != nil {
			return fmt.Errorf("upsert highlight %s: %w", h.ID, err)
		}
		ids = append(ids, h.ID)
	}
	query := `DELETE FROM highlights WHERE match_id = ?`
	if len(hs) > 0 {
		query += ` AND id NOT IN (` + makePlaceholders(len(hs)) + `)`
	}
	if _, err := tx.ExecContext(ctx, query, ids...); err != nil {
		return fmt.Errorf("prune highlights: %w", err)
	}
	return nil
}

// GetHighlight fetches a highlight by id. It returns nil, nil when absent.
func (s *Store) GetHighlight(ctx context.Context, id string) (*match.Highlight, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+highlightColumns+` FROM highlights WHERE id = ?`, id)
	h, err := scanHighlight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get highlight: %w", err)
	}
	return h, nil
}

// ListHighlights returns highlights for a match, or every highlight when
// matchID is empty.
func (s *Store) ListHighlights(ctx context.Context, matchID string) ([]match.Highlight, error) {
	query := `SELECT ` + highlightColumns + ` FROM highlights`
	var args []any
	if matchID != "" {
		query += ` WHERE match_id = ?`
		args = append(args, matchID)
	}
	query += ` ORDER BY match_id, round_number, player_steam_id, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list highlights: %w", err)
	}
	defer rows.Close()

	var out []match.Highlight
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan highlight: %w", err)
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// UpdateHighlightArtifact records rendered output for a highlight. Both paths
// are replaced; an empty thumbnail clears the previous one.
func (s *Store) UpdateHighlightArtifact(ctx context.Context, id, videoPath, thumbnailPath string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE highlights SET video_path = ?, thumbnail_path = ? WHERE id = ?`,
		nullableString(videoPath), nullableString(thumbnailPath), id,
	)
	if err != nil {
		return fmt.Errorf("update highlight artifact: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update artifact", "highlight "+id, nil)
	}
	return nil
}

// Ingestion bundles everything one recording produces.
type Ingestion struct {
	Match      match.Record
	Rounds     []match.Round
	Kills      []match.Kill
	Players    []match.PlayerStat
	Highlights []match.Highlight
}

// SaveIngestion writes a match with its events and highlights atomically.
func (s *Store) SaveIngestion(ctx context.Context, in Ingestion) error {
	if in.Match.ID == "" {
		return errors.New("match id is empty")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertMatchSQL, matchArgs(in.Match)...); err != nil {
			return fmt.Errorf("upsert match: %w", err)
		}
		if err := replaceEvents(ctx, tx, in.Match.ID, in.Rounds, in.Kills, in.Players); err != nil {
			return err
		}
		return replaceHighlights(ctx, tx, in.Match.ID, in.Highlights)
	})
	if err != nil {
		return fmt.Errorf("save ingestion %s: %w", in.Match.ID, err)
	}
	return nil
}

func scanHighlight(sc scanner) (*match.Highlight, error) {
	var (
		h          match.Highlight
		kind       string
		name       sql.NullString
		desc       sql.NullString
		video      sql.NullString
		thumb      sql.NullString
		createdRaw sql.NullString
	)
	if err := sc.Scan(
		&h.ID,
		&h.MatchID,
		&kind,
		&h.PlayerID,
		&name,
		&h.Round,
		&h.StartTick,
		&h.EndTick,
		&h.KillCount,
		&desc,
		&video,
		&thumb,
		&createdRaw,
	); err != nil {
		return nil, err
	}
	h.Kind = match.HighlightKind(kind)
	h.PlayerName = name.String
	h.Description = desc.String
	h.VideoPath = video.String
	h.ThumbnailPath = thumb.String
	if t, err := parseTimeString(createdRaw.String); err == nil {
		h.CreatedAt = t
	}
	return &h, nil
}
