package store

import (
	"context"
	"fmt"
)

// Stats returns library totals and the number of matches per map.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT
            (SELECT COUNT(1) FROM matches),
            (SELECT COUNT(1) FROM rounds),
            (SELECT COUNT(1) FROM kill_events),
            (SELECT COUNT(1) FROM highlights),
            (SELECT COUNT(1) FROM highlights WHERE video_path IS NOT NULL)`,
	).Scan(&st.TotalMatches, &st.TotalRounds, &st.TotalKills, &st.TotalHighlights, &st.RenderedHighlights)
	if err != nil {
		return Stats{}, fmt.Errorf("count totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT map_name, COUNT(1) AS n FROM matches GROUP BY map_name ORDER BY n DESC, map_name`)
	if err != nil {
		return Stats{}, fmt.Errorf("count maps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mc MapCount
		if err := rows.Scan(&mc.MapName, &mc.Matches); err != nil {
			return Stats{}, fmt.Errorf("scan map count: %w", err)
		}
		st.Maps = append(st.Maps, mc)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}
	return st, nil
}
