package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/daemon"
	"fragreel/internal/match"
	"fragreel/internal/services"
	"fragreel/internal/store"
)

func newMatchesCommand(ctx *commandContext) *cobra.Command {
	matchesCmd := &cobra.Command{
		Use:     "matches",
		Aliases: []string{"match"},
		Short:   "List, inspect and delete ingested matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatchList(cmd, ctx)
		},
	}

	matchesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List ingested matches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatchList(cmd, ctx)
		},
	})
	matchesCmd.AddCommand(&cobra.Command{
		Use:   "show <match-id>",
		Short: "Show a match scoreboard and its highlights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatchShow(cmd, ctx, args[0])
		},
	})
	matchesCmd.AddCommand(&cobra.Command{
		Use:   "delete <match-id>",
		Short: "Delete a match with its events and highlights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			err := ctx.withWorkspace(cmd,
				func(d *daemon.Daemon) error {
					return d.Workflow().DeleteMatch(cmd.Context(), id)
				},
				func(client *api.Client) error {
					return client.DeleteMatch(cmd.Context(), id)
				},
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted match %s\n", id)
			return nil
		},
	})

	return matchesCmd
}

func runMatchList(cmd *cobra.Command, ctx *commandContext) error {
	return ctx.withStore(func(_ *config.Config, st *store.Store) error {
		matches, err := st.ListMatches(cmd.Context())
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, api.MatchListResponse{Matches: matches})
		}
		rows := make([][]string, 0, len(matches))
		for _, m := range matches {
			rows = append(rows, []string{
				m.ID,
				mapLabel(m.MapName),
				formatDate(m.MatchDate),
				fmt.Sprintf("%d - %d", m.ScoreCT, m.ScoreT),
				formatDuration(m.Duration),
			})
		}
		printTable(cmd, "No matches ingested", []string{"Match", "Map", "Date", "Score (CT-T)", "Duration"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight})
		return nil
	})
}

func runMatchShow(cmd *cobra.Command, ctx *commandContext, id string) error {
	return ctx.withStore(func(_ *config.Config, st *store.Store) error {
		c := cmd.Context()
		rec, err := st.GetMatch(c, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return services.Wrap(services.ErrNotFound, "cli", "show match", id, nil)
		}
		rounds, err := st.ListRounds(c, id)
		if err != nil {
			return err
		}
		players, err := st.ListPlayerStats(c, id)
		if err != nil {
			return err
		}
		highlights, err := st.ListHighlights(c, id)
		if err != nil {
			return err
		}
		if ctx.jsonOutput() {
			return writeJSON(cmd, api.MatchDetail{Match: *rec, Rounds: rounds, Players: players, Highlights: highlights})
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s on %s  %s\n", rec.ID, mapLabel(rec.MapName), formatDate(rec.MatchDate))
		fmt.Fprintf(out, "%s %d - %d %s  (%d rounds, %s)\n",
			dash(rec.TeamCTName), rec.ScoreCT, rec.ScoreT, dash(rec.TeamTName), len(rounds), formatDuration(rec.Duration))
		fmt.Fprintf(out, "Recording: %s\n\n", rec.DemoPath)

		printTable(cmd, "No player statistics (degraded ingest)", []string{"Player", "Team", "K", "D", "A", "HS", "K/D", "ADR"},
			scoreboardRows(players, len(rounds)),
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight})
		fmt.Fprintln(out)
		printHighlights(cmd, highlights)
		return nil
	})
}

func scoreboardRows(players []match.PlayerStat, rounds int) [][]string {
	rows := make([][]string, 0, len(players))
	for _, p := range players {
		rows = append(rows, []string{
			dash(p.Name),
			dash(p.Team),
			fmt.Sprintf("%d", p.Kills),
			fmt.Sprintf("%d", p.Deaths),
			fmt.Sprintf("%d", p.Assists),
			fmt.Sprintf("%d", p.Headshots),
			fmt.Sprintf("%.2f", p.KD()),
			fmt.Sprintf("%.1f", p.ADR(rounds)),
		})
	}
	return rows
}
