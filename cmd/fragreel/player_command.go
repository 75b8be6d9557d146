package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/store"
)

func newPlayerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "player <steam-id>",
		Short: "Show a player's match history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				history, err := st.PlayerHistory(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.PlayerHistoryResponse{SteamID: args[0], Matches: history})
				}
				var kills, deaths int
				rows := make([][]string, 0, len(history))
				for _, pm := range history {
					kills += pm.Kills
					deaths += pm.Deaths
					rows = append(rows, []string{
						pm.MatchID,
						mapLabel(pm.MapName),
						formatDate(pm.MatchDate),
						dash(pm.Team),
						fmt.Sprintf("%d", pm.Kills),
						fmt.Sprintf("%d", pm.Deaths),
						fmt.Sprintf("%d", pm.Assists),
						fmt.Sprintf("%d", pm.Damage),
					})
				}
				printTable(cmd, "No matches recorded for "+args[0], []string{"Match", "Map", "Date", "Team", "K", "D", "A", "Damage"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight})
				if len(history) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d matches, %d kills, %d deaths\n", dash(history[0].Name), len(history), kills, deaths)
				}
				return nil
			})
		},
	}
}
