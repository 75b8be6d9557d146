package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/match"
	"fragreel/internal/services"
	"fragreel/internal/store"
)

func newHighlightsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "highlights [match-id]",
		Short: "List detected highlights",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				matchID := ""
				if len(args) == 1 {
					matchID = args[0]
					rec, err := st.GetMatch(cmd.Context(), matchID)
					if err != nil {
						return err
					}
					if rec == nil {
						return services.Wrap(services.ErrNotFound, "cli", "list highlights", matchID, nil)
					}
				}
				highlights, err := st.ListHighlights(cmd.Context(), matchID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.HighlightListResponse{Highlights: highlights})
				}
				printHighlights(cmd, highlights)
				return nil
			})
		},
	}
}

func printHighlights(cmd *cobra.Command, highlights []match.Highlight) {
	rows := make([][]string, 0, len(highlights))
	for _, h := range highlights {
		rows = append(rows, []string{
			h.ID,
			string(h.Kind),
			dash(h.PlayerName),
			fmt.Sprintf("%d", h.Round),
			h.Description,
			yesNo(h.VideoPath != ""),
		})
	}
	printTable(cmd, "No highlights", []string{"Highlight", "Type", "Player", "Round", "Description", "Video"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
}
