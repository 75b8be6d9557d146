package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/render"
	"fragreel/internal/store"
)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "templates",
		Short:       "List render templates",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			templates := render.Templates()
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.TemplateListResponse{Templates: templates})
			}
			rows := make([][]string, 0, len(templates))
			for _, t := range templates {
				rows = append(rows, []string{
					t.ID,
					t.Name,
					fmt.Sprintf("%dx%d", t.Width, t.Height),
					fmt.Sprintf("%d", t.FPS),
					t.Description,
				})
			}
			printTable(cmd, "No templates", []string{"ID", "Name", "Resolution", "FPS", "Description"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft})
			return nil
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise the match library",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				stats, err := st.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Matches:     %d\n", stats.TotalMatches)
				fmt.Fprintf(out, "Rounds:      %d\n", stats.TotalRounds)
				fmt.Fprintf(out, "Kills:       %d\n", stats.TotalKills)
				rendered := 0.0
				if stats.TotalHighlights > 0 {
					rendered = float64(stats.RenderedHighlights) * 100 / float64(stats.TotalHighlights)
				}
				fmt.Fprintf(out, "Highlights:  %d (%s rendered)\n\n", stats.TotalHighlights, formatPercent(rendered))

				rows := make([][]string, 0, len(stats.Maps))
				for _, m := range stats.Maps {
					rows = append(rows, []string{mapLabel(m.MapName), fmt.Sprintf("%d", m.Matches)})
				}
				printTable(cmd, "No maps played", []string{"Map", "Matches"}, rows, []columnAlignment{alignLeft, alignRight})
				return nil
			})
		},
	}
}
