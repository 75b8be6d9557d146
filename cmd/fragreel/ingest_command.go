package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/daemon"
	"fragreel/internal/workflow"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest a recording or every recording in a directory",
		Long: "Ingest decodes a .dem recording, detects highlights and stores the match.\n" +
			"Without a path the configured demo directory is scanned.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := ingestTarget(cfg, args)
			if err != nil {
				return err
			}
			info, err := os.Stat(target)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", target, err)
			}

			var resp api.IngestResponse
			var ingestErr error
			err = ctx.withWorkspace(cmd,
				func(d *daemon.Daemon) error {
					if info.IsDir() {
						batch, err := d.Workflow().IngestDirectory(cmd.Context(), target)
						resp.Batch = &batch
						ingestErr = err
						return nil
					}
					summary, err := d.Workflow().IngestFile(cmd.Context(), target)
					if err != nil {
						return err
					}
					resp.Match = &summary
					return nil
				},
				func(client *api.Client) error {
					resp, err = client.Ingest(cmd.Context(), target)
					return err
				},
			)
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, resp); err != nil {
					return err
				}
			} else {
				printIngest(cmd, resp)
			}
			if resp.Batch != nil && len(resp.Batch.Failed) > 0 {
				return fmt.Errorf("%d of %d recordings failed", len(resp.Batch.Failed), len(resp.Batch.Failed)+len(resp.Batch.Ingested))
			}
			return ingestErr
		},
	}
}

func ingestTarget(cfg *config.Config, args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return cfg.Paths.DemoDir, nil
	}
	return config.ExpandPath(args[0])
}

func printIngest(cmd *cobra.Command, resp api.IngestResponse) {
	var summaries []workflow.Summary
	var failures []workflow.Failure
	if resp.Match != nil {
		summaries = append(summaries, *resp.Match)
	}
	if resp.Batch != nil {
		summaries = append(summaries, resp.Batch.Ingested...)
		failures = resp.Batch.Failed
	}

	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.MatchID,
			mapLabel(s.MapName),
			fmt.Sprintf("%d", s.Rounds),
			fmt.Sprintf("%d", s.Kills),
			fmt.Sprintf("%d", s.Highlights),
			yesNo(s.Degraded),
		})
	}
	printTable(cmd, "No recordings ingested", []string{"Match", "Map", "Rounds", "Kills", "Highlights", "Degraded"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft})

	out := cmd.OutOrStdout()
	for _, f := range failures {
		fmt.Fprintf(out, "failed: %s: %s\n", f.Path, f.Message)
	}
}
