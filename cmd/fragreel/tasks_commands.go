package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/daemon"
	"fragreel/internal/services"
	"fragreel/internal/store"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	tasksCmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Inspect and remove render tasks",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List render and import tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make([]store.TaskStatus, 0, len(statuses))
			for _, s := range statuses {
				status := store.TaskStatus(s)
				if !status.Valid() {
					return services.Wrap(services.ErrValidation, "cli", "list tasks", fmt.Sprintf("unknown status %q", s), nil)
				}
				filter = append(filter, status)
			}
			return ctx.withStore(func(_ *config.Config, st *store.Store) error {
				tasks, err := st.ListTasks(cmd.Context(), filter...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.TaskListResponse{Tasks: tasks})
				}
				rows := make([][]string, 0, len(tasks))
				for _, t := range tasks {
					rows = append(rows, []string{
						t.ID,
						t.HighlightID,
						string(t.Kind),
						t.TemplateID,
						string(t.Status),
						dash(t.Strategy),
						formatPercent(t.Progress),
						formatDate(t.UpdatedAt),
					})
				}
				printTable(cmd, "No tasks", []string{"Task", "Highlight", "Kind", "Template", "Status", "Strategy", "Progress", "Updated"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
				return nil
			})
		},
	}
	listCmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, processing, completed, error)")

	showCmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var task store.Task
			if lockHeld(cfg.LockPath()) {
				resp, err := api.NewClient(cfg.API.Bind).Task(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				task = resp.Task
			} else {
				err := ctx.withStore(func(_ *config.Config, st *store.Store) error {
					t, err := st.GetTask(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					if t == nil {
						return services.Wrap(services.ErrNotFound, "cli", "show task", args[0], nil)
					}
					task = *t
					return nil
				})
				if err != nil {
					return err
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, api.TaskResponse{Task: task})
			}
			printTaskDetail(cmd, task)
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:     "remove <task-id>",
		Aliases: []string{"rm"},
		Short:   "Cancel a running task or delete a finished one",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.withWorkspace(cmd,
				func(d *daemon.Daemon) error {
					return d.Pipeline().Remove(cmd.Context(), args[0])
				},
				func(client *api.Client) error {
					return client.RemoveTask(cmd.Context(), args[0])
				},
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed task %s\n", args[0])
			return nil
		},
	}

	tasksCmd.RunE = listCmd.RunE
	tasksCmd.Flags().AddFlagSet(listCmd.Flags())
	tasksCmd.AddCommand(listCmd, showCmd, removeCmd)
	return tasksCmd
}

func printTaskDetail(cmd *cobra.Command, task store.Task) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task:       %s\n", task.ID)
	fmt.Fprintf(out, "Highlight:  %s\n", task.HighlightID)
	fmt.Fprintf(out, "Kind:       %s\n", task.Kind)
	fmt.Fprintf(out, "Template:   %s\n", task.TemplateID)
	fmt.Fprintf(out, "Status:     %s (%s)\n", task.Status, formatPercent(task.Progress))
	fmt.Fprintf(out, "Strategy:   %s\n", dash(task.Strategy))
	if task.RecordingPath != "" {
		fmt.Fprintf(out, "Source:     %s\n", task.RecordingPath)
	}
	if task.OutputPath != "" {
		fmt.Fprintf(out, "Video:      %s\n", task.OutputPath)
	}
	if task.ThumbnailPath != "" {
		fmt.Fprintf(out, "Thumbnail:  %s\n", task.ThumbnailPath)
	}
	if task.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s\n", task.ErrorMessage)
	}
	fmt.Fprintf(out, "Created:    %s\n", formatDate(task.CreatedAt))
	if task.CompletedAt != nil {
		fmt.Fprintf(out, "Completed:  %s\n", formatDate(*task.CompletedAt))
	}
}
