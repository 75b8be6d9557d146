package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fragreel/internal/api"
	"fragreel/internal/config"
	"fragreel/internal/daemon"
	"fragreel/internal/logging"
	"fragreel/internal/pipeline"
	"fragreel/internal/store"
)

const taskPollInterval = time.Second

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var templateID string
	var recording string
	var wait bool

	cmd := &cobra.Command{
		Use:   "render <highlight-id>",
		Short: "Render a highlight to video",
		Long: "Render runs the strategy chain for a highlight and waits for the result.\n" +
			"When fragreel serve is running the task is handed to the server; pass\n" +
			"--wait to follow it there.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recordingPath := recording
			if recordingPath != "" {
				expanded, err := config.ExpandPath(recordingPath)
				if err != nil {
					return err
				}
				recordingPath = expanded
			}
			return runTask(cmd, ctx, wait,
				func(d *daemon.Daemon) (store.Task, error) {
					return d.Pipeline().CreateTask(cmd.Context(), args[0], recordingPath, templateID)
				},
				func(client *api.Client) (store.Task, error) {
					resp, err := client.Render(cmd.Context(), args[0], api.RenderRequest{Template: templateID, RecordingPath: recordingPath})
					return resp.Task, err
				},
			)
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Render template (default from config)")
	cmd.Flags().StringVar(&recording, "recording", "", "Recording to render from (default: the match recording)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for a server-side task to finish")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var templateID string
	var wait bool

	cmd := &cobra.Command{
		Use:   "import <highlight-id> <video>",
		Short: "Attach an externally captured video to a highlight",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			return runTask(cmd, ctx, wait,
				func(d *daemon.Daemon) (store.Task, error) {
					return d.Pipeline().ImportExternalVideo(cmd.Context(), args[0], source, templateID)
				},
				func(client *api.Client) (store.Task, error) {
					resp, err := client.Import(cmd.Context(), args[0], api.ImportRequest{Path: source, Template: templateID})
					return resp.Task, err
				},
			)
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Template to transcode with (default from config)")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for a server-side task to finish")
	return cmd
}

// runTask starts a task locally and follows it to completion, or submits it
// to the running server.
func runTask(cmd *cobra.Command, ctx *commandContext, wait bool,
	local func(*daemon.Daemon) (store.Task, error),
	remote func(*api.Client) (store.Task, error),
) error {
	var final store.Task
	err := ctx.withWorkspace(cmd,
		func(d *daemon.Daemon) error {
			events, cancel := d.Pipeline().Reporter().Subscribe(64)
			defer cancel()
			task, err := local(d)
			if err != nil {
				return err
			}
			final, err = followLocal(cmd, ctx, d.Pipeline(), task, events)
			return err
		},
		func(client *api.Client) error {
			task, err := remote(client)
			if err != nil {
				return err
			}
			if !wait {
				final = task
				return nil
			}
			final, err = followRemote(cmd, ctx, client, task)
			return err
		},
	)
	if err != nil {
		return err
	}
	return reportTask(cmd, ctx, final)
}

func followLocal(cmd *cobra.Command, ctx *commandContext, pipe *pipeline.Pipeline, task store.Task, events <-chan pipeline.Event) (store.Task, error) {
	sampler := logging.NewProgressSampler(25)
	ticker := time.NewTicker(taskPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-cmd.Context().Done():
			return task, cmd.Context().Err()
		case ev, ok := <-events:
			if !ok {
				return pipe.Get(context.WithoutCancel(cmd.Context()), task.ID)
			}
			if ev.TaskID != task.ID {
				continue
			}
			if !ctx.jsonOutput() && ev.Status == store.TaskProcessing && sampler.ShouldLog(ev.Progress, ev.Strategy) {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", dash(ev.Strategy), formatPercent(ev.Progress))
			}
			if ev.Status.Terminal() {
				return pipe.Get(cmd.Context(), task.ID)
			}
		case <-ticker.C:
			current, err := pipe.Get(cmd.Context(), task.ID)
			if err != nil {
				return task, err
			}
			if current.Status.Terminal() {
				return current, nil
			}
		}
	}
}

func followRemote(cmd *cobra.Command, ctx *commandContext, client *api.Client, task store.Task) (store.Task, error) {
	sampler := logging.NewProgressSampler(25)
	ticker := time.NewTicker(taskPollInterval)
	defer ticker.Stop()
	for !task.Status.Terminal() {
		select {
		case <-cmd.Context().Done():
			return task, cmd.Context().Err()
		case <-ticker.C:
		}
		resp, err := client.Task(cmd.Context(), task.ID)
		if err != nil {
			return task, err
		}
		task = resp.Task
		if !ctx.jsonOutput() && task.Status == store.TaskProcessing && sampler.ShouldLog(task.Progress, task.Strategy) {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", dash(task.Strategy), formatPercent(task.Progress))
		}
	}
	return task, nil
}

func reportTask(cmd *cobra.Command, ctx *commandContext, task store.Task) error {
	if ctx.jsonOutput() {
		if err := writeJSON(cmd, api.TaskResponse{Task: task}); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task %s (%s) %s\n", task.ID, task.Kind, task.Status)
		if task.Strategy != "" {
			fmt.Fprintf(out, "Strategy:  %s\n", task.Strategy)
		}
		if task.OutputPath != "" {
			fmt.Fprintf(out, "Video:     %s\n", task.OutputPath)
		}
		if task.ThumbnailPath != "" {
			fmt.Fprintf(out, "Thumbnail: %s\n", task.ThumbnailPath)
		}
		if !task.Status.Terminal() {
			fmt.Fprintf(out, "Follow with: fragreel tasks show %s\n", task.ID)
		}
	}
	if task.Status == store.TaskError {
		return fmt.Errorf("task %s failed: %s", task.ID, task.ErrorMessage)
	}
	return nil
}
