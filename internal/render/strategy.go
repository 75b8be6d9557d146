package render

import (
	"context"
	"log/slog"
	"time"

	"fragreel/internal/config"
	"fragreel/internal/deps"
	"fragreel/internal/logging"
	"fragreel/internal/match"
)

// Job is one highlight to render.
type Job struct {
	Highlight     match.Highlight
	RecordingPath string
	Template      Template
	OutputPath    string
}

// ProgressFunc receives percent complete in [0, 100].
type ProgressFunc func(percent float64)

// Strategy is one way to produce a video for a Job.
type Strategy interface {
	Name() string
	// Applicable is a cheap precondition check; Render may still fail with
	// services.ErrMissingAsset when the precondition vanished meanwhile.
	Applicable(job Job) bool
	Render(ctx context.Context, job Job, progress ProgressFunc) error
}

// Tools holds the external binaries and limits shared by strategies.
type Tools struct {
	FFmpeg             string
	FFprobe            string
	Capture            string
	Timeout            time.Duration
	AssumedDuration    float64
	PlaceholderSeconds int
	StderrBytes        int
	ClipsDir           string
	Logger             *slog.Logger
}

// ToolsFromConfig derives Tools from configuration.
func ToolsFromConfig(cfg *config.Config, logger *slog.Logger) Tools {
	return Tools{
		FFmpeg:             cfg.Render.FFmpegBinary,
		FFprobe:            deps.ResolveFFprobe(cfg.Render.FFmpegBinary, cfg.Render.FFprobeBinary),
		Capture:            cfg.Render.CaptureBinary,
		Timeout:            time.Duration(cfg.Render.TimeoutSeconds) * time.Second,
		AssumedDuration:    float64(cfg.Render.AssumedDurationSeconds),
		PlaceholderSeconds: cfg.Render.PlaceholderSeconds,
		StderrBytes:        cfg.Render.MaxStderrKiB * 1024,
		ClipsDir:           cfg.Render.ClipsDirName,
		Logger:             logging.NewComponentLogger(logger, "render"),
	}
}

// DefaultChain returns the strategies in priority order.
func DefaultChain(tools Tools) []Strategy {
	return []Strategy{
		&ClipComposer{Tools: tools},
		&LiveCapture{Tools: tools},
		&Placeholder{Tools: tools},
	}
}

func (t Tools) logger() *slog.Logger {
	if t.Logger == nil {
		return logging.NewNop()
	}
	return t.Logger
}
