package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"fragreel/internal/deps"
	"fragreel/internal/logging"
	"fragreel/internal/media/ffmpeg"
	"fragreel/internal/media/ffprobe"
	"fragreel/internal/services"
)

var segmentExtensions = []string{".mp4", ".avi"}

// ClipComposer joins pre-recorded segments found in the clips directory next
// to the recording.
type ClipComposer struct {
	Tools Tools
}

// Name implements Strategy.
func (c *ClipComposer) Name() string { return "clip_composer" }

func (c *ClipComposer) clipsDir(job Job) string {
	name := c.Tools.ClipsDir
	if name == "" {
		name = "clips"
	}
	return filepath.Join(filepath.Dir(job.RecordingPath), name)
}

// Applicable implements Strategy.
func (c *ClipComposer) Applicable(job Job) bool {
	if strings.TrimSpace(job.RecordingPath) == "" {
		return false
	}
	info, err := os.Stat(c.clipsDir(job))
	return err == nil && info.IsDir()
}

// Render implements Strategy.
func (c *ClipComposer) Render(ctx context.Context, job Job, progress ProgressFunc) error {
	dir := c.clipsDir(job)
	clips, err := Segments(dir)
	if err != nil {
		return services.Wrap(services.ErrMissingAsset, c.Name(), "list segments", dir, err)
	}
	if len(clips) == 0 {
		return services.Wrap(services.ErrMissingAsset, c.Name(), "list segments", "no clip segments in "+dir, nil)
	}

	profile := job.Template.Profile()
	expected := c.Tools.AssumedDuration
	if job.Template.Transitions && len(clips) >= 2 {
		if durations, ok := c.probeDurations(ctx, clips); ok {
			args, err := ffmpeg.CrossfadeArgs(clips, durations, job.OutputPath, profile)
			if err == nil {
				return c.Tools.runFFmpeg(ctx, args, expected, progress)
			}
			logging.WarnWithContext(c.Tools.logger(), "crossfade unavailable; joining clips without transitions", "crossfade_skipped",
				logging.Error(err),
				logging.String(logging.FieldImpact, "video has hard cuts between clips"),
			)
		}
	}

	listFile, cleanup, err := writeConcatList(clips)
	if err != nil {
		return services.Wrap(services.ErrSubprocess, c.Name(), "write concat list", "", err)
	}
	defer cleanup()
	return c.Tools.runFFmpeg(ctx, ffmpeg.ConcatArgs(listFile, job.OutputPath, profile), expected, progress)
}

func (c *ClipComposer) probeDurations(ctx context.Context, clips []string) ([]float64, bool) {
	if !deps.Available(c.Tools.FFprobe) {
		return nil, false
	}
	out := make([]float64, 0, len(clips))
	for _, clip := range clips {
		res, err := ffprobe.Inspect(ctx, c.Tools.FFprobe, clip)
		if err != nil {
			c.Tools.logger().Debug("clip probe failed", logging.String("clip", clip), logging.Error(err))
			return nil, false
		}
		d := res.DurationSeconds()
		if d <= 0 {
			return nil, false
		}
		out = append(out, d)
	}
	return out, true
}

// Segments lists clip files in dir sorted by name.
func Segments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.Contains(segmentExtensions, ext) {
			out = append(out, filepath.Join(dir, entry.Name()))
		}
	}
	slices.Sort(out)
	return out, nil
}

func writeConcatList(clips []string) (string, func(), error) {
	f, err := os.CreateTemp("", "fragreel-concat-*.txt")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			abs = clip
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, err
	}
	return f.Name(), cleanup, nil
}
