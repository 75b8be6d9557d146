package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fragreel/internal/media/ffmpeg"
	"fragreel/internal/procexec"
	"fragreel/internal/services"
)

// OutputPath names the video for a highlight under dir.
func OutputPath(dir, highlightID string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("highlight_%s_%d.mp4", sanitize(highlightID), at.UnixMilli()))
}

// ThumbnailPath derives the thumbnail location from a video path.
func ThumbnailPath(videoPath string) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".jpg"
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '-'
		}
		return r
	}, id)
}

// Thumbnail grabs a frame from video one second in.
func (t Tools) Thumbnail(ctx context.Context, video string) (string, error) {
	out := ThumbnailPath(video)
	_, err := procexec.Run(ctx, procexec.Command{
		Binary:    t.FFmpeg,
		Args:      ffmpeg.ThumbnailArgs(video, out, 1),
		Timeout:   t.Timeout,
		TailBytes: t.StderrBytes,
	})
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		return "", services.Wrap(services.ErrSubprocess, "thumbnail", "extract", "no frame written", err)
	}
	return out, nil
}

// Transcode re-encodes externally captured footage to the template profile.
// The template bitrate is not applied so the capture quality is kept.
func (t Tools) Transcode(ctx context.Context, source, output string, tmpl Template, progress ProgressFunc) error {
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(services.ErrNotFound, "import", "transcode", source, err)
	}
	profile := tmpl.Profile()
	profile.Bitrate = ""
	return t.runFFmpeg(ctx, ffmpeg.TranscodeArgs(source, output, profile), t.AssumedDuration, progress)
}
