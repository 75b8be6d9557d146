package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fragreel/internal/deps"
	"fragreel/internal/logging"
	"fragreel/internal/services"
)

// LiveCapture prepares an in-game capture script. Recording needs a running
// game session, so Render always ends with services.ErrCaptureInteractive
// once the script is on disk.
type LiveCapture struct {
	Tools Tools
}

// Name implements Strategy.
func (l *LiveCapture) Name() string { return "live_capture" }

// Applicable implements Strategy.
func (l *LiveCapture) Applicable(Job) bool {
	return deps.Available(l.Tools.Capture)
}

// ScriptPath returns where the capture script for job is written.
func ScriptPath(job Job) string {
	return strings.TrimSuffix(job.OutputPath, filepath.Ext(job.OutputPath)) + ".cfg"
}

// Render implements Strategy.
func (l *LiveCapture) Render(_ context.Context, job Job, progress ProgressFunc) error {
	script := CaptureScript(job)
	path := ScriptPath(job)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrSubprocess, l.Name(), "write script", path, err)
	}
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		return services.Wrap(services.ErrSubprocess, l.Name(), "write script", path, err)
	}
	report(progress, bandStart)
	l.Tools.logger().Info("capture script written",
		logging.String("script", path),
		logging.HighlightID(job.Highlight.ID),
	)
	msg := fmt.Sprintf("load the recording in game, exec %s, then add the capture with `fragreel import %s <file>`",
		path, job.Highlight.ID)
	return services.Wrap(services.ErrCaptureInteractive, l.Name(), "render", msg, nil)
}

// CaptureScript builds the console script that records the highlight.
func CaptureScript(job Job) string {
	lines := []string{
		fmt.Sprintf("playdemo \"%s\"", job.RecordingPath),
		"mirv_streams add baseHook fragreel",
		"mirv_streams edit fragreel record 1",
		"mirv_streams edit fragreel settings afxFfmpeg",
		fmt.Sprintf("mirv_streams edit fragreel afxFfmpeg settings --codec h264_nvenc --preset p4 --rc vbr --cq 23 -r %d", job.Template.FPS),
		fmt.Sprintf("mirv_streams edit fragreel recordPath \"%s\"", filepath.Dir(job.OutputPath)),
		fmt.Sprintf("demo_gototick %d", job.Highlight.StartTick),
	}
	return strings.Join(lines, "\n") + "\n"
}
