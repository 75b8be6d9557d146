package render

import (
	"context"

	"fragreel/internal/media/ffmpeg"
	"fragreel/internal/procexec"
)

// Progress bands reported while ffmpeg runs and after it exits cleanly.
const (
	bandStart = 10
	bandEnd   = 90
	bandDone  = 95
)

// runFFmpeg executes ffmpeg and maps its time= markers onto the progress
// band, measured against expected seconds of output.
func (t Tools) runFFmpeg(ctx context.Context, args []string, expected float64, progress ProgressFunc) error {
	proc, err := procexec.Start(ctx, procexec.Command{
		Binary:    t.FFmpeg,
		Args:      args,
		Timeout:   t.Timeout,
		TailBytes: t.StderrBytes,
	})
	if err != nil {
		return err
	}
	report(progress, bandStart)
	for elapsed := range ffmpeg.Progress(proc.Lines()) {
		report(progress, ffmpeg.Band(elapsed, expected, bandStart, bandEnd))
	}
	if _, err := proc.Wait(); err != nil {
		return err
	}
	report(progress, bandDone)
	return nil
}

func report(progress ProgressFunc, pct float64) {
	if progress != nil {
		progress(pct)
	}
}
