package render

import (
	"context"
	"fmt"

	"fragreel/internal/media/ffmpeg"
)

// Placeholder synthesizes a black card labelled with the highlight. It is
// always applicable and terminates the chain.
type Placeholder struct {
	Tools Tools
}

// Name implements Strategy.
func (p *Placeholder) Name() string { return "placeholder" }

// Applicable implements Strategy.
func (p *Placeholder) Applicable(Job) bool { return true }

// Render implements Strategy.
func (p *Placeholder) Render(ctx context.Context, job Job, progress ProgressFunc) error {
	seconds := p.Tools.PlaceholderSeconds
	if seconds <= 0 {
		seconds = 5
	}
	args := ffmpeg.PlaceholderArgs(job.OutputPath, job.Template.Profile(), seconds,
		fmt.Sprintf("Highlight %s", job.Highlight.ID),
		job.Highlight.Description,
	)
	return p.Tools.runFFmpeg(ctx, args, float64(seconds), progress)
}
