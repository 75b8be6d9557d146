package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"
)

// Profile is the output encoding a template asks for.
type Profile struct {
	Width   int
	Height  int
	FPS     int
	Bitrate string
}

// Size renders the profile frame size as WxH.
func (p Profile) Size() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// CrossfadeSeconds is the length of each transition between clips.
const CrossfadeSeconds = 0.5

func encodeArgs(p Profile) []string {
	args := []string{
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-r", strconv.Itoa(p.FPS),
		"-s", p.Size(),
	}
	if p.Bitrate != "" {
		args = append(args, "-b:v", p.Bitrate)
	}
	return append(args, "-pix_fmt", "yuv420p", "-movflags", "+faststart")
}

// ConcatArgs joins the clips listed in listFile with the concat demuxer.
func ConcatArgs(listFile, output string, p Profile) []string {
	args := []string{"-hide_banner", "-y", "-f", "concat", "-safe", "0", "-i", listFile}
	args = append(args, encodeArgs(p)...)
	return append(args, output)
}

// CrossfadeArgs joins clips with an xfade transition between each pair.
// durations holds the length of every clip in seconds, in the same order.
func CrossfadeArgs(clips []string, durations []float64, output string, p Profile) ([]string, error) {
	if len(clips) < 2 {
		return nil, fmt.Errorf("crossfade needs at least two clips, got %d", len(clips))
	}
	if len(durations) != len(clips) {
		return nil, fmt.Errorf("crossfade: %d clips but %d durations", len(clips), len(durations))
	}

	args := []string{"-hide_banner", "-y"}
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}

	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,fps=%d,format=yuv420p,setsar=1",
		p.Width, p.Height, p.Width, p.Height, p.FPS)
	var graph strings.Builder
	for i := range clips {
		fmt.Fprintf(&graph, "[%d:v]%s[v%d];", i, scale, i)
	}
	prev := "v0"
	offset := 0.0
	for i := 1; i < len(clips); i++ {
		if durations[i-1] <= CrossfadeSeconds {
			return nil, fmt.Errorf("crossfade: clip %s is too short (%.2fs)", clips[i-1], durations[i-1])
		}
		offset += durations[i-1] - CrossfadeSeconds
		out := fmt.Sprintf("x%d", i)
		if i == len(clips)-1 {
			out = "vout"
		}
		fmt.Fprintf(&graph, "[%s][v%d]xfade=transition=fade:duration=%s:offset=%s[%s]",
			prev, i, formatSeconds(CrossfadeSeconds), formatSeconds(offset), out)
		if i < len(clips)-1 {
			graph.WriteByte(';')
		}
		prev = out
	}

	args = append(args, "-filter_complex", graph.String(), "-map", "[vout]", "-an")
	args = append(args, encodeArgs(p)...)
	return append(args, output), nil
}

// PlaceholderArgs renders a black card of the given length with a text label.
func PlaceholderArgs(output string, p Profile, seconds int, lines ...string) []string {
	src := fmt.Sprintf("color=c=black:s=%s:d=%d:r=%d", p.Size(), seconds, p.FPS)
	filters := make([]string, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		size := 48
		if i > 0 {
			size = 32
		}
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2+%d",
			EscapeDrawText(line), size, i*64))
	}
	args := []string{"-hide_banner", "-y", "-f", "lavfi", "-i", src}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}
	args = append(args, "-t", strconv.Itoa(seconds))
	args = append(args, encodeArgs(p)...)
	return append(args, output)
}

// TranscodeArgs re-encodes input to the profile, keeping audio when present.
func TranscodeArgs(input, output string, p Profile) []string {
	args := []string{"-hide_banner", "-y", "-i", input}
	args = append(args, encodeArgs(p)...)
	args = append(args, "-c:a", "aac", "-b:a", "192k")
	return append(args, output)
}

// ThumbnailArgs grabs one frame at the given offset as a JPEG.
func ThumbnailArgs(input, output string, atSeconds float64) []string {
	return []string{"-hide_banner", "-y", "-ss", formatSeconds(atSeconds), "-i", input, "-frames:v", "1", "-q:v", "2", output}
}

// EscapeDrawText escapes characters that drawtext treats specially.
func EscapeDrawText(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
