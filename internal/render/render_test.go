package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"fragreel/internal/match"
	"fragreel/internal/services"
)

// fakeFFmpeg records its arguments, reports progress and writes the output
// file named by its last argument.
const fakeFFmpeg = `for last; do :; done
printf '%s\n' "$@" > "$(dirname "$0")/ffmpeg.args"
printf 'frame=1 time=00:00:15.00 bitrate=1\r' >&2
echo video > "$last"`

func writeTool(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTools(t *testing.T, ffmpegBody string) (Tools, string) {
	t.Helper()
	bin := t.TempDir()
	return Tools{
		FFmpeg:             writeTool(t, bin, "ffmpeg", ffmpegBody),
		FFprobe:            filepath.Join(bin, "ffprobe-missing"),
		Capture:            filepath.Join(bin, "hlae-missing"),
		Timeout:            10 * time.Second,
		AssumedDuration:    30,
		PlaceholderSeconds: 5,
		ClipsDir:           "clips",
	}, bin
}

func recordedArgs(t *testing.T, bin string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(bin, "ffmpeg.args"))
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func newJob(t *testing.T, templateID string) Job {
	t.Helper()
	tmpl, ok := LookupTemplate(templateID)
	if !ok {
		t.Fatalf("template %s missing", templateID)
	}
	root := t.TempDir()
	return Job{
		Highlight: match.Highlight{
			ID:          "match_x_1_r4_a_quadra",
			Kind:        match.KindQuadra,
			StartTick:   6400,
			Description: "alice gets a 4K in round 4",
		},
		RecordingPath: filepath.Join(root, "demos", "x.dem"),
		Template:      tmpl,
		OutputPath:    filepath.Join(root, "out", "highlight.mp4"),
	}
}

func addClips(t *testing.T, job Job, names ...string) string {
	t.Helper()
	dir := filepath.Join(filepath.Dir(job.RecordingPath), "clips")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir clips: %v", err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("clip"), 0o644); err != nil {
			t.Fatalf("write clip: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		t.Fatalf("mkdir out: %v", err)
	}
	return dir
}

func TestLookupTemplate(t *testing.T) {
	tmpl, ok := LookupTemplate(" Esports ")
	if !ok || tmpl.Bitrate != "25M" || !tmpl.Transitions || !tmpl.Music {
		t.Fatalf("unexpected esports template: %#v", tmpl)
	}
	if _, ok := LookupTemplate("cinematic"); ok {
		t.Fatal("unknown template should not resolve")
	}
	all := Templates()
	all[0].ID = "mutated"
	if _, ok := LookupTemplate("clean"); !ok {
		t.Fatal("Templates must return a copy")
	}
}

func TestSegmentsSortedAndFiltered(t *testing.T) {
	job := newJob(t, "clean")
	dir := addClips(t, job, "b.mp4", "a.AVI", "notes.txt")

	got, err := Segments(dir)
	if err != nil {
		t.Fatalf("Segments failed: %v", err)
	}
	want := []string{filepath.Join(dir, "a.AVI"), filepath.Join(dir, "b.mp4")}
	if !slices.Equal(got, want) {
		t.Fatalf("Segments = %v, want %v", got, want)
	}
}

func TestClipComposerNeedsClipsDirectory(t *testing.T) {
	tools, _ := newTools(t, fakeFFmpeg)
	job := newJob(t, "clean")
	c := &ClipComposer{Tools: tools}
	if c.Applicable(job) {
		t.Fatal("composer should not apply without a clips directory")
	}

	addClips(t, job)
	if !c.Applicable(job) {
		t.Fatal("composer should apply once the clips directory exists")
	}
	err := c.Render(context.Background(), job, nil)
	if !errors.Is(err, services.ErrMissingAsset) {
		t.Fatalf("expected ErrMissingAsset for empty clips dir, got %v", err)
	}
	if !services.Fallthrough(err) {
		t.Fatal("missing asset must fall through")
	}
}

func TestClipComposerConcatReportsProgress(t *testing.T) {
	tools, bin := newTools(t, fakeFFmpeg)
	job := newJob(t, "clean")
	addClips(t, job, "01.mp4", "02.mp4")

	var progress []float64
	err := (&ClipComposer{Tools: tools}).Render(context.Background(), job, func(p float64) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !slices.Equal(progress, []float64{10, 50, 95}) {
		t.Fatalf("unexpected progress %v", progress)
	}
	args := recordedArgs(t, bin)
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-f concat -safe 0") || !strings.Contains(joined, "-b:v 20M") {
		t.Fatalf("unexpected ffmpeg args: %s", joined)
	}
	if _, err := os.Stat(job.OutputPath); err != nil {
		t.Fatalf("output not written: %v", err)
	}
}

func TestClipComposerCrossfadeWithProbe(t *testing.T) {
	tools, bin := newTools(t, fakeFFmpeg)
	tools.FFprobe = writeTool(t, bin, "ffprobe", `echo '{"streams":[{"codec_type":"video","width":1920,"height":1080}],"format":{"duration":"4.0"}}'`)
	job := newJob(t, "minimal")
	addClips(t, job, "01.mp4", "02.mp4")

	if err := (&ClipComposer{Tools: tools}).Render(context.Background(), job, nil); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	joined := strings.Join(recordedArgs(t, bin), " ")
	if !strings.Contains(joined, "xfade=transition=fade:duration=0.5:offset=3.5") {
		t.Fatalf("expected crossfade graph, got %s", joined)
	}
}

func TestClipComposerFailureIsSubprocess(t *testing.T) {
	tools, _ := newTools(t, "echo 'Invalid data found' >&2\nexit 1")
	job := newJob(t, "clean")
	addClips(t, job, "01.mp4")

	err := (&ClipComposer{Tools: tools}).Render(context.Background(), job, nil)
	if !errors.Is(err, services.ErrSubprocess) || !services.Fallthrough(err) {
		t.Fatalf("expected fall-through subprocess error, got %v", err)
	}
}

func TestLiveCaptureWritesScriptAndStops(t *testing.T) {
	tools, bin := newTools(t, fakeFFmpeg)
	job := newJob(t, "clean")
	capture := &LiveCapture{Tools: tools}
	if capture.Applicable(job) {
		t.Fatal("capture should not apply without the tool")
	}

	capture.Tools.Capture = writeTool(t, bin, "hlae", "exit 0")
	if !capture.Applicable(job) {
		t.Fatal("capture should apply when the tool is installed")
	}
	err := capture.Render(context.Background(), job, nil)
	if !errors.Is(err, services.ErrCaptureInteractive) {
		t.Fatalf("expected ErrCaptureInteractive, got %v", err)
	}
	if services.Fallthrough(err) {
		t.Fatal("interactive capture must not fall through")
	}
	script, err := os.ReadFile(ScriptPath(job))
	if err != nil {
		t.Fatalf("script not written: %v", err)
	}
	if !strings.Contains(string(script), "demo_gototick 6400") {
		t.Fatalf("script missing start tick:\n%s", script)
	}
}

func TestPlaceholderLabelsHighlight(t *testing.T) {
	tools, bin := newTools(t, fakeFFmpeg)
	job := newJob(t, "clean")
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	p := &Placeholder{Tools: tools}
	if !p.Applicable(job) {
		t.Fatal("placeholder is always applicable")
	}
	var last float64
	if err := p.Render(context.Background(), job, func(v float64) { last = v }); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if last != 95 {
		t.Fatalf("expected final progress 95, got %v", last)
	}
	joined := strings.Join(recordedArgs(t, bin), " ")
	if !strings.Contains(joined, "Highlight match_x_1_r4_a_quadra") || !strings.Contains(joined, "color=c=black:s=1920x1080:d=5") {
		t.Fatalf("unexpected placeholder args: %s", joined)
	}
}

func TestTranscodeDropsBitrateAndRequiresSource(t *testing.T) {
	tools, bin := newTools(t, fakeFFmpeg)
	job := newJob(t, "esports")
	if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err := tools.Transcode(context.Background(), filepath.Join(bin, "absent.mov"), job.OutputPath, job.Template, nil)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	source := filepath.Join(bin, "capture.mov")
	if err := os.WriteFile(source, []byte("raw"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if err := tools.Transcode(context.Background(), source, job.OutputPath, job.Template, nil); err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}
	args := recordedArgs(t, bin)
	if slices.Contains(args, "-b:v") {
		t.Fatalf("import transcode must not force a bitrate: %v", args)
	}
}

func TestOutputAndThumbnailPaths(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	got := OutputPath("/videos", "m/1_r2", at)
	if got != "/videos/highlight_m-1_r2_1700000000123.mp4" {
		t.Fatalf("unexpected output path %q", got)
	}
	if ThumbnailPath(got) != "/videos/highlight_m-1_r2_1700000000123.jpg" {
		t.Fatalf("unexpected thumbnail path %q", ThumbnailPath(got))
	}
}

func TestDefaultChainOrder(t *testing.T) {
	chain := DefaultChain(Tools{})
	var names []string
	for _, s := range chain {
		names = append(names, s.Name())
	}
	if !slices.Equal(names, []string{"clip_composer", "live_capture", "placeholder"}) {
		t.Fatalf("unexpected chain order %v", names)
	}
}
