package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"fragreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// External tool names point at binaries that do not exist unless a stub
// option provides them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DemoDir = filepath.Join(base, "demos")
	cfgVal.Decoder.Binary = "fragreel-test-missing-decoder"
	cfgVal.Render.FFmpegBinary = "fragreel-test-missing-ffmpeg"
	cfgVal.Render.FFprobeBinary = "fragreel-test-missing-ffprobe"
	cfgVal.Render.CaptureBinary = "fragreel-test-missing-capture"
	cfgVal.API.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// Stub is a fake executable: Name is the file name on PATH and Body the
// shell script executed after the interpreter line.
type Stub struct {
	Name string
	Body string
}

// WithStubs writes the stub executables into a private bin directory and
// prepends it to PATH for the duration of the test.
func WithStubs(stubs ...Stub) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, stub := range stubs {
			body := stub.Body
			if body == "" {
				body = "exit 0"
			}
			script := []byte("#!/bin/sh\n" + body + "\n")
			if err := os.WriteFile(filepath.Join(binDir, stub.Name), script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", stub.Name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// WithDecoder installs a decoder stub and points the config at it.
func WithDecoder(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Decoder.Binary = "csda"
		WithStubs(Stub{Name: "csda", Body: body})(b)
	}
}

// WithFFmpeg installs ffmpeg and ffprobe stubs and points the config at them.
func WithFFmpeg(ffmpegBody, ffprobeBody string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.FFmpegBinary = "ffmpeg"
		b.cfg.Render.FFprobeBinary = "ffprobe"
		WithStubs(Stub{Name: "ffmpeg", Body: ffmpegBody}, Stub{Name: "ffprobe", Body: ffprobeBody})(b)
	}
}

// WithCapture installs a capture tool stub and points the config at it.
func WithCapture() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.CaptureBinary = "hlae"
		WithStubs(Stub{Name: "hlae"})(b)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
