package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"fragreel/internal/config"
	"fragreel/internal/deps"
	"fragreel/internal/render"
)

// Pinger is anything that can confirm a database connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadableDirectory verifies that a source directory can be listed. A
// missing directory passes with a note since recordings may arrive later.
func CheckReadableDirectory(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read ok)", path)}
}

// CheckDatabase pings the store with a short timeout.
func CheckDatabase(ctx context.Context, db Pinger, path string) Result {
	const name = "Database"
	if db == nil {
		return Result{Name: name, Detail: "not opened"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckDefaultTemplate verifies the configured default render template exists.
func CheckDefaultTemplate(id string) Result {
	const name = "Default template"
	tmpl, ok := render.LookupTemplate(id)
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("unknown template %q", id)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%dx%d @ %dfps)", tmpl.ID, tmpl.Width, tmpl.Height, tmpl.FPS)}
}

// CheckSystemDeps evaluates the external tools for the given config. Both
// the API status endpoint and the CLI status command use this list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "Demo decoder",
			Command:     cfg.Decoder.Binary,
			Description: "Full round and kill extraction; header-only ingestion without it",
			Optional:    true,
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Render.FFmpegBinary,
			Description: "Required for rendering, import and thumbnails",
		},
		{
			Name:        "FFprobe",
			Command:     deps.ResolveFFprobe(cfg.Render.FFmpegBinary, cfg.Render.FFprobeBinary),
			Description: "Validates rendered output",
			Optional:    true,
		},
		{
			Name:        "Capture tool",
			Command:     cfg.Render.CaptureBinary,
			Description: "Enables live in-game capture scripts",
			Optional:    true,
		},
	}
	return deps.CheckBinaries(requirements)
}
