package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe returns the ffprobe command to run alongside ffmpegCommand.
//
// When ffmpeg is configured as an explicit path (a static build unpacked
// outside PATH) and ffprobe is left at its bare default name, the ffprobe
// binary sitting next to ffmpeg is preferred so both tools come from the same
// build. Otherwise ffprobeCommand is returned unchanged.
func ResolveFFprobe(ffmpegCommand, ffprobeCommand string) string {
	ffprobeCommand = strings.TrimSpace(ffprobeCommand)
	if ffprobeCommand == "" {
		ffprobeCommand = "ffprobe"
	}
	if strings.ContainsRune(ffprobeCommand, os.PathSeparator) {
		return ffprobeCommand
	}
	ffmpegCommand = strings.TrimSpace(ffmpegCommand)
	if !strings.ContainsRune(ffmpegCommand, os.PathSeparator) {
		return ffprobeCommand
	}
	candidate := filepath.Join(filepath.Dir(ffmpegCommand), executableName("ffprobe"))
	if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
		return candidate
	}
	return ffprobeCommand
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
