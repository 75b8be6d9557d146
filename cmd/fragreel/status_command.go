package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"fragreel/internal/config"
	"fragreel/internal/deps"
	"fragreel/internal/preflight"
	"fragreel/internal/store"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

type statusReport struct {
	ConfigPath   string             `json:"config_path"`
	LockHeld     bool               `json:"lock_held"`
	Checks       []preflight.Result `json:"checks"`
	Dependencies []deps.Status      `json:"dependencies"`
	Tasks        map[string]int     `json:"tasks"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show external tools, directories and task counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				report := buildStatus(cmd.Context(), cfg, st)
				report.ConfigPath = ctx.configPath
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				printStatus(cmd.OutOrStdout(), report, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
}

func buildStatus(ctx context.Context, cfg *config.Config, st *store.Store) statusReport {
	report := statusReport{
		LockHeld:     lockHeld(cfg.LockPath()),
		Checks:       preflight.RunAll(ctx, cfg, st),
		Dependencies: preflight.CheckSystemDeps(cfg),
		Tasks:        map[string]int{},
	}
	if tasks, err := st.ListTasks(ctx); err == nil {
		for _, t := range tasks {
			report.Tasks[string(t.Status)]++
		}
	}
	return report
}

func printStatus(out io.Writer, report statusReport, colorize bool) {
	for _, line := range renderSectionHeader("Workspace", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Config", statusInfo, report.ConfigPath, colorize))
	if report.LockHeld {
		fmt.Fprintln(out, renderStatusLine("Server", statusOK, "running (workspace lock held)", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Server", statusInfo, "not running", colorize))
	}
	for _, check := range report.Checks {
		kind := statusOK
		if !check.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Tools", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, dep := range report.Dependencies {
		kind := statusOK
		message := dep.Path
		if !dep.Available {
			kind = statusError
			if dep.Optional {
				kind = statusWarn
			}
			message = dep.Detail + "; " + dep.Description
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, message, colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Tasks", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, status := range []store.TaskStatus{store.TaskPending, store.TaskProcessing, store.TaskCompleted, store.TaskError} {
		count := report.Tasks[string(status)]
		kind := statusInfo
		if status == store.TaskError && count > 0 {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(string(status), kind, fmt.Sprintf("%d", count), colorize))
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
