package api

import (
	"fragreel/internal/deps"
	"fragreel/internal/match"
	"fragreel/internal/preflight"
	"fragreel/internal/render"
	"fragreel/internal/store"
	"fragreel/internal/workflow"
)

// Status aggregates runtime information for API consumers.
type Status struct {
	Version      string             `json:"version"`
	Degraded     bool               `json:"degraded"`
	DatabasePath string             `json:"database_path"`
	OutputDir    string             `json:"output_dir"`
	Tasks        map[string]int     `json:"tasks"`
	Checks       []preflight.Result `json:"checks"`
	Dependencies []deps.Status      `json:"dependencies"`
}

// MatchListResponse wraps the stored matches.
type MatchListResponse struct {
	Matches []match.Record `json:"matches"`
}

// MatchDetail is one match with its rounds, players and highlights.
type MatchDetail struct {
	Match      match.Record       `json:"match"`
	Rounds     []match.Round      `json:"rounds"`
	Players    []match.PlayerStat `json:"players"`
	Highlights []match.Highlight  `json:"highlights"`
}

// HighlightListResponse wraps highlights for a match or the whole library.
type HighlightListResponse struct {
	Highlights []match.Highlight `json:"highlights"`
}

// TaskResponse wraps a single video task.
type TaskResponse struct {
	Task store.Task `json:"task"`
}

// TaskListResponse wraps video tasks, newest first.
type TaskListResponse struct {
	Tasks []store.Task `json:"tasks"`
}

// TemplateListResponse lists the render templates.
type TemplateListResponse struct {
	Templates []render.Template `json:"templates"`
}

// PlayerHistoryResponse lists a player's per-match statistics.
type PlayerHistoryResponse struct {
	SteamID string              `json:"steam_id"`
	Matches []store.PlayerMatch `json:"matches"`
}

// IngestRequest asks for a recording or a directory of recordings.
type IngestRequest struct {
	Path string `json:"path"`
}

// IngestResponse reports a single file or a batch.
type IngestResponse struct {
	Match *workflow.Summary     `json:"match,omitempty"`
	Batch *workflow.BatchResult `json:"batch,omitempty"`
}

// RenderRequest starts a render. Empty fields use the defaults.
type RenderRequest struct {
	Template      string `json:"template"`
	RecordingPath string `json:"recording_path"`
}

// ImportRequest attaches an externally captured video to a highlight.
type ImportRequest struct {
	Path     string `json:"path"`
	Template string `json:"template"`
}
