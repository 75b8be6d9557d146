package store

import "time"

// TaskStatus represents the lifecycle state of a video task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskError      TaskStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskError
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskProcessing, TaskCompleted, TaskError:
		return true
	}
	return false
}

// TaskKind distinguishes rendered tasks from imported footage.
type TaskKind string

const (
	TaskKindRender TaskKind = "render"
	TaskKindImport TaskKind = "import"
)

// Task is one render or import job for a highlight.
type Task struct {
	ID            string     `json:"id"`
	HighlightID   string     `json:"highlight_id"`
	Kind          TaskKind   `json:"kind"`
	RecordingPath string     `json:"recording_path,omitempty"`
	TemplateID    string     `json:"template_id"`
	Strategy      string     `json:"strategy,omitempty"`
	Status        TaskStatus `json:"status"`
	Progress      float64    `json:"progress"`
	OutputPath    string     `json:"output_path,omitempty"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	ErrorMessage  string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// MapCount is the number of ingested matches played on one map.
type MapCount struct {
	MapName string `json:"map_name"`
	Matches int    `json:"matches"`
}

// Stats summarises the library.
type Stats struct {
	TotalMatches       int        `json:"total_matches"`
	TotalRounds        int        `json:"total_rounds"`
	TotalKills         int        `json:"total_kills"`
	TotalHighlights    int        `json:"total_highlights"`
	RenderedHighlights int        `json:"rendered_highlights"`
	Maps               []MapCount `json:"maps"`
}

// PlayerMatch is one row of a player's match history.
type PlayerMatch struct {
	MatchID   string    `json:"match_id"`
	MapName   string    `json:"map_name"`
	MatchDate time.Time `json:"match_date"`
	Name      string    `json:"player_name"`
	Team      string    `json:"team"`
	Kills     int       `json:"kills"`
	Deaths    int       `json:"deaths"`
	Assists   int       `json:"assists"`
	Headshots int       `json:"headshots"`
	Damage    int       `json:"damage"`
}
