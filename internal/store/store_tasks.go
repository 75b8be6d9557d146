package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const taskColumns = "id, highlight_id, kind, recording_path, template_id, strategy, status, progress, output_path, thumbnail_path, error_message, created_at, updated_at, completed_at"

// SaveTask inserts or overwrites a task snapshot.
func (s *Store) SaveTask(ctx context.Context, task Task) error {
	if task.ID == "" {
		return errors.New("task id is empty")
	}
	if !task.Status.Valid() {
		return fmt.Errorf("task %s: invalid status %q", task.ID, task.Status)
	}
	kind := task.Kind
	if kind == "" {
		kind = TaskKindRender
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO video_tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
            strategy = excluded.strategy,
            status = excluded.status,
            progress = excluded.progress,
            output_path = excluded.output_path,
            thumbnail_path = excluded.thumbnail_path,
            error_message = excluded.error_message,
            updated_at = excluded.updated_at,
            completed_at = excluded.completed_at`,
		task.ID,
		task.HighlightID,
		string(kind),
		nullableString(task.RecordingPath),
		task.TemplateID,
		nullableString(task.Strategy),
		string(task.Status),
		task.Progress,
		nullableString(task.OutputPath),
		nullableString(task.ThumbnailPath),
		nullableString(task.ErrorMessage),
		formatTime(task.CreatedAt),
		time.Now().UTC().Format(time.RFC3339Nano),
		nullableTime(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask fetches a task by id. It returns nil, nil when absent.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+taskColumns+` FROM video_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns tasks newest first, optionally filtered by status.
func (s *Store) ListTasks(ctx context.Context, statuses ...TaskStatus) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM video_tasks`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *task)
	}
	return out, rows.Err()
}

// DeleteTask removes a task row. It reports whether a row was removed.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM video_tasks WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FailInterruptedTasks marks tasks left pending or processing by a previous
// process as failed. It returns the number of rows changed.
func (s *Store) FailInterruptedTasks(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE video_tasks SET status = ?, error_message = ?, updated_at = ?, completed_at = ?
         WHERE status IN (?, ?)`,
		string(TaskError), "interrupted by shutdown", now, now,
		string(TaskPending), string(TaskProcessing),
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted tasks: %w", err)
	}
	return res.RowsAffected()
}

func scanTask(sc scanner) (*Task, error) {
	var (
		task         Task
		kind         string
		status       string
		recording    sql.NullString
		strategy     sql.NullString
		output       sql.NullString
		thumb        sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)
	if err := sc.Scan(
		&task.ID,
		&task.HighlightID,
		&kind,
		&recording,
		&task.TemplateID,
		&strategy,
		&status,
		&task.Progress,
		&output,
		&thumb,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}
	task.Kind = TaskKind(kind)
	task.Status = TaskStatus(status)
	task.RecordingPath = recording.String
	task.Strategy = strategy.String
	task.OutputPath = output.String
	task.ThumbnailPath = thumb.String
	task.ErrorMessage = errorMessage.String
	if t, err := parseTimeString(createdRaw.String); err == nil {
		task.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw.String); err == nil {
		task.UpdatedAt = t
	}
	if completedRaw.Valid {
		if t, err := parseTimeString(completedRaw.String); err == nil {
			task.CompletedAt = &t
		}
	}
	return &task, nil
}
