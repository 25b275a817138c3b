package orchestrator

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"surooh/app/core/orchestrator/db"
)

// Task lifecycle states. Transitions only move forward:
// pending -> running -> completed | failed.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var (
	ErrUnknownAgent  = errors.New("orchestrator: unknown agent")
	ErrRoutingFailed = errors.New("orchestrator: no agent category matched")
	ErrTaskNotFound  = errors.New("orchestrator: task not found")
	ErrBadTransition = errors.New("orchestrator: invalid status transition")
)

// Task is one tracked unit of work dispatched to a worker agent.
type Task struct {
	ID        string    `json:"task_id"`
	Agent     string    `json:"agent"`
	Category  string    `json:"category"`
	Payload   string    `json:"payload"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Result    string    `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts"`
	TraceID   string    `json:"trace_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Store persists task records in sqlite. Status updates are guarded by the
// current status in the WHERE clause, so a terminal record can never
// regress under concurrent dispatchers.
type Store struct {
	database *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{database: database}
}

func (s *Store) Insert(task Task) error {
	_, err := s.database.Conn().Exec(`
INSERT INTO tasks (id, agent, category, payload, priority, status, result, error, attempts, trace_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, '', '', 0, ?, ?, ?)`,
		task.ID, task.Agent, task.Category, task.Payload, task.Priority, task.Status,
		task.TraceID, task.CreatedAt.Unix(), task.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *Store) MarkRunning(taskID string) error {
	return s.transition(taskID, `
UPDATE tasks SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusRunning, time.Now().Unix(), taskID, StatusPending)
}

func (s *Store) MarkCompleted(taskID string, result string) error {
	return s.transition(taskID, `
UPDATE tasks SET status = ?, result = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusCompleted, result, time.Now().Unix(), taskID, StatusRunning)
}

// MarkFailed records the error and bumps the attempt counter. Allowed from
// pending as well so enqueue-time failures are observable.
func (s *Store) MarkFailed(taskID string, errMsg string) error {
	return s.transition(taskID, `
UPDATE tasks SET status = ?, error = ?, attempts = attempts + 1, updated_at = ? WHERE id = ? AND status IN (?, ?)`,
		StatusFailed, errMsg, time.Now().Unix(), taskID, StatusPending, StatusRunning)
}

func (s *Store) transition(taskID string, query string, args ...any) error {
	res, err := s.database.Conn().Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := s.Get(taskID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: task %s", ErrBadTransition, taskID)
	}
	return nil
}

func (s *Store) Get(taskID string) (Task, error) {
	row := s.database.Conn().QueryRow(`
SELECT id, agent, category, payload, priority, status, result, error, attempts, trace_id, created_at, updated_at
FROM tasks WHERE id = ?`, taskID)
	return scanTask(row)
}

// Recent returns the newest tasks, most recently created first.
func (s *Store) Recent(limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.database.Conn().Query(`
SELECT id, agent, category, payload, priority, status, result, error, attempts, trace_id, created_at, updated_at
FROM tasks ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// CountByStatus reports task totals per lifecycle state.
func (s *Store) CountByStatus() (map[string]int, error) {
	rows, err := s.database.Conn().Query(`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var createdAt, updatedAt int64
	err := row.Scan(&task.ID, &task.Agent, &task.Category, &task.Payload, &task.Priority,
		&task.Status, &task.Result, &task.Error, &task.Attempts, &task.TraceID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Task{}, ErrTaskNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("scan task: %w", err)
	}
	task.CreatedAt = time.Unix(createdAt, 0)
	task.UpdatedAt = time.Unix(updatedAt, 0)
	return task, nil
}
