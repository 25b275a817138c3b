package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"surooh/app/core/orchestrator/db"
)

// Exchange is one request/response pair as seen at the gateway boundary.
type Exchange struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	TraceID   string    `json:"trace_id"`
	Request   string    `json:"request"`
	Response  string    `json:"response"`
	Status    string    `json:"status"` // "ok", "degraded", "rejected"
	CreatedAt time.Time `json:"created_at"`

	Confidence int    `json:"confidence,omitempty"`
	TaskID     string `json:"task_id,omitempty"`
}

// Log is the append-only exchange history. Rows are never updated or
// deleted; replay and audit are the only consumers.
type Log struct {
	database *db.DB
}

func NewLog(database *db.DB) *Log {
	return &Log{database: database}
}

// Append writes one exchange. Confidence and task id travel in the meta
// JSON column so the row layout stays stable as reporting needs grow.
func (l *Log) Append(ex Exchange) error {
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}

	meta, err := sjson.Set("", "confidence", ex.Confidence)
	if err != nil {
		return fmt.Errorf("build exchange meta: %w", err)
	}
	if ex.TaskID != "" {
		if meta, err = sjson.Set(meta, "task_id", ex.TaskID); err != nil {
			return fmt.Errorf("build exchange meta: %w", err)
		}
	}

	_, err = l.database.Conn().Exec(`
INSERT INTO exchanges (id, user_id, session_id, trace_id, request, response, status, meta, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.ID, ex.UserID, ex.SessionID, ex.TraceID, ex.Request, ex.Response, ex.Status, meta, ex.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("append exchange: %w", err)
	}
	return nil
}

// History returns exchanges newest first, optionally filtered by user.
func (l *Log) History(userID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
SELECT id, user_id, session_id, trace_id, request, response, status, created_at
FROM exchanges`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := l.database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var createdAt int64
		if err := rows.Scan(&ex.ID, &ex.UserID, &ex.SessionID, &ex.TraceID, &ex.Request, &ex.Response, &ex.Status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan exchange: %w", err)
		}
		ex.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Count reports the total number of logged exchanges.
func (l *Log) Count() (int, error) {
	var count int
	err := l.database.Conn().QueryRow(`SELECT COUNT(*) FROM exchanges`).Scan(&count)
	return count, err
}
