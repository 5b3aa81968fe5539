package storage

import (
	"database/sql"
	"time"
)

// DebugLog is the persisted projection of one compression attempt.
type DebugLog struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id"`
	Zone           string    `json:"zone"`
	ChunkIndex     int       `json:"chunk_index"`
	ChunkTotal     int       `json:"chunk_total"`
	Backend        string    `json:"backend"`
	Status         string    `json:"status"`
	FallbackReason string    `json:"fallback_reason,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	InputTokens    int       `json:"input_tokens"`
	OutputTokens   int       `json:"output_tokens"`
	DurationMS     int64     `json:"duration_ms"`
	InputPreview   string    `json:"input_preview,omitempty"`
	OutputPreview  string    `json:"output_preview,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// BulkAppendDebugLogs inserts a batch of debug log rows in one transaction.
func (db *DB) BulkAppendDebugLogs(logs []*DebugLog) error {
	if len(logs) == 0 {
		return nil
	}

	return db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
INSERT INTO debug_logs (id, session_id, zone, chunk_index, chunk_total, backend, status,
    fallback_reason, error_message, input_tokens, output_tokens, duration_ms,
    input_preview, output_preview, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, l := range logs {
			_, err := stmt.Exec(
				l.ID, l.SessionID, l.Zone, l.ChunkIndex, l.ChunkTotal, l.Backend, l.Status,
				nullable(l.FallbackReason), nullable(l.ErrorMessage),
				l.InputTokens, l.OutputTokens, l.DurationMS,
				nullable(l.InputPreview), nullable(l.OutputPreview), l.CreatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// RecentDebugLogs returns the newest limit rows in chronological order.
func (db *DB) RecentDebugLogs(limit int) ([]*DebugLog, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := db.Query(`
SELECT id, session_id, zone, chunk_index, chunk_total, backend, status,
    fallback_reason, error_message, input_tokens, output_tokens, duration_ms,
    input_preview, output_preview, created_at
FROM debug_logs
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs, err := scanDebugLogs(rows)
	if err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// DebugLogsByTimeRange returns rows within [from, to] for a session, or for
// all sessions when sessionID is empty.
func (db *DB) DebugLogsByTimeRange(sessionID string, from, to time.Time) ([]*DebugLog, error) {
	query := `
SELECT id, session_id, zone, chunk_index, chunk_total, backend, status,
    fallback_reason, error_message, input_tokens, output_tokens, duration_ms,
    input_preview, output_preview, created_at
FROM debug_logs
WHERE created_at >= ? AND created_at <= ?`
	args := []any{from, to}
	if sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDebugLogs(rows)
}

// DeleteDebugLogsOlderThan removes rows created before the cutoff and returns
// the number deleted.
func (db *DB) DeleteDebugLogsOlderThan(cutoff time.Time) (int64, error) {
	result, err := db.Exec("DELETE FROM debug_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteDebugLogs removes rows for one session, or all rows when sessionID is
// empty.
func (db *DB) DeleteDebugLogs(sessionID string) (int64, error) {
	var result sql.Result
	var err error
	if sessionID == "" {
		result, err = db.Exec("DELETE FROM debug_logs")
	} else {
		result, err = db.Exec("DELETE FROM debug_logs WHERE session_id = ?", sessionID)
	}
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanDebugLogs(rows *sql.Rows) ([]*DebugLog, error) {
	var logs []*DebugLog
	for rows.Next() {
		var l DebugLog
		var fallbackReason, errorMessage, inputPreview, outputPreview sql.NullString
		err := rows.Scan(
			&l.ID, &l.SessionID, &l.Zone, &l.ChunkIndex, &l.ChunkTotal, &l.Backend, &l.Status,
			&fallbackReason, &errorMessage, &l.InputTokens, &l.OutputTokens, &l.DurationMS,
			&inputPreview, &outputPreview, &l.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		l.FallbackReason = fallbackReason.String
		l.ErrorMessage = errorMessage.String
		l.InputPreview = inputPreview.String
		l.OutputPreview = outputPreview.String
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
