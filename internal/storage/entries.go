package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"skein/internal/transcript"
)

// AppendEntry appends a transcript entry for a session.
func (db *DB) AppendEntry(sessionID, role, content string) (*transcript.Entry, error) {
	entry := &transcript.Entry{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}

	_, err := db.Exec(
		"INSERT INTO entries (id, session_id, role, content, summary, summary_retention, created_at) VALUES (?, ?, ?, ?, NULL, 0, ?)",
		entry.ID, entry.SessionID, entry.Role, entry.Content, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}

	return entry, nil
}

// Entries returns all entries for a session ordered oldest to newest.
// Implements transcript.Store.
func (db *DB) Entries(sessionID string) ([]*transcript.Entry, error) {
	rows, err := db.Query(`
SELECT id, session_id, role, content, summary, summary_retention, created_at
FROM entries
WHERE session_id = ?
ORDER BY created_at ASC, id ASC
`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*transcript.Entry
	for rows.Next() {
		var e transcript.Entry
		var summary sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Role, &e.Content, &summary, &e.SummaryRetention, &e.CreatedAt); err != nil {
			return nil, err
		}
		if summary.Valid {
			e.Summary = summary.String
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// AttachSummary records a summary for an existing entry. The original content
// is left untouched. Implements transcript.Store.
func (db *DB) AttachSummary(entryID, summary string, retention float64) error {
	result, err := db.Exec(
		"UPDATE entries SET summary = ?, summary_retention = ? WHERE id = ?",
		summary, retention, entryID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// SessionIDs returns the distinct session identifiers present in the store.
func (db *DB) SessionIDs() ([]string, error) {
	rows, err := db.Query("SELECT DISTINCT session_id FROM entries ORDER BY session_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
