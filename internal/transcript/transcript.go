// Package transcript defines the conversation transcript model the engine reads.
package transcript

import "time"

// Role constants for transcript entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleEvent     = "event"
)

// Entry is one conversational turn. The engine never mutates Content; it may
// attach a Summary alongside it.
type Entry struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"session_id"`
	Role             string    `json:"role"`
	Content          string    `json:"content"`
	Summary          string    `json:"summary,omitempty"`
	SummaryRetention float64   `json:"summary_retention,omitempty"` // retention rate the summary was computed at, 0 = none
	CreatedAt        time.Time `json:"created_at"`
}

// Text returns the text that counts against the context budget: the summary
// when one has been attached, the raw content otherwise. An entry folded into
// a neighboring entry's chunk summary carries an empty summary at a non-zero
// retention and contributes nothing.
func (e *Entry) Text() string {
	if e.SummaryRetention > 0 {
		return e.Summary
	}
	return e.Content
}

// Summarized reports whether the entry already carries a summary computed at
// the given retention rate or lower (i.e. at least as aggressive).
func (e *Entry) Summarized(retention float64) bool {
	return e.SummaryRetention > 0 && e.SummaryRetention <= retention
}

// Store is the transcript store boundary. Read access to the ordered entry
// list; write access is limited to attaching summaries. Implementations never
// delete or reorder entries on behalf of the engine.
type Store interface {
	// Entries returns all entries for a session ordered oldest to newest.
	Entries(sessionID string) ([]*Entry, error)

	// AttachSummary records a summary for an existing entry without touching
	// the original content.
	AttachSummary(entryID, summary string, retention float64) error
}
