package holdings

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository persists the serialized holding collection keyed by
// session, so the dashboard survives incidental reloads.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new session repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// Save upserts the holding collection for a session
func (r *Repository) Save(sessionID string, hs []Holding) error {
	payload, err := json.Marshal(hs)
	if err != nil {
		return fmt.Errorf("failed to serialize holdings: %w", err)
	}

	savedAt := time.Now().UTC().Format(time.RFC3339Nano)

	query := `
		INSERT INTO portfolio_sessions (session_id, payload, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at
	`

	if _, err := r.db.Exec(query, sessionID, string(payload), savedAt); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	r.log.Debug().
		Str("session_id", sessionID).
		Int("holdings", len(hs)).
		Msg("Session saved")

	return nil
}

// Load returns the holding collection for a session and the time it was
// saved. A missing session yields an empty collection, not an error.
func (r *Repository) Load(sessionID string) ([]Holding, time.Time, error) {
	query := `SELECT payload, saved_at FROM portfolio_sessions WHERE session_id = ?`

	var payload, savedAtStr string
	err := r.db.QueryRow(query, sessionID).Scan(&payload, &savedAtStr)
	if err == sql.ErrNoRows {
		return []Holding{}, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load session: %w", err)
	}

	var hs []Holding
	if err := json.Unmarshal([]byte(payload), &hs); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to deserialize holdings: %w", err)
	}

	savedAt, err := time.Parse(time.RFC3339Nano, savedAtStr)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse saved_at: %w", err)
	}

	return hs, savedAt, nil
}

// Delete removes a session
func (r *Repository) Delete(sessionID string) error {
	if _, err := r.db.Exec(`DELETE FROM portfolio_sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
