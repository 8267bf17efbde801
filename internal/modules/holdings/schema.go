package holdings

import "database/sql"

// Sessions are incidental-reload insurance, not a source of truth:
// one row per session holding the serialized collection.
const SessionsSchema = `
CREATE TABLE IF NOT EXISTS portfolio_sessions (
    session_id TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    saved_at TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(SessionsSchema)
	return err
}
