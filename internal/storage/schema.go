package storage

import "database/sql"

// Groups keep a surrogate seq so that listing follows insertion order
// independently of the channel IDs.
const schema = `
CREATE TABLE IF NOT EXISTS templates (
    code TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    resource_url TEXT NOT NULL DEFAULT '',
    overview TEXT NOT NULL DEFAULT '',
    call_to_action TEXT NOT NULL DEFAULT '',
    author_name TEXT,
    author_support_platform TEXT,
    author_support_platform_url TEXT,
    index_chat_id INTEGER NOT NULL DEFAULT 0,
    index_message_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id INTEGER NOT NULL UNIQUE,
    template TEXT NOT NULL REFERENCES templates(code),
    status TEXT NOT NULL,
    clean INTEGER NOT NULL DEFAULT 1,
    invite_link TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_groups_selection ON groups(template, status, clean);
`

// InitSchema initializes the database schema
func InitSchema(queue *DBQueue) error {
	return queue.Execute(func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}
