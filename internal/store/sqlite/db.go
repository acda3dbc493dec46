package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/clementinebot/clementine/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_configs (
	room_id       TEXT PRIMARY KEY,
	assistants    TEXT NOT NULL DEFAULT '[]',
	context_size  INTEGER NOT NULL,
	system_prompt TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	answer_id  TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	verdict    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (answer_id, user_id)
);
`

// OpenDB opens (creating if needed) the SQLite database at path and
// ensures the schema exists. WAL mode keeps reads from blocking the
// single writer.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc/sqlite allows one writer at a time; a single connection
	// avoids SQLITE_BUSY under concurrent upserts.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return db, nil
}

// NewSQLiteStores creates all stores backed by a local SQLite file.
func NewSQLiteStores(path string) (*store.Stores, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	return &store.Stores{
		Rooms:    NewSQLiteRoomStore(db),
		Feedback: NewSQLiteFeedbackStore(db),
		DB:       db,
	}, nil
}
