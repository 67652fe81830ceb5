package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/studychat-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	user       TEXT NOT NULL,
	text       TEXT,
	file_name  TEXT,
	file_path  TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at, seq);
`

// SQLiteStore implements store.MessageStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; this also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate applies the messages schema. It is safe to run repeatedly.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append persists a message.
func (s *SQLiteStore) Append(ctx context.Context, msg store.Message) (store.Message, error) {
	query := `
		INSERT INTO messages (id, user, text, file_name, file_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	var fileName, filePath sql.NullString
	if msg.File != nil {
		fileName = sql.NullString{String: msg.File.Name, Valid: true}
		filePath = sql.NullString{String: msg.File.Path, Valid: true}
	}
	var text sql.NullString
	if msg.Text != nil {
		text = sql.NullString{String: *msg.Text, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.User, text, fileName, filePath, msg.CreatedAt.UTC())
	if err != nil {
		return store.Message{}, store.Wrap("append", fmt.Errorf("insert message: %w", err))
	}
	return msg, nil
}

// ListAll retrieves the full history in chronological order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]store.Message, error) {
	query := `
		SELECT id, user, text, file_name, file_path, created_at
		FROM messages
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, store.Wrap("list", fmt.Errorf("query messages: %w", err))
	}
	defer rows.Close()

	messages := make([]store.Message, 0)
	for rows.Next() {
		var (
			msg                   store.Message
			text, fileName, fPath sql.NullString
			createdAt             time.Time
		)
		if err := rows.Scan(&msg.ID, &msg.User, &text, &fileName, &fPath, &createdAt); err != nil {
			return nil, store.Wrap("list", fmt.Errorf("scan message: %w", err))
		}
		if text.Valid {
			t := text.String
			msg.Text = &t
		}
		if fileName.Valid || fPath.Valid {
			msg.File = &store.Attachment{Name: fileName.String, Path: fPath.String}
		}
		msg.CreatedAt = createdAt
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list", err)
	}
	return messages, nil
}
