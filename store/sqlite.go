package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/gptchat/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and migrates) the cache database at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	inMemory := dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	if !inMemory && !strings.HasPrefix(dsn, "file:") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if inMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chats (
			user_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			assistant_id TEXT NOT NULL,
			name TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (user_id, thread_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_user ON chats(user_id, position)`,
		`CREATE TABLE IF NOT EXISTS messages (
			user_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			message_id TEXT NOT NULL,
			body TEXT NOT NULL,
			PRIMARY KEY (user_id, thread_id, position)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveChats replaces the cached chats of a user, keeping their order.
func (s *SQLiteStore) SaveChats(ctx context.Context, userID string, chats []domain.Chat) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chats WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear chats: %w", err)
	}
	for i, c := range chats {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chats (user_id, thread_id, assistant_id, name, updated_at, position) VALUES (?, ?, ?, ?, ?, ?)`,
			userID, c.ThreadID, c.AssistantID, c.Name, c.UpdatedAt.UTC(), i)
		if err != nil {
			return fmt.Errorf("failed to insert chat %s: %w", c.ThreadID, err)
		}
	}
	return tx.Commit()
}

// ListChats returns the cached chats of a user in saved order.
func (s *SQLiteStore) ListChats(ctx context.Context, userID string) ([]domain.Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thread_id, assistant_id, name, updated_at FROM chats WHERE user_id = ? ORDER BY position`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []domain.Chat{}
	for rows.Next() {
		var c domain.Chat
		if err := rows.Scan(&c.ThreadID, &c.AssistantID, &c.Name, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// SaveMessages replaces the cached messages of a thread.
func (s *SQLiteStore) SaveMessages(ctx context.Context, userID, threadID string, msgs []domain.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ? AND thread_id = ?`, userID, threadID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	for i, m := range msgs {
		body, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to encode message %s: %w", m.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (user_id, thread_id, position, message_id, body) VALUES (?, ?, ?, ?, ?)`,
			userID, threadID, i, m.ID, string(body))
		if err != nil {
			return fmt.Errorf("failed to insert message %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// GetMessages returns the cached messages of a thread in order.
func (s *SQLiteStore) GetMessages(ctx context.Context, userID, threadID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM messages WHERE user_id = ? AND thread_id = ? ORDER BY position`,
		userID, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var m domain.Message
		if err := json.Unmarshal([]byte(body), &m); err != nil {
			return nil, fmt.Errorf("failed to decode cached message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteThread drops the cached messages and chat entry of a thread.
func (s *SQLiteStore) DeleteThread(ctx context.Context, userID, threadID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE user_id = ? AND thread_id = ?`, userID, threadID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE user_id = ? AND thread_id = ?`, userID, threadID)
	return err
}
