// Package sqlite implements ochat.Store on a SQLite database file.
//
// All conversations share two tables: conversations and turns. Turns carry
// a unix-nanosecond timestamp that is strictly increasing within a
// conversation, so reads ordered by (created_at, id) always return turns in
// insertion order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/ochat"
	_ "github.com/mattn/go-sqlite3"
)

// Interface compliance check.
var _ ochat.Store = (*Store)(nil)

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL,
	role            TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
	content         TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id, created_at, id);
`

// Store is a SQLite-backed ochat.Store. It holds a single connection and
// is safe for use by one Session at a time.
type Store struct {
	db     *sql.DB
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp turns.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens (creating if needed) the database at path and brings its
// schema up to date. The parent directory is created when missing.
func Open(path string, opts ...Option) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &ochat.StorageError{Op: "open", Err: fmt.Errorf("create data dir: %w", err)}
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, &ochat.StorageError{Op: "open", Err: err}
	}
	// One connection keeps foreign_keys and transactions on the same handle.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:     db,
		path:   path,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, &ochat.StorageError{Op: "migrate", Err: err}
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return err
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	if version < schemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			return err
		}
		s.logger.Info("schema migrated", "path", s.path, "from", version, "to", schemaVersion)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateConversation allocates a new conversation. Ids come from an
// AUTOINCREMENT key, so an id is never handed out twice even after the
// conversation holding it is deleted.
func (s *Store) CreateConversation(ctx context.Context) (ochat.ConversationID, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (created_at) VALUES (?)`, s.now().UnixNano())
	if err != nil {
		return 0, &ochat.StorageError{Op: "create conversation", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &ochat.StorageError{Op: "create conversation", Err: err}
	}
	return ochat.ConversationID(id), nil
}

// EnsureConversation creates the conversation with the given id unless it
// already exists.
func (s *Store) EnsureConversation(ctx context.Context, id ochat.ConversationID) error {
	if id <= 0 {
		return &ochat.StorageError{Op: "ensure conversation", Err: ochat.ErrInvalidConversationID}
	}
	if err := ensureConversation(ctx, s.db, id, s.now()); err != nil {
		return &ochat.StorageError{Op: "ensure conversation", Err: err}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func ensureConversation(ctx context.Context, db execer, id ochat.ConversationID, now time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (id, created_at) VALUES (?, ?)`, int64(id), now.UnixNano())
	return err
}

// AppendTurn durably appends a turn to an existing conversation. The turn
// is committed before AppendTurn returns.
func (s *Store) AppendTurn(ctx context.Context, id ochat.ConversationID, role ochat.Role, content string) (ochat.Turn, error) {
	if !role.Valid() {
		return ochat.Turn{}, &ochat.StorageError{Op: "append turn", Err: fmt.Errorf("role %q: %w", role, ochat.ErrValidation)}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ochat.Turn{}, &ochat.StorageError{Op: "append turn", Err: err}
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, int64(id)).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ochat.Turn{}, &ochat.StorageError{Op: "append turn", Err: fmt.Errorf("conversation %d: %w", id, ochat.ErrConversationNotFound)}
	}
	if err != nil {
		return ochat.Turn{}, &ochat.StorageError{Op: "append turn", Err: err}
	}

	turn, err := insertTurn(ctx, tx, id, role, content, s.now())
	if err != nil {
		return ochat.Turn{}, &ochat.StorageError{Op: "append turn", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return ochat.Turn{}, &ochat.StorageError{Op: "append turn", Err: err}
	}
	return turn, nil
}

// insertTurn stamps the turn with at, or with one nanosecond past the
// latest turn of the conversation if the clock has not moved past it.
func insertTurn(ctx context.Context, tx *sql.Tx, id ochat.ConversationID, role ochat.Role, content string, at time.Time) (ochat.Turn, error) {
	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM turns WHERE conversation_id = ?`, int64(id)).Scan(&last); err != nil {
		return ochat.Turn{}, err
	}
	stamp := at.UnixNano()
	if last.Valid && stamp <= last.Int64 {
		stamp = last.Int64 + 1
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		int64(id), string(role), content, stamp)
	if err != nil {
		return ochat.Turn{}, err
	}
	turnID, err := res.LastInsertId()
	if err != nil {
		return ochat.Turn{}, err
	}
	return ochat.Turn{
		ID:             turnID,
		ConversationID: id,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Unix(0, stamp),
	}, nil
}

// LoadTurns returns the turns of a conversation in insertion order. An
// unknown conversation yields an empty slice.
func (s *Store) LoadTurns(ctx context.Context, id ochat.ConversationID) ([]ochat.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at
		FROM turns WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
	`, int64(id))
	if err != nil {
		return nil, &ochat.StorageError{Op: "load turns", Err: err}
	}
	defer rows.Close()

	turns := []ochat.Turn{}
	for rows.Next() {
		var (
			t     ochat.Turn
			role  string
			stamp int64
		)
		if err := rows.Scan(&t.ID, &role, &t.Content, &stamp); err != nil {
			return nil, &ochat.StorageError{Op: "load turns", Err: err}
		}
		t.ConversationID = id
		t.Role = ochat.Role(role)
		t.CreatedAt = time.Unix(0, stamp)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &ochat.StorageError{Op: "load turns", Err: err}
	}
	return turns, nil
}

// ListConversations returns the ids of all conversations in ascending order.
func (s *Store) ListConversations(ctx context.Context) ([]ochat.ConversationID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM conversations ORDER BY id ASC`)
	if err != nil {
		return nil, &ochat.StorageError{Op: "list conversations", Err: err}
	}
	defer rows.Close()

	ids := []ochat.ConversationID{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &ochat.StorageError{Op: "list conversations", Err: err}
		}
		ids = append(ids, ochat.ConversationID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, &ochat.StorageError{Op: "list conversations", Err: err}
	}
	return ids, nil
}

// DeleteConversation removes a conversation and its turns. Deleting an
// unknown conversation is a no-op.
func (s *Store) DeleteConversation(ctx context.Context, id ochat.ConversationID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ochat.StorageError{Op: "delete conversation", Err: err}
	}
	defer tx.Rollback()

	// Turns are removed explicitly as well as by cascade so that a database
	// opened without foreign key enforcement is still cleaned up.
	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, int64(id)); err != nil {
		return &ochat.StorageError{Op: "delete conversation", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, int64(id)); err != nil {
		return &ochat.StorageError{Op: "delete conversation", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &ochat.StorageError{Op: "delete conversation", Err: err}
	}
	return nil
}

// Preview summarizes the first assistant turn of a conversation, or
// returns ochat.NoResponsePreview when there is none.
func (s *Store) Preview(ctx context.Context, id ochat.ConversationID) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `
		SELECT content FROM turns
		WHERE conversation_id = ? AND role = 'assistant'
		ORDER BY created_at ASC, id ASC LIMIT 1
	`, int64(id)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return ochat.NoResponsePreview, nil
	}
	if err != nil {
		return "", &ochat.StorageError{Op: "preview", Err: err}
	}
	return ochat.Preview(content), nil
}
