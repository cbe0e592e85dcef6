package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fwojciec/ochat"
)

// legacyTable matches the per-conversation tables written by earlier
// versions of the app. Only names matching it are ever quoted into
// SQL.
var legacyTable = regexp.MustCompile(`^chat_[0-9]+$`)

// legacyTimeLayouts are the formats SQLite's CURRENT_TIMESTAMP default and
// the driver's own DATETIME encoding produce.
var legacyTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
}

// LegacyImport reports one migrated legacy table.
type LegacyImport struct {
	Table   string
	ID      ochat.ConversationID
	Turns   int
	Skipped int
}

// MigrateLegacy imports every chat_<n> table into the conversations and
// turns tables and drops it. Conversation n keeps id n unless that id is
// already taken, in which case a new id is allocated. Turns keep their
// stored order. Each table is migrated in its own transaction.
func (s *Store) MigrateLegacy(ctx context.Context) ([]LegacyImport, error) {
	tables, err := s.legacyTables(ctx)
	if err != nil {
		return nil, &ochat.StorageError{Op: "migrate legacy", Err: err}
	}
	imports := make([]LegacyImport, 0, len(tables))
	for _, table := range tables {
		imp, err := s.migrateTable(ctx, table)
		if err != nil {
			return imports, &ochat.StorageError{Op: "migrate legacy", Err: fmt.Errorf("%s: %w", table, err)}
		}
		s.logger.Info("legacy table migrated", "table", table, "conversation", imp.ID,
			"turns", imp.Turns, "skipped", imp.Skipped)
		imports = append(imports, imp)
	}
	return imports, nil
}

func (s *Store) legacyTables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'chat\_%' ESCAPE '\' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if legacyTable.MatchString(name) {
			tables = append(tables, name)
		}
	}
	return tables, rows.Err()
}

func (s *Store) migrateTable(ctx context.Context, table string) (LegacyImport, error) {
	imp := LegacyImport{Table: table}
	id, err := ochat.ParseConversationID(table)
	if err != nil {
		return imp, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return imp, err
	}
	defer tx.Rollback()

	var taken int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?`, int64(id)).Scan(&taken)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err := ensureConversation(ctx, tx, id, s.now()); err != nil {
			return imp, err
		}
	case err != nil:
		return imp, err
	default:
		res, err := tx.ExecContext(ctx, `INSERT INTO conversations (created_at) VALUES (?)`, s.now().UnixNano())
		if err != nil {
			return imp, err
		}
		n, err := res.LastInsertId()
		if err != nil {
			return imp, err
		}
		id = ochat.ConversationID(n)
	}
	imp.ID = id

	quoted := `"` + table + `"`
	rows, err := tx.QueryContext(ctx, `SELECT role, content, timestamp FROM `+quoted+` ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return imp, err
	}
	type legacyRow struct {
		role    sql.NullString
		content sql.NullString
		stamp   any
	}
	var legacy []legacyRow
	for rows.Next() {
		var r legacyRow
		if err := rows.Scan(&r.role, &r.content, &r.stamp); err != nil {
			rows.Close()
			return imp, err
		}
		legacy = append(legacy, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return imp, err
	}
	rows.Close()

	for _, r := range legacy {
		role, err := ochat.ParseRole(r.role.String)
		if err != nil {
			imp.Skipped++
			continue
		}
		if _, err := insertTurn(ctx, tx, id, role, r.content.String, s.legacyTime(r.stamp)); err != nil {
			return imp, err
		}
		imp.Turns++
	}

	if _, err := tx.ExecContext(ctx, `DROP TABLE `+quoted); err != nil {
		return imp, err
	}
	return imp, tx.Commit()
}

// legacyTime converts a scanned DATETIME value. Unparseable or missing
// values fall back to the store clock; insertTurn keeps the order intact
// either way.
func (s *Store) legacyTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		return s.legacyTime(string(t))
	case string:
		t = strings.TrimSpace(t)
		for _, layout := range legacyTimeLayouts {
			if parsed, err := time.ParseInLocation(layout, t, time.UTC); err == nil {
				return parsed
			}
		}
	}
	return s.now()
}
