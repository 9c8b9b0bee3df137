/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stagescript/internal/domain"
	applog "stagescript/internal/log"
	"stagescript/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-workspace ephemeral/index data under the workspace root.
	IndexDirName  = ".stagescript"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 3
)

// IndexPath returns the full path to the workspace's embedded index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-workspace SQLite index exists at .stagescript/index.sqlite,
// opens the database, enables WAL mode, and ensures the meta/version tables exist.
// The returned *sql.DB is ready for use. Callers may close it when no longer needed.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create .stagescript dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .stagescript dir: %w", err)
	}

	path := IndexPath(root)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	uriPath := filepath.ToSlash(path)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", uriPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Set reasonable connection pool limits for embedded usage.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Ensure WAL mode is active.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}

	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	// Seed or update single-row version info
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Insert new row with current schemaVersion for a fresh DB
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Do not downgrade; just continue
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			// Add helpful indexes for speaker and line lookups
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_lines_speaker ON lines(speaker);`,
				`CREATE INDEX IF NOT EXISTS idx_lines_start ON lines(play_id, start_line);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best-effort FTS optimize (outside the tx)
			if _, err := db.ExecContext(ctx, `INSERT INTO fts_lines(fts_lines) VALUES('optimize')`); err != nil {
				// best-effort optimize; ignore errors
			}
		case 3:
			// Replace the earlier contentless FTS table with an
			// external-content one; contentless tables cannot serve
			// snippet(), which the search surface relies on.
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`DROP TABLE IF EXISTS fts_lines;`,
				`CREATE VIRTUAL TABLE fts_lines USING fts5(
					text,
					content='lines',
					content_rowid='line_id',
					tokenize = 'unicode61'
				);`,
				`INSERT INTO fts_lines(fts_lines) VALUES('rebuild');`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
		default:
			// Unknown future step; break
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Plays registered in this workspace, one row per interchange file.
		`CREATE TABLE IF NOT EXISTS plays (
			play_id    INTEGER PRIMARY KEY,
			path       TEXT    NOT NULL UNIQUE,
			title      TEXT,
			indexed_at TEXT    NOT NULL
		);`,

		// Characters discovered per play, keyed by exact handle.
		`CREATE TABLE IF NOT EXISTS characters (
			play_id    INTEGER NOT NULL,
			name       TEXT    NOT NULL,
			first_line INTEGER NOT NULL,
			first_use  TEXT    NOT NULL,
			PRIMARY KEY(play_id, name),
			FOREIGN KEY(play_id) REFERENCES plays(play_id) ON DELETE CASCADE
		);`,

		// Flattened performance content: dialogue, stage directions, cues, comments.
		`CREATE TABLE IF NOT EXISTS lines (
			line_id    INTEGER PRIMARY KEY,
			play_id    INTEGER NOT NULL,
			kind       TEXT    NOT NULL,
			act        TEXT,
			scene      TEXT,
			speaker    TEXT,
			start_line INTEGER NOT NULL,
			text       TEXT,
			FOREIGN KEY(play_id) REFERENCES plays(play_id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lines_play ON lines(play_id);`,
		`CREATE INDEX IF NOT EXISTS idx_lines_kind ON lines(kind);`,

		// External-content FTS5 index over lines.text, kept in sync via
		// triggers. External content (rather than contentless) is required
		// so snippet() can reconstruct the matched text.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_lines USING fts5(
			text,
			content='lines',
			content_rowid='line_id',
			tokenize = 'unicode61'
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	// Triggers for FTS synchronization with lines.text
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS lines_ai AFTER INSERT ON lines BEGIN
			INSERT INTO fts_lines(rowid, text) VALUES (new.line_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS lines_ad AFTER DELETE ON lines BEGIN
			INSERT INTO fts_lines(fts_lines, rowid, text) VALUES ('delete', old.line_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS lines_au AFTER UPDATE OF text ON lines BEGIN
			INSERT INTO fts_lines(fts_lines, rowid, text) VALUES ('delete', old.line_id, old.text);
			INSERT INTO fts_lines(rowid, text) VALUES (new.line_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// IndexDocument replaces the indexed content for the play at path with rows
// derived from doc. It registers the play on first sight.
func IndexDocument(ctx context.Context, root, path string, doc *domain.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return err
	}
	defer db.Close()
	return indexDocumentDB(ctx, db, path, doc)
}

func indexDocumentDB(ctx context.Context, db *sql.DB, path string, doc *domain.Document) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	// Upsert the play row and fetch its id.
	if _, err := tx.ExecContext(ctx, `INSERT INTO plays(path, title, indexed_at) VALUES(?,?,?)
		ON CONFLICT(path) DO UPDATE SET title=excluded.title, indexed_at=excluded.indexed_at`,
		path, doc.Title, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("upsert play: %w", err)
	}
	var playID int64
	if err := tx.QueryRowContext(ctx, `SELECT play_id FROM plays WHERE path=?`, path).Scan(&playID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("read play id: %w", err)
	}
	// Clear derived rows for this play.
	if _, err := tx.ExecContext(ctx, `DELETE FROM lines WHERE play_id=?`, playID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear lines: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM characters WHERE play_id=?`, playID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear characters: %w", err)
	}
	// Characters
	for _, c := range doc.Characters {
		if _, err := tx.ExecContext(ctx, `INSERT INTO characters(play_id, name, first_line, first_use) VALUES(?,?,?,?)`,
			playID, string(c.Name), c.FirstLine, string(c.FirstUse)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert character: %w", err)
		}
	}
	// Flatten the tree into line rows.
	ins, err := tx.PrepareContext(ctx, `INSERT INTO lines(play_id, kind, act, scene, speaker, start_line, text) VALUES(?,?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	insert := func(r LineRow) error {
		_, err := ins.ExecContext(ctx, playID, r.Kind, nullStr(r.Act), nullStr(r.Scene), nullStr(r.Speaker), r.StartLine, r.Text)
		return err
	}
	for _, r := range FlattenDocument(doc) {
		if err := insert(r); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert line: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LineRow is one flattened performance-content row, shared between the
// embedded index and the Postgres backend.
type LineRow struct {
	Kind      string
	Act       string
	Scene     string
	Speaker   string
	StartLine int
	Text      string
}

// FlattenDocument walks the tree in performance order and emits one row per
// element, carrying its act and scene headings.
func FlattenDocument(doc *domain.Document) []LineRow {
	rows := make([]LineRow, 0, 64)
	for _, it := range doc.Items {
		switch v := it.(type) {
		case *domain.Act:
			for _, el := range v.Elements {
				rows = append(rows, flattenElement(el, v.Title, ""))
			}
			for _, sc := range v.Scenes {
				for _, el := range sc.Elements {
					rows = append(rows, flattenElement(el, v.Title, sc.Title))
				}
			}
		case *domain.Scene:
			for _, el := range v.Elements {
				rows = append(rows, flattenElement(el, "", v.Title))
			}
		case domain.Element:
			rows = append(rows, flattenElement(v, "", ""))
		}
	}
	return rows
}

func flattenElement(el domain.Element, act, scene string) LineRow {
	r := LineRow{Kind: string(el.Kind()), Act: act, Scene: scene}
	switch v := el.(type) {
	case domain.Comment:
		r.StartLine = v.Line
		r.Text = v.Text
	case domain.Cue:
		r.StartLine = v.Line
		r.Text = strings.TrimSpace(v.Name + " " + v.Argument)
	case domain.StageDirection:
		r.StartLine = v.Line
		r.Text = PlainText(v.Segments)
	case domain.Dialogue:
		r.StartLine = v.Line
		r.Text = PlainText(v.Segments)
		handles := make([]string, len(v.Speakers))
		for i, sp := range v.Speakers {
			handles[i] = string(sp)
		}
		r.Speaker = strings.Join(handles, ",")
	}
	return r
}

// PlainText flattens segments to their spoken text. Inline directions keep
// their content, mentions render as @handle.
func PlainText(segs []domain.Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		switch v := s.(type) {
		case domain.Text:
			sb.WriteString(v.Text)
		case domain.Mention:
			sb.WriteString("@")
			sb.WriteString(string(v.Character))
		case domain.InlineDirection:
			sb.WriteString(PlainText(v.Segments))
		}
	}
	return sb.String()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, root, path string, doc *domain.Document) (bool, error) {
	ipath := IndexPath(root)
	db, err := InitOrOpenIndex(root)
	if err != nil {
		backupIndexFile(ipath)
		_ = os.Remove(ipath)
		if rbErr := IndexDocument(ctx, root, path, doc); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	defer db.Close()
	needs := false
	// quick_check for corruption
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	// Probe core table
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM lines LIMIT 1;`); err != nil {
			needs = true
		}
	}
	if !needs {
		return false, nil
	}
	backupIndexFile(ipath)
	_ = os.Remove(ipath)
	if err := IndexDocument(ctx, root, path, doc); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .stagescript/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
