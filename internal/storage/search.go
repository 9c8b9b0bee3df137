/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes the in-workspace search request.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Filters are optional. Speaker is a character handle without the leading @.
// Kinds can restrict to: dialogue, stage_direction, cue, comment.
// LineFrom/To are inclusive source line bounds; 0 means unset.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text     string
	Speaker  string
	Act      string
	Scene    string
	Kinds    []string
	LineFrom int
	LineTo   int
	Limit    int
	Offset   int
}

// SearchResult represents a single match row.
// Snippet is an optional highlighted excerpt using [ ] markers when FTS text is used.
type SearchResult struct {
	LineID    int64
	PlayPath  string
	Kind      string
	Act       string
	Scene     string
	Speaker   string
	StartLine int
	Snippet   string
}

// Search performs full-text search with optional filters over the embedded index.
// When q.Text is empty, it falls back to a non-FTS scan over lines with filters applied.
func Search(ctx context.Context, root string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	// Build dynamic SQL
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT l.line_id, p.path, l.kind, COALESCE(l.act,''), COALESCE(l.scene,''), COALESCE(l.speaker,''), l.start_line, snippet(fts_lines, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_lines JOIN lines l ON fts_lines.rowid = l.line_id JOIN plays p ON p.play_id = l.play_id\n")
		sb.WriteString("WHERE fts_lines MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT l.line_id, p.path, l.kind, COALESCE(l.act,''), COALESCE(l.scene,''), COALESCE(l.speaker,''), l.start_line, ''\n")
		sb.WriteString("FROM lines l JOIN plays p ON p.play_id = l.play_id\nWHERE 1=1\n")
	}
	// Kinds filter (IN list)
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND l.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	// Line range
	if q.LineFrom > 0 && q.LineTo > 0 && q.LineTo >= q.LineFrom {
		sb.WriteString(" AND l.start_line BETWEEN ? AND ?\n")
		args = append(args, q.LineFrom, q.LineTo)
	} else if q.LineFrom > 0 {
		sb.WriteString(" AND l.start_line >= ?\n")
		args = append(args, q.LineFrom)
	} else if q.LineTo > 0 {
		sb.WriteString(" AND l.start_line <= ?\n")
		args = append(args, q.LineTo)
	}
	// Speaker filter: exact handle within the comma-joined speaker list
	if s := strings.TrimSpace(q.Speaker); s != "" {
		sb.WriteString(" AND (l.speaker = ? OR l.speaker LIKE ? OR l.speaker LIKE ? OR l.speaker LIKE ?)\n")
		args = append(args, s, s+",%", "%,"+s, "%,"+s+",%")
	}
	// Act/scene filters match heading titles case-insensitively
	if s := strings.TrimSpace(q.Act); s != "" {
		sb.WriteString(" AND lower(COALESCE(l.act,'')) = ?\n")
		args = append(args, strings.ToLower(s))
	}
	if s := strings.TrimSpace(q.Scene); s != "" {
		sb.WriteString(" AND lower(COALESCE(l.scene,'')) = ?\n")
		args = append(args, strings.ToLower(s))
	}
	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY p.path, l.start_line, l.line_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.LineID, &r.PlayPath, &r.Kind, &r.Act, &r.Scene, &r.Speaker, &r.StartLine, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CharacterRow is one registry entry as stored in the index.
type CharacterRow struct {
	PlayPath  string
	Name      string
	FirstLine int
	FirstUse  string
}

// Characters lists the registered characters across indexed plays,
// optionally restricted to one play path.
func Characters(ctx context.Context, root, playPath string) ([]CharacterRow, error) {
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	q := `SELECT p.path, c.name, c.first_line, c.first_use
		FROM characters c JOIN plays p ON p.play_id = c.play_id`
	var args []any
	if strings.TrimSpace(playPath) != "" {
		q += ` WHERE p.path = ?`
		args = append(args, playPath)
	}
	q += ` ORDER BY p.path, c.first_line, c.name`
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("characters query: %w", err)
	}
	defer rows.Close()
	var out []CharacterRow
	for rows.Next() {
		var r CharacterRow
		if err := rows.Scan(&r.PlayPath, &r.Name, &r.FirstLine, &r.FirstUse); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
