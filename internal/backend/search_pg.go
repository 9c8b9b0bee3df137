/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"stagescript/internal/storage"
)

// SearchPG executes a search over the Postgres lines table using tsvector and filters
// and returns results mapped to storage.SearchResult to ease parity checks with the
// embedded index. PlayPath carries the play title on this side.
func SearchPG(ctx context.Context, db *sql.DB, playID int64, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		b.WriteString("SELECT l.id AS line_id, p.title AS play_path, l.kind, COALESCE(l.act,''), COALESCE(l.scene,''), COALESCE(l.speaker,''), l.start_line, ")
		b.WriteString("COALESCE(ts_headline('simple', COALESCE(l.raw_text,''), plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') AS snippet ")
		b.WriteString("FROM lines l JOIN plays p ON p.id = l.play_id WHERE l.play_id = $2 AND l.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text, playID)
	} else {
		b.WriteString("SELECT l.id AS line_id, p.title AS play_path, l.kind, COALESCE(l.act,''), COALESCE(l.scene,''), COALESCE(l.speaker,''), l.start_line, '' AS snippet ")
		b.WriteString("FROM lines l JOIN plays p ON p.id = l.play_id WHERE l.play_id = $1 ")
		args = append(args, playID)
	}

	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// Kinds filter
	if len(q.Kinds) > 0 {
		b.WriteString(" AND l.kind = ANY (" + place(q.Kinds) + ") ")
	}
	// Line range
	if q.LineFrom > 0 && q.LineTo > 0 && q.LineTo >= q.LineFrom {
		b.WriteString(" AND l.start_line BETWEEN " + place(q.LineFrom) + " AND " + place(q.LineTo) + " ")
	} else if q.LineFrom > 0 {
		b.WriteString(" AND l.start_line >= " + place(q.LineFrom) + " ")
	} else if q.LineTo > 0 {
		b.WriteString(" AND l.start_line <= " + place(q.LineTo) + " ")
	}
	// Speaker filter: exact handle within the comma-joined speaker list
	if s := strings.TrimSpace(q.Speaker); s != "" {
		b.WriteString(" AND " + place(s) + " = ANY (string_to_array(COALESCE(l.speaker,''), ',')) ")
	}
	// Act/scene filters match heading titles case-insensitively
	if s := strings.TrimSpace(q.Act); s != "" {
		b.WriteString(" AND lower(COALESCE(l.act,'')) = " + place(strings.ToLower(s)) + " ")
	}
	if s := strings.TrimSpace(q.Scene); s != "" {
		b.WriteString(" AND lower(COALESCE(l.scene,'')) = " + place(strings.ToLower(s)) + " ")
	}
	// Order and pagination
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY l.start_line, l.id ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.LineID, &r.PlayPath, &r.Kind, &r.Act, &r.Scene, &r.Speaker, &r.StartLine, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
