// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package format

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver, CGO-free
)

// SQLiteExtractor opens the database read-only and yields one chunk
// per (table, column) pair, joining every row's value in that column
// with newlines. modernc.org/sqlite is a pure-Go driver, keeping the
// build CGO-free like the rest of the teacher's stack.
type SQLiteExtractor struct{}

type sqliteColumnSeq struct {
	db      *sql.DB
	columns []sqliteColumn
	pos     int
}

type sqliteColumn struct {
	table, name string
}

func (SQLiteExtractor) Extract(path string) (TextOutput, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return TextOutput{}, extractionErr(path, err)
	}

	cols, err := listTextColumns(db)
	if err != nil {
		db.Close()
		return TextOutput{}, extractionErr(path, err)
	}

	return Lazy(&sqliteColumnSeq{db: db, columns: cols}), nil
}

func listTextColumns(db *sql.DB) ([]sqliteColumn, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
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
		tables = append(tables, name)
	}

	var cols []sqliteColumn
	for _, table := range tables {
		colRows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
		if err != nil {
			continue
		}
		for colRows.Next() {
			var cid int
			var name, colType string
			var notNull, pk int
			var dflt sql.NullString
			if err := colRows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
				continue
			}
			// TEXT, BLOB declared-as-text, and untyped columns can hold PII;
			// numeric/integer affinity columns are skipped as low-value noise.
			if colType == "" || strings.Contains(strings.ToUpper(colType), "CHAR") ||
				strings.Contains(strings.ToUpper(colType), "TEXT") || strings.Contains(strings.ToUpper(colType), "CLOB") {
				cols = append(cols, sqliteColumn{table: table, name: name})
			}
		}
		colRows.Close()
	}
	return cols, nil
}

func (s *sqliteColumnSeq) Next() (string, bool, error) {
	for s.pos < len(s.columns) {
		col := s.columns[s.pos]
		s.pos++

		rows, err := s.db.Query(fmt.Sprintf("SELECT %q FROM %q", col.name, col.table))
		if err != nil {
			continue
		}
		var b strings.Builder
		for rows.Next() {
			var v sql.NullString
			if err := rows.Scan(&v); err == nil && v.Valid {
				b.WriteString(v.String)
				b.WriteByte('\n')
			}
		}
		rows.Close()
		if b.Len() == 0 {
			continue
		}
		return b.String(), true, nil
	}
	return "", false, nil
}

func (s *sqliteColumnSeq) Close() error { return s.db.Close() }
