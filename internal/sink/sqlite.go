package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/ricesearch/rice-chunker/internal/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	path        TEXT NOT NULL,
	language    TEXT NOT NULL,
	chunk_index INTEGER NOT NULL,
	content     TEXT NOT NULL,
	start_line  INTEGER NOT NULL,
	end_line    INTEGER NOT NULL,
	start_byte  INTEGER NOT NULL,
	end_byte    INTEGER NOT NULL,
	overlap_len INTEGER NOT NULL,
	oversized   INTEGER NOT NULL DEFAULT 0,
	fallback    INTEGER NOT NULL DEFAULT 0,
	metadata    TEXT,
	indexed_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_path ON chunks(path);
`

// SQLiteSink stores records in a single chunks table, replacing rows with
// the same chunk ID.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.SinkError("failed to open sqlite database", err)
	}

	// SQLite benefits from a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, errors.SinkError("failed to enable WAL mode", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.SinkError("failed to apply schema", err)
	}
	return &SQLiteSink{db: db}, nil
}

// Write upserts the batch in one transaction.
func (s *SQLiteSink) Write(ctx context.Context, records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.SinkError("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (
			id, document_id, path, language, chunk_index, content,
			start_line, end_line, start_byte, end_byte, overlap_len,
			oversized, fallback, metadata, indexed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.SinkError("failed to prepare insert", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		meta, merr := json.Marshal(r.Metadata)
		if merr != nil {
			return errors.Wrap(errors.CodeInternal, "failed to marshal metadata", merr)
		}
		if _, err = stmt.ExecContext(ctx,
			r.ID, r.DocumentID, r.Path, r.Language, r.Index, r.Content,
			r.StartLine, r.EndLine, r.StartByte, r.EndByte, r.OverlapLen,
			r.Oversized, r.Fallback, string(meta), r.IndexedAt,
		); err != nil {
			return errors.SinkError(fmt.Sprintf("failed to insert chunk %s", r.ID), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.SinkError("failed to commit transaction", err)
	}
	return nil
}

// DeletePath removes every row of path.
func (s *SQLiteSink) DeletePath(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE path = ?", path); err != nil {
		return errors.SinkError("failed to delete chunks", err)
	}
	return nil
}

// Count returns the number of stored rows, optionally limited to one path.
func (s *SQLiteSink) Count(ctx context.Context, path string) (int, error) {
	query, args := "SELECT COUNT(*) FROM chunks", []any{}
	if path != "" {
		query += " WHERE path = ?"
		args = append(args, path)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, errors.SinkError("failed to count chunks", err)
	}
	return n, nil
}

// Chunks returns the stored contents of path in chunk order.
func (s *SQLiteSink) Chunks(ctx context.Context, path string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, path, language, chunk_index, content,
		       start_line, end_line, start_byte, end_byte, overlap_len, oversized, fallback, metadata
		FROM chunks WHERE path = ? ORDER BY chunk_index`, path)
	if err != nil {
		return nil, errors.SinkError("failed to query chunks", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var meta sql.NullString
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.Path, &r.Language, &r.Index, &r.Content,
			&r.StartLine, &r.EndLine, &r.StartByte, &r.EndByte, &r.OverlapLen, &r.Oversized, &r.Fallback, &meta); err != nil {
			return nil, errors.SinkError("failed to scan chunk", err)
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &r.Metadata); err != nil {
				return nil, errors.Wrap(errors.CodeInternal, "failed to decode metadata", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
