// Package searchindex maintains an optional SQLite FTS5 keyword index
// over each question's root_text/child_text, enabled per
// SearchIndexConfig. It is a side index only: questions.jsonl and
// regions.json remain the source of truth.
package searchindex

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY,
	question_id TEXT NOT NULL UNIQUE,
	exam_code TEXT NOT NULL,
	topic TEXT,
	relative_path TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS question_text (
	question_id TEXT NOT NULL UNIQUE REFERENCES questions(question_id) ON DELETE CASCADE,
	root_text TEXT,
	child_text TEXT
);

CREATE VIRTUAL TABLE IF NOT EXISTS question_text_fts USING fts5(
	root_text,
	child_text,
	content='question_text',
	content_rowid='rowid',
	tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS question_text_ai AFTER INSERT ON question_text BEGIN
	INSERT INTO question_text_fts(rowid, root_text, child_text) VALUES (new.rowid, new.root_text, new.child_text);
END;
CREATE TRIGGER IF NOT EXISTS question_text_ad AFTER DELETE ON question_text BEGIN
	INSERT INTO question_text_fts(question_text_fts, rowid, root_text, child_text) VALUES ('delete', old.rowid, old.root_text, old.child_text);
END;
CREATE TRIGGER IF NOT EXISTS question_text_au AFTER UPDATE ON question_text BEGIN
	INSERT INTO question_text_fts(question_text_fts, rowid, root_text, child_text) VALUES ('delete', old.rowid, old.root_text, old.child_text);
	INSERT INTO question_text_fts(rowid, root_text, child_text) VALUES (new.rowid, new.root_text, new.child_text);
END;
`

// Index wraps the SQLite connection backing the search side-index.
type Index struct {
	db *sql.DB
}

// Open creates (or reuses) the database at dbPath and ensures its
// schema, using a WAL/busy-timeout connection string and a small
// connection pool sized for a single-writer local database.
func Open(dbPath string) (*Index, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("searchindex: creating %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("searchindex: opening %s: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("searchindex: pinging %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("searchindex: creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Index{db: db}, nil
}

// Close closes the underlying database connection.
func (idx *Index) Close() error { return idx.db.Close() }

// Entry is one question's indexed text.
type Entry struct {
	QuestionID   string
	ExamCode     string
	Topic        string
	RelativePath string
	RootText     string
	ChildText    string // concatenation of all part texts, newline-separated
}

// Upsert inserts or replaces one question's indexed text.
func (idx *Index) Upsert(ctx context.Context, e Entry) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("searchindex: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO questions(question_id, exam_code, topic, relative_path)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(question_id) DO UPDATE SET exam_code=excluded.exam_code, topic=excluded.topic, relative_path=excluded.relative_path
	`, e.QuestionID, e.ExamCode, e.Topic, e.RelativePath); err != nil {
		return fmt.Errorf("searchindex: upsert questions: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO question_text(question_id, root_text, child_text)
		VALUES (?, ?, ?)
		ON CONFLICT(question_id) DO UPDATE SET root_text=excluded.root_text, child_text=excluded.child_text
	`, e.QuestionID, e.RootText, e.ChildText); err != nil {
		return fmt.Errorf("searchindex: upsert question_text: %w", err)
	}

	return tx.Commit()
}

// SearchResult is one keyword match.
type SearchResult struct {
	QuestionID   string
	ExamCode     string
	Topic        string
	RelativePath string
	Score        float64
}

// Search runs an FTS5 query across root_text and child_text, ranked by
// bm25, restricted to examCode when non-empty.
func (idx *Index) Search(ctx context.Context, query, examCode string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := idx.query(ctx, query, examCode, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.QuestionID, &r.ExamCode, &r.Topic, &r.RelativePath, &r.Score); err != nil {
			return nil, fmt.Errorf("searchindex: scanning row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (idx *Index) query(ctx context.Context, query, examCode string, limit int) (*sql.Rows, error) {
	const base = `
		SELECT q.question_id, q.exam_code, q.topic, q.relative_path, bm25(question_text_fts) AS score
		FROM question_text_fts
		JOIN question_text ON question_text.rowid = question_text_fts.rowid
		JOIN questions q ON q.question_id = question_text.question_id
		WHERE question_text_fts MATCH ?
	`
	if examCode == "" {
		rows, err := idx.db.QueryContext(ctx, base+" ORDER BY score LIMIT ?", query, limit)
		if err != nil {
			return nil, fmt.Errorf("searchindex: query: %w", err)
		}
		return rows, nil
	}
	rows, err := idx.db.QueryContext(ctx, base+" AND q.exam_code = ? ORDER BY score LIMIT ?", query, examCode, limit)
	if err != nil {
		return nil, fmt.Errorf("searchindex: query: %w", err)
	}
	return rows, nil
}
