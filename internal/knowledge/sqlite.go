// Package knowledge persists the template table, the historical Q&A example
// corpus, and the dispatched-answer audit log in a local SQLite database.
package knowledge

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for templates, examples, and
// the answer log.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "sellerdesk.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

// --- Templates ---

// SaveTemplate inserts or replaces a template. Keywords are case-normalized
// so `#Cargo` and `#cargo` resolve to the same entry.
func (s *Store) SaveTemplate(t Template) error {
	_, err := s.db.Exec(`
		INSERT INTO templates (keyword, body) VALUES (?, ?)
		ON CONFLICT(keyword) DO UPDATE SET body = excluded.body`,
		strings.ToLower(strings.TrimSpace(t.Keyword)), t.Body,
	)
	return err
}

// GetTemplate looks up a template by keyword (case-insensitive).
func (s *Store) GetTemplate(keyword string) (Template, error) {
	var t Template
	err := s.db.QueryRow("SELECT keyword, body FROM templates WHERE keyword = ?",
		strings.ToLower(strings.TrimSpace(keyword))).Scan(&t.Keyword, &t.Body)
	if err == sql.ErrNoRows {
		return Template{}, ErrNotFound
	}
	return t, err
}

// ListTemplates returns all templates ordered by keyword.
func (s *Store) ListTemplates() ([]Template, error) {
	rows, err := s.db.Query("SELECT keyword, body FROM templates ORDER BY keyword ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.Keyword, &t.Body); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Examples ---

func (s *Store) SaveExample(e Example) error {
	_, err := s.db.Exec(`
		INSERT INTO examples (id, product, question, answer) VALUES (?, ?, ?, ?)`,
		e.ID, e.Product, e.Question, e.Answer,
	)
	return err
}

// ExamplesForProduct returns examples whose product name contains the given
// product name, case-insensitively.
func (s *Store) ExamplesForProduct(product string) ([]Example, error) {
	rows, err := s.db.Query(`
		SELECT id, product, question, answer FROM examples
		WHERE instr(lower(product), lower(?)) > 0
		ORDER BY id ASC`, product,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Example
	for rows.Next() {
		var e Example
		if err := rows.Scan(&e.ID, &e.Product, &e.Question, &e.Answer); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountExamples returns the total number of stored examples.
func (s *Store) CountExamples() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM examples").Scan(&n)
	return n, err
}

// --- Answer log ---

func (s *Store) SaveAnswerRecord(r AnswerRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO answer_log (id, store, question_id, origin, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Store, r.QuestionID, r.Origin, r.Body,
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// RecentAnswers returns the most recently dispatched answers, newest first.
func (s *Store) RecentAnswers(limit int) ([]AnswerRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, store, question_id, origin, body, created_at
		FROM answer_log ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnswerRecord
	for rows.Next() {
		var r AnswerRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Store, &r.QuestionID, &r.Origin, &r.Body, &createdAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		out = append(out, r)
	}
	return out, rows.Err()
}
