package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/quizboard/pkg/logger"
	"github.com/okian/quizboard/pkg/metrics"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT    NOT NULL UNIQUE,
	generated_at INTEGER NOT NULL,
	quiz_ids     TEXT    NOT NULL
);
CREATE TABLE IF NOT EXISTS merged_entries (
	run_seq      INTEGER NOT NULL,
	position     INTEGER NOT NULL,
	rank         INTEGER NOT NULL,
	slug         TEXT    NOT NULL,
	display_name TEXT    NOT NULL,
	total        REAL    NOT NULL,
	quizzes      TEXT    NOT NULL,
	members      TEXT    NOT NULL,
	PRIMARY KEY (run_seq, slug)
);
CREATE INDEX IF NOT EXISTS merged_entries_position ON merged_entries (run_seq, position);
`

const (
	insertRun = `INSERT INTO runs (id, generated_at, quiz_ids) VALUES (?, ?, ?)`

	insertEntry = `INSERT INTO merged_entries
		(run_seq, position, rank, slug, display_name, total, quizzes, members)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectLatest = `SELECT seq, id, generated_at, quiz_ids FROM runs ORDER BY seq DESC LIMIT 1`

	selectTop = `SELECT rank, slug, display_name, total, quizzes, members FROM merged_entries
		WHERE run_seq = ? ORDER BY position LIMIT ?`

	selectRank = `SELECT rank, slug, display_name, total, quizzes, members FROM merged_entries
		WHERE run_seq = ? AND slug = ?`

	selectCount = `SELECT COUNT(*) FROM merged_entries
		WHERE run_seq = (SELECT MAX(seq) FROM runs)`

	pruneRuns    = `DELETE FROM runs WHERE seq <= (SELECT MAX(seq) FROM runs) - ?`
	pruneEntries = `DELETE FROM merged_entries WHERE run_seq NOT IN (SELECT seq FROM runs)`
)

// SQLiteStore persists runs in a SQLite database file.
type SQLiteStore struct {
	db       *sql.DB
	settings settings
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{settings: defaultSettings()}
	for _, opt := range opts {
		opt(&s.settings)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s.db = db
	return s, nil
}

// Save inserts run and its entries in one transaction, then prunes old runs.
func (s *SQLiteStore) Save(ctx context.Context, run Run) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("save", float64(time.Since(start).Milliseconds()))
		if err != nil {
			metrics.RecordError("repository", "save")
		}
	}()

	quizIDs, err := json.Marshal(run.QuizIDs)
	if err != nil {
		return fmt.Errorf("encode quiz ids: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, insertRun, run.ID, run.GeneratedAt.UnixMilli(), string(quizIDs))
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertEntry)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range run.Entries {
		quizzes, err := json.Marshal(e.Quizzes)
		if err != nil {
			return fmt.Errorf("encode quizzes of %s: %w", e.Slug, err)
		}
		members, err := json.Marshal(e.Members)
		if err != nil {
			return fmt.Errorf("encode members of %s: %w", e.Slug, err)
		}
		if _, err := stmt.ExecContext(ctx, seq, i, e.Rank, e.Slug, e.DisplayName, e.Total,
			string(quizzes), string(members)); err != nil {
			return fmt.Errorf("insert entry %s: %w", e.Slug, err)
		}
	}

	if _, err := tx.ExecContext(ctx, pruneRuns, s.settings.retention); err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, pruneEntries); err != nil {
		return fmt.Errorf("prune entries: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.settings.logger.Debug(ctx, "run stored", loggerRunFields(run)...)
	return nil
}

// Latest loads the most recent run with all its entries.
func (s *SQLiteStore) Latest(ctx context.Context) (Run, error) {
	seq, run, err := s.latest(ctx)
	if err != nil {
		return Run{}, err
	}
	run.Entries, err = s.query(ctx, selectTop, seq, -1)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// QuizIDs returns the quiz columns of the latest run.
func (s *SQLiteStore) QuizIDs(ctx context.Context) ([]string, error) {
	_, run, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	return run.QuizIDs, nil
}

// TopN returns the top N entries of the latest run.
func (s *SQLiteStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("top_n", float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordError("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}
	seq, _, err := s.latest(ctx)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, selectTop, seq, n)
}

// Rank returns the entry for slug in the latest run.
func (s *SQLiteStore) Rank(ctx context.Context, slug string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("rank", float64(time.Since(start).Milliseconds()))
	}()

	seq, _, err := s.latest(ctx)
	if err != nil {
		return Entry{}, err
	}
	entries, err := s.query(ctx, selectRank, seq, slug)
	if err != nil {
		return Entry{}, err
	}
	if len(entries) == 0 {
		metrics.RecordError("repository", "not_found")
		return Entry{}, ErrNotFound
	}
	return entries[0], nil
}

// Count returns the number of entries in the latest run, or 0 on error.
func (s *SQLiteStore) Count(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, selectCount).Scan(&n); err != nil {
		s.settings.logger.Warn(ctx, "count entries", logger.Error(err))
		return 0
	}
	return n
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) latest(ctx context.Context) (int64, Run, error) {
	var (
		seq       int64
		run       Run
		generated int64
		quizIDs   string
	)
	err := s.db.QueryRowContext(ctx, selectLatest).Scan(&seq, &run.ID, &generated, &quizIDs)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, Run{}, ErrNoRun
	}
	if err != nil {
		return 0, Run{}, fmt.Errorf("load latest run: %w", err)
	}
	if err := json.Unmarshal([]byte(quizIDs), &run.QuizIDs); err != nil {
		return 0, Run{}, fmt.Errorf("decode quiz ids of %s: %w", run.ID, err)
	}
	run.GeneratedAt = time.UnixMilli(generated).UTC()
	return seq, run, nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                Entry
			quizzes, members string
		)
		if err := rows.Scan(&e.Rank, &e.Slug, &e.DisplayName, &e.Total, &quizzes, &members); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := json.Unmarshal([]byte(quizzes), &e.Quizzes); err != nil {
			return nil, fmt.Errorf("decode quizzes of %s: %w", e.Slug, err)
		}
		if err := json.Unmarshal([]byte(members), &e.Members); err != nil {
			return nil, fmt.Errorf("decode members of %s: %w", e.Slug, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}
