package booklet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ANUcybernetics/my-first-lm/pkg/markov"
	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// SetupSchema initializes the necessary tables in the provided database. It is
// idempotent and safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaRuns = `
CREATE TABLE IF NOT EXISTS booklet_runs (
    run_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    url TEXT NOT NULL,
    n INTEGER NOT NULL,
    version TEXT NOT NULL,
    stats TEXT,
    created_at TEXT NOT NULL
);
`
		schemaBooks = `
CREATE TABLE IF NOT EXISTS booklet_books (
    run_id TEXT NOT NULL,
    book_index INTEGER NOT NULL,
    label TEXT NOT NULL,
    subtitle TEXT NOT NULL,
    PRIMARY KEY (run_id, book_index)
);
`
		schemaRows = `
CREATE TABLE IF NOT EXISTS booklet_rows (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    book_index INTEGER NOT NULL,
    prefix TEXT NOT NULL,
    total INTEGER NOT NULL,
    strategy TEXT NOT NULL,
    PRIMARY KEY (run_id, position)
);
`
		schemaFollowers = `
CREATE TABLE IF NOT EXISTS booklet_followers (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    rank INTEGER NOT NULL,
    word TEXT NOT NULL,
    value INTEGER NOT NULL,
    PRIMARY KEY (run_id, position, rank)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	for _, schema := range []string{schemaRuns, schemaBooks, schemaRows, schemaFollowers} {
		if _, err = tx.Exec(schema); err != nil {
			return fmt.Errorf("could not create schema: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// RunInfo summarizes one stored run.
type RunInfo struct {
	ID        string
	Title     string
	Author    string
	N         int
	Books     int
	Rows      int
	CreatedAt time.Time
}

// Store is a sqlite sink for finished tables. Each call to WriteBooks stores a
// complete run under a fresh id, and LoadTable reads one back for rolling.
type Store struct {
	db                 *sql.DB
	stmtInsertRun      *sql.Stmt
	stmtInsertBook     *sql.Stmt
	stmtInsertRow      *sql.Stmt
	stmtInsertFollower *sql.Stmt
	stmtGetRunN        *sql.Stmt
	stmtGetRows        *sql.Stmt
	stmtGetFollowers   *sql.Stmt
	stmtListRuns       *sql.Stmt
	logger             *slog.Logger
}

// NewStore prepares all statements against a database that already has the
// schema from SetupSchema.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	statements := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtInsertRun, `INSERT INTO booklet_runs (run_id, title, author, url, n, version, stats, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`},
		{&s.stmtInsertBook, `INSERT INTO booklet_books (run_id, book_index, label, subtitle) VALUES (?, ?, ?, ?);`},
		{&s.stmtInsertRow, `INSERT INTO booklet_rows (run_id, position, book_index, prefix, total, strategy) VALUES (?, ?, ?, ?, ?, ?);`},
		{&s.stmtInsertFollower, `INSERT INTO booklet_followers (run_id, position, rank, word, value) VALUES (?, ?, ?, ?, ?);`},
		{&s.stmtGetRunN, `SELECT n FROM booklet_runs WHERE run_id = ?;`},
		{&s.stmtGetRows, `SELECT position, prefix, total, strategy FROM booklet_rows WHERE run_id = ? ORDER BY position;`},
		{&s.stmtGetFollowers, `SELECT position, word, value FROM booklet_followers WHERE run_id = ? ORDER BY position, rank;`},
		{&s.stmtListRuns, `
SELECT r.run_id, r.title, r.author, r.n, r.created_at,
       (SELECT COUNT(*) FROM booklet_books b WHERE b.run_id = r.run_id),
       (SELECT COUNT(*) FROM booklet_rows w WHERE w.run_id = r.run_id)
FROM booklet_runs r ORDER BY r.created_at, r.run_id;`},
	}

	for _, st := range statements {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to prepare statement: %w", err)
		}
		*st.dst = stmt
	}

	return s, nil
}

// SetLogger sets the logger.
func (s *Store) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Close releases the prepared statements. The database itself is left open.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtInsertRun, s.stmtInsertBook, s.stmtInsertRow, s.stmtInsertFollower,
		s.stmtGetRunN, s.stmtGetRows, s.stmtGetFollowers, s.stmtListRuns,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// WriteBooks stores every volume of a run in a single transaction and returns
// the new run id. Rows are numbered across volumes so the run reads back in
// output order. The run's metadata is taken from the first volume.
func (s *Store) WriteBooks(ctx context.Context, volumes []Volume) (string, error) {
	if len(volumes) == 0 {
		return "", errors.New("no volumes to store")
	}
	runID := uuid.NewString()
	meta := volumes[0].Metadata

	var statsJSON sql.NullString
	if meta.Stats != nil {
		data, err := json.Marshal(meta.Stats)
		if err != nil {
			return "", fmt.Errorf("failed to marshal stats: %w", err)
		}
		statsJSON = sql.NullString{String: string(data), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtInsertRun := tx.StmtContext(ctx, s.stmtInsertRun)
	stmtInsertBook := tx.StmtContext(ctx, s.stmtInsertBook)
	stmtInsertRow := tx.StmtContext(ctx, s.stmtInsertRow)
	stmtInsertFollower := tx.StmtContext(ctx, s.stmtInsertFollower)

	createdAt := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err = stmtInsertRun.ExecContext(ctx, runID, meta.Title, meta.Author, meta.URL, meta.N, meta.Version, statsJSON, createdAt); err != nil {
		return "", fmt.Errorf("could not insert run: %w", err)
	}

	position := 0
	for bookIndex, v := range volumes {
		if _, err = stmtInsertBook.ExecContext(ctx, runID, bookIndex, v.Label, v.Metadata.Subtitle); err != nil {
			return "", fmt.Errorf("could not insert book %d: %w", bookIndex+1, err)
		}
		for _, e := range v.Entries {
			if _, err = stmtInsertRow.ExecContext(ctx, runID, position, bookIndex, e.Key(), e.Total, e.Strategy.String()); err != nil {
				return "", fmt.Errorf("could not insert row '%s': %w", e.Key(), err)
			}
			for rank, f := range e.Followers {
				if _, err = stmtInsertFollower.ExecContext(ctx, runID, position, rank, f.Word, f.Value); err != nil {
					return "", fmt.Errorf("could not insert follower '%s' of '%s': %w", f.Word, e.Key(), err)
				}
			}
			position++
		}
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("could not commit run: %w", err)
	}

	s.logger.InfoContext(ctx, "Run stored",
		slog.String("run_id", runID),
		slog.String("title", meta.Title),
		slog.Int("books", len(volumes)),
		slog.Int("rows", position),
	)
	return runID, nil
}

// Runs lists stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.stmtListRuns.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Title, &info.Author, &info.N, &createdAt, &info.Books, &info.Rows); err != nil {
			return nil, fmt.Errorf("could not scan run: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("bad timestamp for run %s: %w", info.ID, err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// LoadTable reads a stored run back as a roll table.
func (s *Store) LoadTable(ctx context.Context, runID string) (*markov.Table, error) {
	var n int
	err := s.stmtGetRunN.QueryRowContext(ctx, runID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("could not look up run %s: %w", runID, err)
	}

	scaled, index, err := s.loadRows(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.stmtGetFollowers.QueryContext(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("could not query followers: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	for rows.Next() {
		var position int
		var f markov.Cumulative
		if err := rows.Scan(&position, &f.Word, &f.Value); err != nil {
			return nil, fmt.Errorf("could not scan follower: %w", err)
		}
		i, ok := index[position]
		if !ok {
			return nil, fmt.Errorf("follower '%s' refers to missing row %d", f.Word, position)
		}
		scaled[i].Followers = append(scaled[i].Followers, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating follower rows: %w", err)
	}

	return markov.NewTable(n, scaled), nil
}

func (s *Store) loadRows(ctx context.Context, runID string) ([]markov.ScaledEntry, map[int]int, error) {
	rows, err := s.stmtGetRows.QueryContext(ctx, runID)
	if err != nil {
		return nil, nil, fmt.Errorf("could not query rows: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var scaled []markov.ScaledEntry
	index := make(map[int]int)
	for rows.Next() {
		var position, total int
		var prefix, strategy string
		if err := rows.Scan(&position, &prefix, &total, &strategy); err != nil {
			return nil, nil, fmt.Errorf("could not scan row: %w", err)
		}
		st, err := markov.ParseStrategy(strategy)
		if err != nil {
			return nil, nil, fmt.Errorf("row '%s': %w", prefix, err)
		}
		index[position] = len(scaled)
		scaled = append(scaled, markov.ScaledEntry{
			Prefix:   strings.Fields(prefix),
			Total:    total,
			Strategy: st,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error after iterating rows: %w", err)
	}
	return scaled, index, nil
}
