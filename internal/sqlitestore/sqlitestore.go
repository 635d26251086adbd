// Package sqlitestore keeps search counters in a local SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Clark-Hu/moviefinder/internal/domain"
)

// ErrNotFound indicates the requested counter does not exist.
var ErrNotFound = errors.New("sqlitestore: not found")

const schema = `
CREATE TABLE IF NOT EXISTS search_counts (
	id          TEXT PRIMARY KEY,
	search_term TEXT NOT NULL UNIQUE,
	movie_id    INTEGER NOT NULL,
	title       TEXT NOT NULL,
	poster_url  TEXT NOT NULL DEFAULT '',
	count       INTEGER NOT NULL DEFAULT 1 CHECK (count > 0),
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS search_counts_count_idx ON search_counts (count DESC);
`

const columns = `id, search_term, movie_id, title, poster_url, count, created_at, updated_at`

// Store implements the counter store on SQLite.
type Store struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time keeps SQLite away from SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Printf("sqlitestore: using %s", path)

	return &Store{db: db, logger: logger, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// List returns counters matching filter in insertion order unless ordered by count.
func (s *Store) List(ctx context.Context, filter domain.SearchCountFilter) ([]domain.SearchCount, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.SearchTerm != nil {
		where = append(where, "search_term = ?")
		args = append(args, *filter.SearchTerm)
	}

	query := strings.Builder{}
	query.WriteString("SELECT " + columns + " FROM search_counts")
	if len(where) > 0 {
		query.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if filter.OrderByCountDesc {
		query.WriteString(" ORDER BY count DESC, rowid ASC")
	} else {
		query.WriteString(" ORDER BY rowid ASC")
	}
	if filter.Limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SearchCount, 0)
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// Create inserts a new counter. Duplicate terms violate the unique constraint.
func (s *Store) Create(ctx context.Context, rec domain.SearchCount) (domain.SearchCount, error) {
	if rec.Count <= 0 {
		rec.Count = 1
	}
	now := s.now()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_counts (`+columns+`) VALUES (?,?,?,?,?,?,?,?)`,
		rec.ID, rec.SearchTerm, rec.MovieID, rec.Title, rec.PosterURL, rec.Count, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return domain.SearchCount{}, fmt.Errorf("insert search count: %w", err)
	}
	return rec, nil
}

// UpdateCount overwrites the count of the counter with the given id.
func (s *Store) UpdateCount(ctx context.Context, id string, count int64) (domain.SearchCount, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE search_counts SET count = ?, updated_at = ? WHERE id = ?`, count, s.now(), id)
	if err != nil {
		return domain.SearchCount{}, fmt.Errorf("update search count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.SearchCount{}, ErrNotFound
	}
	return s.get(ctx, s.db, id)
}

// Increment creates the counter for rec.SearchTerm or adds one to it inside a
// single transaction.
func (s *Store) Increment(ctx context.Context, rec domain.SearchCount) (domain.SearchCount, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.SearchCount{}, false, err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO search_counts (`+columns+`) VALUES (?,?,?,?,?,1,?,?)
		 ON CONFLICT (search_term) DO NOTHING`,
		uuid.NewString(), rec.SearchTerm, rec.MovieID, rec.Title, rec.PosterURL, now, now)
	if err != nil {
		return domain.SearchCount{}, false, fmt.Errorf("insert search count: %w", err)
	}
	inserted := false
	if n, err := res.RowsAffected(); err == nil && n == 1 {
		inserted = true
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE search_counts SET count = count + 1, updated_at = ? WHERE search_term = ?`,
			now, rec.SearchTerm); err != nil {
			return domain.SearchCount{}, false, fmt.Errorf("increment search count: %w", err)
		}
	}

	row := tx.QueryRowContext(ctx, `SELECT `+columns+` FROM search_counts WHERE search_term = ?`, rec.SearchTerm)
	out, err := scan(row)
	if err != nil {
		return domain.SearchCount{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SearchCount{}, false, err
	}
	return out, inserted, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) get(ctx context.Context, q queryRower, id string) (domain.SearchCount, error) {
	rec, err := scan(q.QueryRowContext(ctx, `SELECT `+columns+` FROM search_counts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SearchCount{}, ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(row scanner) (domain.SearchCount, error) {
	var rec domain.SearchCount
	err := row.Scan(
		&rec.ID,
		&rec.SearchTerm,
		&rec.MovieID,
		&rec.Title,
		&rec.PosterURL,
		&rec.Count,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return domain.SearchCount{}, err
	}
	return rec, nil
}
