package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/moviefinder/internal/domain"
)

// SearchCountsRepository persists the per-term search counters.
type SearchCountsRepository struct {
	pool *pgxpool.Pool
}

const searchCountColumns = `
    id::text,
    search_term,
    movie_id,
    title,
    poster_url,
    count,
    created_at,
    updated_at
`

// List returns counters matching filter. Without ordering, rows come back
// oldest first.
func (r *SearchCountsRepository) List(ctx context.Context, filter domain.SearchCountFilter) ([]domain.SearchCount, error) {
	where := make([]string, 0, 1)
	args := make([]interface{}, 0, 1)
	if filter.SearchTerm != nil {
		args = append(args, *filter.SearchTerm)
		where = append(where, fmt.Sprintf("search_term = $%d", len(args)))
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(searchCountColumns)
	queryBuilder.WriteString(" FROM search_counts")
	if len(where) > 0 {
		queryBuilder.WriteString(" WHERE ")
		queryBuilder.WriteString(strings.Join(where, " AND "))
	}
	if filter.OrderByCountDesc {
		queryBuilder.WriteString(" ORDER BY count DESC, created_at ASC")
	} else {
		queryBuilder.WriteString(" ORDER BY created_at ASC")
	}
	if filter.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
	}

	rows, err := r.pool.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SearchCount, 0)
	for rows.Next() {
		rec, err := scanSearchCount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Create inserts a new counter. A second record for the same term violates
// the unique constraint and returns an error.
func (r *SearchCountsRepository) Create(ctx context.Context, rec domain.SearchCount) (domain.SearchCount, error) {
	if rec.Count <= 0 {
		rec.Count = 1
	}
	query := fmt.Sprintf(`
        INSERT INTO search_counts (id, search_term, movie_id, title, poster_url, count)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING %s
    `, searchCountColumns)

	row := r.pool.QueryRow(ctx, query, uuid.NewString(), rec.SearchTerm, rec.MovieID, rec.Title, rec.PosterURL, rec.Count)
	return scanSearchCount(row)
}

// UpdateCount overwrites the count of the counter with the given id.
func (r *SearchCountsRepository) UpdateCount(ctx context.Context, id string, count int64) (domain.SearchCount, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.SearchCount{}, ErrNotFound
	}
	query := fmt.Sprintf(`
        UPDATE search_counts
        SET count = $2,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, searchCountColumns)

	rec, err := scanSearchCount(r.pool.QueryRow(ctx, query, id, count))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SearchCount{}, ErrNotFound
		}
		return domain.SearchCount{}, err
	}
	return rec, nil
}

// Increment creates the counter for rec.SearchTerm with count 1, or adds one
// to the existing counter, in a single statement. The movie snapshot of an
// existing counter is left untouched.
func (r *SearchCountsRepository) Increment(ctx context.Context, rec domain.SearchCount) (domain.SearchCount, bool, error) {
	query := fmt.Sprintf(`
        INSERT INTO search_counts (id, search_term, movie_id, title, poster_url, count)
        VALUES ($1,$2,$3,$4,$5,1)
        ON CONFLICT (search_term)
        DO UPDATE SET count = search_counts.count + 1, updated_at = now()
        RETURNING %s, (xmax = 0) AS inserted
    `, searchCountColumns)

	var (
		out      domain.SearchCount
		inserted bool
	)
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), rec.SearchTerm, rec.MovieID, rec.Title, rec.PosterURL).Scan(
		&out.ID,
		&out.SearchTerm,
		&out.MovieID,
		&out.Title,
		&out.PosterURL,
		&out.Count,
		&out.CreatedAt,
		&out.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.SearchCount{}, false, err
	}
	return out, inserted, nil
}

func scanSearchCount(row pgx.Row) (domain.SearchCount, error) {
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
