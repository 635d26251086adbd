package popularity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Clark-Hu/moviefinder/internal/domain"
)

// DefaultImageBaseURL prefixes poster paths when no base is configured.
const DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"

// DefaultTopN is the size of the trending list when callers pass n <= 0.
const DefaultTopN = 5

// ErrNotFound is returned by stores when a record id does not exist.
var ErrNotFound = errors.New("popularity: not found")

// Store is the document-style persistence the recorder needs.
type Store interface {
	List(ctx context.Context, filter domain.SearchCountFilter) ([]domain.SearchCount, error)
	Create(ctx context.Context, rec domain.SearchCount) (domain.SearchCount, error)
	UpdateCount(ctx context.Context, id string, count int64) (domain.SearchCount, error)
}

// Incrementer is implemented by stores that can create-or-increment a term in
// one atomic step. The bool reports whether a new record was inserted.
type Incrementer interface {
	Increment(ctx context.Context, rec domain.SearchCount) (domain.SearchCount, bool, error)
}

// Recorder keeps the per-term search counters.
type Recorder struct {
	store        Store
	imageBaseURL string
	logger       *log.Logger
}

// Options configures a Recorder.
type Options struct {
	ImageBaseURL string
	Logger       *log.Logger
}

// NewRecorder returns a recorder backed by store.
func NewRecorder(store Store, opts Options) *Recorder {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	base := strings.TrimRight(opts.ImageBaseURL, "/")
	if base == "" {
		base = DefaultImageBaseURL
	}
	return &Recorder{store: store, imageBaseURL: base, logger: logger}
}

// Record counts one search for query, snapshotting top as the representative
// movie when the term is seen for the first time. The term is matched exactly.
func (r *Recorder) Record(ctx context.Context, query string, top domain.Movie) error {
	if query == "" {
		return errors.New("popularity: empty search term")
	}
	fresh := domain.SearchCount{
		SearchTerm: query,
		MovieID:    top.ID,
		Title:      top.Title,
		PosterURL:  r.PosterURL(top.PosterPath),
		Count:      1,
	}

	if inc, ok := r.store.(Incrementer); ok {
		if _, _, err := inc.Increment(ctx, fresh); err != nil {
			return fmt.Errorf("increment search count for %q: %w", query, err)
		}
		return nil
	}

	// Read-then-write: two concurrent first searches of a term can both
	// create a record here. Stores that implement Incrementer avoid it.
	existing, err := r.store.List(ctx, domain.SearchCountFilter{SearchTerm: &query, Limit: 1})
	if err != nil {
		return fmt.Errorf("look up search count for %q: %w", query, err)
	}
	if len(existing) > 0 {
		current := existing[0]
		if _, err := r.store.UpdateCount(ctx, current.ID, current.Count+1); err != nil {
			return fmt.Errorf("update search count for %q: %w", query, err)
		}
		return nil
	}
	if _, err := r.store.Create(ctx, fresh); err != nil {
		return fmt.Errorf("create search count for %q: %w", query, err)
	}
	return nil
}

// Top returns the n most searched terms, highest count first.
func (r *Recorder) Top(ctx context.Context, n int) ([]domain.SearchCount, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	records, err := r.store.List(ctx, domain.SearchCountFilter{OrderByCountDesc: true, Limit: n})
	if err != nil {
		return nil, fmt.Errorf("list trending searches: %w", err)
	}
	if len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// Trending is Top for display: a failing store means no trending data.
func (r *Recorder) Trending(ctx context.Context, n int) []domain.SearchCount {
	records, err := r.Top(ctx, n)
	if err != nil {
		r.logger.Printf("popularity: %v", err)
		return nil
	}
	return records
}

// PosterURL turns a provider poster path into an absolute image URL.
func (r *Recorder) PosterURL(path *string) string {
	if path == nil || *path == "" {
		return ""
	}
	p := *path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return r.imageBaseURL + p
}
