package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Clark-Hu/moviefinder/internal/config"
	"github.com/Clark-Hu/moviefinder/internal/domain"
	"github.com/Clark-Hu/moviefinder/internal/gateway"
	"github.com/Clark-Hu/moviefinder/internal/logging"
	"github.com/Clark-Hu/moviefinder/internal/popularity"
	"github.com/Clark-Hu/moviefinder/internal/repository"
	"github.com/Clark-Hu/moviefinder/internal/search"
	"github.com/Clark-Hu/moviefinder/internal/sqlitestore"
	"github.com/Clark-Hu/moviefinder/internal/store"
)

const usage = `type to search, or:
  :popular       list popular movies
  :trending      list the most searched terms
  :details <id>  show one movie
  :quit          exit
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closer, err := logging.New("[moviefinder] ", cfg.Log)
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}
	defer closer.Close()

	counts, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open %s store: %v", cfg.StoreDriver, err)
	}
	defer closeStore()

	recorder := popularity.NewRecorder(counts, popularity.Options{ImageBaseURL: cfg.ImageBaseURL, Logger: logger})

	gw, err := gateway.New(cfg.ProxyBaseURL, time.Duration(cfg.ProxyTimeoutSecs)*time.Second, logger)
	if err != nil {
		log.Fatalf("init gateway: %v", err)
	}

	out := &printer{out: os.Stdout}
	session := search.NewSession(gw, recorder, search.Options{
		Window:   time.Duration(cfg.DebounceMillis) * time.Millisecond,
		Logger:   logger,
		OnChange: out.state,
	})
	defer session.Close()

	out.printf("%s", usage)
	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handle(ctx, line, session, gw, recorder, cfg, out) {
				return
			}
		}
	}
}

// handle runs one input line and reports whether the loop should continue.
func handle(ctx context.Context, line string, session *search.Session, gw *gateway.Client, recorder *popularity.Recorder, cfg config.Client, out *printer) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch cmd {
	case ":quit", ":q":
		return false
	case ":help":
		out.printf("%s", usage)
	case ":trending":
		records := recorder.Trending(ctx, cfg.TrendingLimit)
		if len(records) == 0 {
			out.printf("no trending searches yet\n")
			return true
		}
		out.printf("%s", renderTrending(records))
	case ":popular":
		movies, err := gw.Fetch(ctx, "")
		if err != nil {
			out.printf("error: %v\n", err)
			return true
		}
		out.printf("%s", renderMovies(movies))
	case ":details":
		details, err := gw.FetchDetails(ctx, arg)
		if err != nil {
			var statusErr *gateway.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				out.printf("movie %s not found\n", strings.TrimSpace(arg))
				return true
			}
			out.printf("error: %v\n", err)
			return true
		}
		out.printf("%s", renderDetails(details, recorder.PosterURL(details.PosterPath)))
	default:
		session.SetQuery(line)
	}
	return true
}

func openStore(ctx context.Context, cfg config.Client, logger *log.Logger) (popularity.Store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return popularity.NewMemoryStore(), func() {}, nil
	case config.DriverPostgres:
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		st, err := store.New(dbCtx, cfg.DBURL, store.Options{
			MaxConns:               int32(cfg.DBMaxConns),
			MinConns:               int32(cfg.DBMinConns),
			MaxConnIdleTime:        time.Duration(cfg.DBMaxIdleSecs) * time.Second,
			MaxConnLifetime:        time.Duration(cfg.DBMaxLifeSecs) * time.Second,
			ConnTimeout:            time.Duration(cfg.DBConnTimeoutSecs) * time.Second,
			StatementCacheCapacity: cfg.DBStatementCache,
			Logger:                 logger,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(dbCtx); err != nil {
			st.Close()
			return nil, nil, err
		}
		return repository.New(st).SearchCounts, st.Close, nil
	default:
		st, err := sqlitestore.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { _ = st.Close() }, nil
	}
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// printer serializes terminal output from the input loop and the session's
// timer goroutines.
type printer struct {
	mu    sync.Mutex
	out   io.Writer
	query string
	last  string
}

func (p *printer) printf(format string, args ...interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = ""
	fmt.Fprintf(p.out, format, args...)
}

// state prints a session update. The update published when the query first
// changes still carries the previous results, so it is skipped.
func (p *printer) state(st search.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st.Query != p.query {
		p.query = st.Query
		if !st.Loading {
			return
		}
	}
	text := renderState(st)
	if text == "" || text == p.last {
		return
	}
	p.last = text
	fmt.Fprint(p.out, text)
}

func renderState(st search.State) string {
	switch {
	case st.Loading:
		return fmt.Sprintf("searching for %q...\n", strings.TrimSpace(st.Query))
	case st.Err != nil:
		return fmt.Sprintf("error: %v\n", st.Err)
	case len(st.Results) > 0:
		return renderMovies(st.Results)
	default:
		return st.EmptyMessage() + "\n"
	}
}

func renderMovies(movies []domain.Movie) string {
	var b strings.Builder
	for i, m := range movies {
		fmt.Fprintf(&b, "%2d. %s", i+1, m.Title)
		if year, _, _ := strings.Cut(m.ReleaseDate, "-"); year != "" {
			fmt.Fprintf(&b, " (%s)", year)
		}
		fmt.Fprintf(&b, "  %.1f  [%d]\n", m.VoteAverage, m.ID)
	}
	return b.String()
}

func renderTrending(records []domain.SearchCount) string {
	var b strings.Builder
	for i, rec := range records {
		fmt.Fprintf(&b, "%2d. %q x%d  %s\n", i+1, rec.SearchTerm, rec.Count, rec.Title)
	}
	return b.String()
}

func renderDetails(d domain.MovieDetails, poster string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%d]\n", d.Title, d.ID)
	if d.Tagline != "" {
		fmt.Fprintf(&b, "  %s\n", d.Tagline)
	}
	if d.ReleaseDate != "" {
		fmt.Fprintf(&b, "  released: %s\n", d.ReleaseDate)
	}
	if d.Runtime != nil {
		fmt.Fprintf(&b, "  runtime:  %d min\n", *d.Runtime)
	}
	fmt.Fprintf(&b, "  rating:   %.1f (%d votes)\n", d.VoteAverage, d.VoteCount)
	if len(d.Genres) > 0 {
		names := make([]string, 0, len(d.Genres))
		for _, g := range d.Genres {
			names = append(names, g.Name)
		}
		fmt.Fprintf(&b, "  genres:   %s\n", strings.Join(names, ", "))
	}
	if poster != "" {
		fmt.Fprintf(&b, "  poster:   %s\n", poster)
	}
	if d.Overview != "" {
		fmt.Fprintf(&b, "\n  %s\n", d.Overview)
	}
	return b.String()
}
