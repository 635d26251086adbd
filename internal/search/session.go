package search

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Clark-Hu/moviefinder/internal/domain"
)

// Fetcher resolves a query into movies. An empty query asks for popular movies.
type Fetcher interface {
	Fetch(ctx context.Context, query string) ([]domain.Movie, error)
}

// Recorder counts a completed search.
type Recorder interface {
	Record(ctx context.Context, query string, top domain.Movie) error
}

// State is what the UI renders for a search screen.
type State struct {
	Query   string
	Results []domain.Movie
	Err     error
	Loading bool
}

// EmptyMessage is the placeholder shown when there is nothing else to render.
// It is empty while loading, on error, or when there are results.
func (s State) EmptyMessage() string {
	if s.Loading || s.Err != nil || len(s.Results) > 0 {
		return ""
	}
	if q := strings.TrimSpace(s.Query); q != "" {
		return fmt.Sprintf("No results found for %q", q)
	}
	return "Search your favorite movies..."
}

// Options configures a Session.
type Options struct {
	Window        time.Duration
	Clock         Clock
	Logger        *log.Logger
	OnChange      func(State)
	RecordTimeout time.Duration
}

// Session turns query updates into at most one fetch per quiescence window and
// publishes the outcome. Only the newest fetch may publish: starting a fetch
// cancels the previous one and its late result is dropped.
type Session struct {
	fetcher       Fetcher
	recorder      Recorder
	logger        *log.Logger
	onChange      func(State)
	recordTimeout time.Duration
	debouncer     *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	version     uint64
	generation  uint64
	cancelFetch context.CancelFunc
	closed      bool

	publishMu sync.Mutex
	published uint64
}

// NewSession builds a session. recorder may be nil.
func NewSession(fetcher Fetcher, recorder Recorder, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	recordTimeout := opts.RecordTimeout
	if recordTimeout <= 0 {
		recordTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		fetcher:       fetcher,
		recorder:      recorder,
		logger:        logger,
		onChange:      opts.OnChange,
		recordTimeout: recordTimeout,
		ctx:           ctx,
		cancel:        cancel,
	}
	s.debouncer = NewDebouncer(opts.Window, opts.Clock, s.run)
	return s
}

// SetQuery replaces the current query and restarts the quiescence window.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.Query = query
	st, ver := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(st, ver)
	s.debouncer.Trigger()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _ := s.snapshotLocked()
	return st
}

// Close cancels the pending search and any fetch in flight. Query updates
// after Close are ignored.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.mu.Unlock()

	s.debouncer.Stop()
	s.cancel()
}

func (s *Session) run() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	query := strings.TrimSpace(s.state.Query)
	s.generation++
	gen := s.generation
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}

	if query == "" {
		s.state.Results = nil
		s.state.Err = nil
		s.state.Loading = false
		st, ver := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(st, ver)
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.cancelFetch = cancel
	s.state.Loading = true
	st, ver := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(st, ver)

	results, err := s.fetcher.Fetch(ctx, query)

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.cancelFetch = nil
	s.state.Loading = false
	if err != nil {
		s.state.Results = nil
		s.state.Err = err
	} else {
		s.state.Results = results
		s.state.Err = nil
	}
	st, ver = s.snapshotLocked()
	s.mu.Unlock()
	s.publish(st, ver)

	if err == nil && len(results) > 0 && s.recorder != nil {
		s.record(query, results[0])
	}
}

func (s *Session) record(query string, top domain.Movie) {
	ctx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
	defer cancel()
	if err := s.recorder.Record(ctx, query, top); err != nil {
		s.logger.Printf("search: record %q: %v", query, err)
	}
}

func (s *Session) snapshotLocked() (State, uint64) {
	s.version++
	st := s.state
	if st.Results != nil {
		st.Results = append([]domain.Movie(nil), st.Results...)
	}
	return st, s.version
}

// publish delivers st unless a newer snapshot already went out.
func (s *Session) publish(st State, version uint64) {
	if s.onChange == nil {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if version <= s.published {
		return
	}
	s.published = version
	s.onChange(st)
}
