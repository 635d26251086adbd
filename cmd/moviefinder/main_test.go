package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clark-Hu/moviefinder/internal/config"
	"github.com/Clark-Hu/moviefinder/internal/domain"
	"github.com/Clark-Hu/moviefinder/internal/popularity"
	"github.com/Clark-Hu/moviefinder/internal/search"
)

func TestPrinterSkipsStaleResultsOnQueryChange(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf}
	dune := []domain.Movie{{ID: 1, Title: "Dune", ReleaseDate: "2021-09-15", VoteAverage: 7.8}}

	p.state(search.State{Query: "dune", Loading: true})
	p.state(search.State{Query: "dune", Results: dune})
	// Query changed: this update still carries dune's results.
	p.state(search.State{Query: "zzz", Results: dune})
	p.state(search.State{Query: "zzz", Loading: true})
	p.state(search.State{Query: "zzz"})

	assert.Equal(t,
		"searching for \"dune\"...\n"+
			" 1. Dune (2021)  7.8  [1]\n"+
			"searching for \"zzz\"...\n"+
			"No results found for \"zzz\"\n",
		buf.String())
}

func TestPrinterClearedQuery(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{out: &buf}

	p.state(search.State{Query: "x", Loading: true})
	p.state(search.State{Query: "x", Err: errors.New("Failed to fetch movies: 503 Service Unavailable")})
	p.state(search.State{Query: "", Err: errors.New("stale")})
	p.state(search.State{Query: ""})

	assert.Equal(t,
		"searching for \"x\"...\n"+
			"error: Failed to fetch movies: 503 Service Unavailable\n"+
			"Search your favorite movies...\n",
		buf.String())
}

func TestRenderDetails(t *testing.T) {
	runtime := 155
	d := domain.MovieDetails{
		Movie:   domain.Movie{ID: 438631, Title: "Dune", ReleaseDate: "2021-09-15", VoteAverage: 7.8, VoteCount: 12500},
		Tagline: "It begins.",
		Runtime: &runtime,
		Genres:  []domain.NamedRef{{ID: 878, Name: "Science Fiction"}, {ID: 12, Name: "Adventure"}},
	}

	out := renderDetails(d, "https://image.tmdb.org/t/p/w500/d.jpg")
	assert.Contains(t, out, "Dune [438631]")
	assert.Contains(t, out, "runtime:  155 min")
	assert.Contains(t, out, "genres:   Science Fiction, Adventure")
	assert.Contains(t, out, "poster:   https://image.tmdb.org/t/p/w500/d.jpg")
}

func TestHandleTrendingAndQuit(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	out := &printer{out: &buf}
	recorder := popularity.NewRecorder(popularity.NewMemoryStore(), popularity.Options{Logger: log.New(io.Discard, "", 0)})
	cfg := config.Client{TrendingLimit: 5}

	assert.True(t, handle(ctx, ":trending", nil, nil, recorder, cfg, out))
	assert.Equal(t, "no trending searches yet\n", buf.String())

	require.NoError(t, recorder.Record(ctx, "dune", domain.Movie{ID: 1, Title: "Dune"}))
	require.NoError(t, recorder.Record(ctx, "dune", domain.Movie{ID: 1, Title: "Dune"}))
	buf.Reset()
	assert.True(t, handle(ctx, ":trending", nil, nil, recorder, cfg, out))
	assert.Equal(t, " 1. \"dune\" x2  Dune\n", buf.String())

	assert.False(t, handle(ctx, ":quit", nil, nil, recorder, cfg, out))
}

func TestOpenMemoryStore(t *testing.T) {
	st, closeFn, err := openStore(context.Background(), config.Client{StoreDriver: config.DriverMemory}, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	defer closeFn()
	_, ok := st.(popularity.Incrementer)
	assert.True(t, ok)
}

func TestOpenSQLiteStore(t *testing.T) {
	cfg := config.Client{StoreDriver: config.DriverSQLite, SQLitePath: t.TempDir() + "/counts.db"}
	st, closeFn, err := openStore(context.Background(), cfg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	defer closeFn()
	_, ok := st.(popularity.Incrementer)
	assert.True(t, ok)
}
