package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/moviefinder/internal/domain"
)

type fixture struct {
	Movies []domain.MovieDetails `json:"movies"`
}

type tmdbError struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}

func main() {
	var (
		port    = flag.String("port", "9099", "port to listen on")
		data    = flag.String("data", "testdata/mock-tmdb.json", "path to mock data file")
		key     = flag.String("key", "", "bearer token to require (empty accepts any)")
		fail    = flag.Int("fail", 0, "answer every request with this HTTP status")
		logReqs = flag.Bool("log", false, "enable request logging")
	)
	flag.Parse()

	file, err := os.ReadFile(*data)
	if err != nil {
		log.Fatalf("read mock data: %v", err)
	}

	var payload fixture
	if err := json.Unmarshal(file, &payload); err != nil {
		log.Fatalf("parse mock data: %v", err)
	}

	r := chi.NewRouter()
	if *logReqs {
		r.Use(middleware.Logger)
	}
	r.Use(requireKey(*key), failWith(*fail))

	r.Get("/discover/movie", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, list(payload.Movies, ""))
	})
	r.Get("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, list(payload.Movies, r.URL.Query().Get("query")))
	})
	r.Get("/movie/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		for _, m := range payload.Movies {
			if strconv.FormatInt(m.ID, 10) == id {
				respond(w, http.StatusOK, m)
				return
			}
		}
		respond(w, http.StatusNotFound, tmdbError{StatusCode: 34, StatusMessage: "The resource you requested could not be found."})
	})

	addr := ":" + *port
	log.Printf("mock tmdb listening on %s with %d movies", addr, len(payload.Movies))
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// list returns movies whose title contains query (case-insensitive), most
// popular first. An empty query matches everything.
func list(all []domain.MovieDetails, query string) domain.MovieList {
	query = strings.ToLower(strings.TrimSpace(query))
	results := make([]domain.Movie, 0, len(all))
	for _, m := range all {
		if query == "" || strings.Contains(strings.ToLower(m.Title), query) {
			results = append(results, m.Movie)
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Popularity > results[j].Popularity })
	pages := 0
	if len(results) > 0 {
		pages = 1
	}
	return domain.MovieList{Page: 1, Results: results, TotalPages: pages, TotalResults: len(results)}
}

func requireKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" && r.Header.Get("Authorization") != "Bearer "+key {
				respond(w, http.StatusUnauthorized, tmdbError{StatusCode: 7, StatusMessage: "Invalid API key: You must be granted a valid key."})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func failWith(status int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if status >= 400 {
				respond(w, status, tmdbError{StatusCode: status, StatusMessage: http.StatusText(status)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json;charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}
