package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Log controls where component loggers write and how log files rotate.
type Log struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Proxy captures the proxy server configuration derived from environment variables.
type Proxy struct {
	Port             string
	TMDBBaseURL      string
	TMDBAPIKey       string
	TMDBTimeoutSecs  int
	ReadTimeoutSecs  int
	WriteTimeoutSecs int
	IdleTimeoutSecs  int
	AllowedOrigins   []string
	Log              Log
}

// Client captures the search client configuration derived from environment variables.
type Client struct {
	ProxyBaseURL      string
	ProxyTimeoutSecs  int
	DebounceMillis    int
	TrendingLimit     int
	ImageBaseURL      string
	StoreDriver       string
	SQLitePath        string
	DBURL             string
	DBMaxConns        int
	DBMinConns        int
	DBMaxIdleSecs     int
	DBMaxLifeSecs     int
	DBConnTimeoutSecs int
	DBStatementCache  int
	Log               Log
}

// LoadProxy reads the proxy configuration, applying defaults and validation.
func LoadProxy() (Proxy, error) {
	cfg := Proxy{
		Port:             getEnv("PORT", "3001"),
		TMDBBaseURL:      getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBAPIKey:       strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBTimeoutSecs:  getEnvInt("TMDB_TIMEOUT_SECS", 10),
		ReadTimeoutSecs:  getEnvInt("SERVER_READ_TIMEOUT", 15),
		WriteTimeoutSecs: getEnvInt("SERVER_WRITE_TIMEOUT", 15),
		IdleTimeoutSecs:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		AllowedOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Log:              loadLog(),
	}

	if cfg.TMDBAPIKey == "" {
		return Proxy{}, fmt.Errorf("TMDB_API_KEY is required")
	}
	if err := validateURL("TMDB_BASE_URL", cfg.TMDBBaseURL); err != nil {
		return Proxy{}, err
	}
	if cfg.TMDBTimeoutSecs <= 0 {
		return Proxy{}, fmt.Errorf("TMDB_TIMEOUT_SECS must be positive")
	}
	if len(cfg.AllowedOrigins) == 0 {
		return Proxy{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}
	if err := cfg.Log.validate(); err != nil {
		return Proxy{}, err
	}

	return cfg, nil
}

// LoadClient reads the search client configuration, applying defaults and validation.
func LoadClient() (Client, error) {
	cfg := Client{
		ProxyBaseURL:      os.Getenv("PROXY_BASE_URL"),
		ProxyTimeoutSecs:  getEnvInt("PROXY_TIMEOUT_SECS", 10),
		DebounceMillis:    getEnvInt("SEARCH_DEBOUNCE_MS", 500),
		TrendingLimit:     getEnvInt("TRENDING_LIMIT", 5),
		ImageBaseURL:      getEnv("IMAGE_BASE_URL", "https://image.tmdb.org/t/p/w500"),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", DriverSQLite)),
		SQLitePath:        getEnv("SQLITE_PATH", "moviefinder.db"),
		DBURL:             os.Getenv("DB_URL"),
		DBMaxConns:        getEnvInt("DB_MAX_CONNS", 4),
		DBMinConns:        getEnvInt("DB_MIN_CONNS", 0),
		DBMaxIdleSecs:     getEnvInt("DB_MAX_CONN_IDLE_SECS", 300),
		DBMaxLifeSecs:     getEnvInt("DB_MAX_CONN_LIFETIME_SECS", 3600),
		DBConnTimeoutSecs: getEnvInt("DB_CONN_TIMEOUT_SECS", 10),
		DBStatementCache:  getEnvInt("DB_STATEMENT_CACHE_CAPACITY", 64),
		Log:               loadLog(),
	}

	if cfg.ProxyBaseURL == "" {
		return Client{}, fmt.Errorf("PROXY_BASE_URL is required")
	}
	if err := validateURL("PROXY_BASE_URL", cfg.ProxyBaseURL); err != nil {
		return Client{}, err
	}
	if cfg.ProxyTimeoutSecs <= 0 {
		return Client{}, fmt.Errorf("PROXY_TIMEOUT_SECS must be positive")
	}
	if cfg.DebounceMillis <= 0 {
		return Client{}, fmt.Errorf("SEARCH_DEBOUNCE_MS must be positive")
	}
	if cfg.TrendingLimit <= 0 {
		return Client{}, fmt.Errorf("TRENDING_LIMIT must be positive")
	}

	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return Client{}, fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if cfg.DBURL == "" {
			return Client{}, fmt.Errorf("DB_URL is required for the postgres driver")
		}
		if cfg.DBMaxConns <= 0 {
			return Client{}, fmt.Errorf("DB_MAX_CONNS must be positive")
		}
		if cfg.DBMinConns < 0 {
			return Client{}, fmt.Errorf("DB_MIN_CONNS must be non-negative")
		}
		if cfg.DBMinConns > cfg.DBMaxConns {
			return Client{}, fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
		}
		if cfg.DBStatementCache < 0 {
			return Client{}, fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
		}
	default:
		return Client{}, fmt.Errorf("STORE_DRIVER %q is not supported", cfg.StoreDriver)
	}

	if err := cfg.Log.validate(); err != nil {
		return Client{}, err
	}

	return cfg, nil
}

func loadLog() Log {
	return Log{
		File:       os.Getenv("LOG_FILE"),
		MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 10),
		MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
		Compress:   getEnvBool("LOG_COMPRESS", false),
	}
}

func (l Log) validate() error {
	if l.File == "" {
		return nil
	}
	if l.MaxSizeMB <= 0 {
		return fmt.Errorf("LOG_MAX_SIZE_MB must be positive")
	}
	if l.MaxBackups < 0 {
		return fmt.Errorf("LOG_MAX_BACKUPS must be non-negative")
	}
	if l.MaxAgeDays < 0 {
		return fmt.Errorf("LOG_MAX_AGE_DAYS must be non-negative")
	}
	return nil
}

func validateURL(key, raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", key)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
