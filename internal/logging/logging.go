package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Clark-Hu/moviefinder/internal/config"
)

// New builds a component logger with the given prefix. When cfg.File is set the
// logger writes to stdout and to a size-rotated file.
func New(prefix string, cfg config.Log) (*log.Logger, io.Closer, error) {
	if cfg.File == "" {
		return log.New(os.Stdout, prefix, log.LstdFlags|log.Lshortfile), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, err
	}
	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	out := io.MultiWriter(os.Stdout, file)

	// chi's request logger and stray log.Printf calls go through the default logger.
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	return log.New(out, prefix, log.LstdFlags|log.Lshortfile), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
