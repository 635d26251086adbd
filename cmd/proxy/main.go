package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Clark-Hu/moviefinder/internal/config"
	httpserver "github.com/Clark-Hu/moviefinder/internal/http"
	"github.com/Clark-Hu/moviefinder/internal/logging"
	"github.com/Clark-Hu/moviefinder/internal/provider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadProxy()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, closer, err := logging.New("[movies-proxy] ", cfg.Log)
	if err != nil {
		log.Fatalf("init logging: %v", err)
	}
	defer closer.Close()

	// Never log the key itself.
	logger.Printf("upstream %s (api key configured: %t)", cfg.TMDBBaseURL, cfg.TMDBAPIKey != "")

	upstream, err := provider.NewHTTPClient(cfg.TMDBBaseURL, cfg.TMDBAPIKey, time.Duration(cfg.TMDBTimeoutSecs)*time.Second, logger)
	if err != nil {
		log.Fatalf("init provider client: %v", err)
	}

	server := httpserver.New(cfg, upstream, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Printf("server error: %v", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("graceful shutdown error: %v", err)
	}
}
