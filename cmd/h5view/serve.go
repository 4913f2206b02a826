package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robert-malhotra/h5view/internal/catalog"
	"github.com/robert-malhotra/h5view/internal/config"
	"github.com/robert-malhotra/h5view/internal/container"
	"github.com/robert-malhotra/h5view/internal/metrics"
	"github.com/robert-malhotra/h5view/internal/server"
	"github.com/robert-malhotra/h5view/internal/session"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	listen := fs.String("listen", "", "listen address (overrides the config file)")
	level := fs.String("log-level", "", "debug, info, warn or error (overrides the config file)")
	if _, err := positional(fs, args); err != nil {
		return err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.Logger(os.Stderr)

	cat, err := catalog.Open(cfg.DBPath, cfg.UploadDir, cfg.MaxUploadBytes())
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer cat.Close()

	m := metrics.New()
	sessions := session.NewManager(container.HDF5{}, cfg.Session(), logger)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(cat, sessions, m, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		logger.Info("server starting", "listen", cfg.Listen, "upload_dir", cfg.UploadDir,
			"validity", cfg.Session().ValidityPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
