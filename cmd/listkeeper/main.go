package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/listkeeper/internal/config"
	"github.com/dukerupert/listkeeper/internal/database"
	"github.com/dukerupert/listkeeper/internal/logging"
	"github.com/dukerupert/listkeeper/internal/server"
	"github.com/dukerupert/listkeeper/internal/session"
	"github.com/dukerupert/listkeeper/internal/store"
	"github.com/dukerupert/listkeeper/internal/suggest"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "listkeeper: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Storage.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	var suggester session.Suggester
	if cfg.Suggest.Enabled() {
		suggester = suggest.NewClient(cfg.Suggest.BaseURL, cfg.Suggest.APIKey, cfg.Suggest.Timeout, logger)
	} else {
		logger.Info("suggestions disabled, no service URL configured")
	}

	files := store.NewFileStore(cfg.Storage.DataPath, logger)
	sess := session.New(files, suggester, logger)
	srv := server.New(cfg, sess, store.NewBackupStore(db), logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// The session outlives the HTTP server so in-flight requests finish.
	sessCtx, stopSession := context.WithCancel(context.Background())
	defer stopSession()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sess.Run(sessCtx)
	})

	g.Go(func() error {
		logger.Info("listening", "addr", httpServer.Addr, "data_path", files.Path())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		srv.RateLimiter().Run(gctx)
		return nil
	})

	backups := srv.BackupManager()
	backups.Start(gctx)

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)

		backups.Stop()
		sess.WaitPending()
		stopSession()
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}
