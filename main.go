package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jubilio/mwanga/config"
	"github.com/Jubilio/mwanga/database"
	"github.com/Jubilio/mwanga/eventlogger"
	"github.com/Jubilio/mwanga/ledger"
	"github.com/Jubilio/mwanga/session"
	"github.com/Jubilio/mwanga/user"
	"github.com/Jubilio/mwanga/xitique"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		printErrorAndExit("loading config", err)
	}
	setupLogger(cfg)

	dialect, err := database.ParseDialect(cfg.DBDriver)
	if err != nil {
		printErrorAndExit("database driver", err)
	}
	db, err := database.Open(context.Background(), dialect, cfg.DatabaseURL)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	defer db.Close()
	slog.Info("database ready", "dialect", db.Dialect())

	evtlogger := eventlogger.NewSqlEventLogger(db)
	worker := eventlogger.NewWorker(evtlogger, cfg.AuditBufferSize)
	worker.Start()
	defer worker.Shutdown()

	router := newRouter(app{
		users:         user.NewRepository(db),
		sessions:      session.NewRepository(db),
		circles:       xitique.NewService(db, xitique.WithAuditor(worker)),
		ledger:        ledger.NewRepository(db),
		audit:         worker,
		secureCookies: cfg.SecureCookies,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
		close(stopped)
	}()

	slog.Info("server starting", "addr", cfg.Addr(), "driver", cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return
	}

	<-stopped
	slog.Info("server stopped")
}

func setupLogger(cfg config.Config) {
	level, _ := cfg.Level()
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
