package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/docmatch/internal/app"
	"github.com/MrJamesThe3rd/docmatch/internal/config"
	docmatchHttp "github.com/MrJamesThe3rd/docmatch/internal/http"
	batchHandler "github.com/MrJamesThe3rd/docmatch/internal/http/batch"
	documentHandler "github.com/MrJamesThe3rd/docmatch/internal/http/document"
	"github.com/MrJamesThe3rd/docmatch/internal/http/health"
	matchingHandler "github.com/MrJamesThe3rd/docmatch/internal/http/matching"
	reportHandler "github.com/MrJamesThe3rd/docmatch/internal/http/report"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	limits := matchingHandler.Limits{
		MaxCandidates: cfg.Matching.MaxCandidates,
		ProcessingCap: cfg.Matching.ProcessingCap,
	}

	var (
		healthH    = health.NewHandler(a.DB)
		matchingH  = matchingHandler.NewHandler(a.Matching, limits)
		batchH     = batchHandler.NewHandler(a.Jobs, cfg.Matching.MaxCandidates)
		documentsH = documentHandler.NewHandler(a.Documents, a.Matching, a.Importer, cfg.Matching.ProcessingCap)
		reportsH   = reportHandler.NewHandler(a.Reports, a.Export)
	)

	if cfg.Server.AuthSecret == "" {
		slog.Warn("AUTH_SECRET not set, API authentication disabled")
	}

	router := docmatchHttp.New(docmatchHttp.Options{
		AuthSecret:     cfg.Server.AuthSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, healthH, matchingH, batchH, documentsH, reportsH)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server", "port", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
