// Package app wires the services shared by the API server and the TUI.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MrJamesThe3rd/docmatch/internal/config"
	"github.com/MrJamesThe3rd/docmatch/internal/database"
	"github.com/MrJamesThe3rd/docmatch/internal/document"
	docStore "github.com/MrJamesThe3rd/docmatch/internal/document/store"
	"github.com/MrJamesThe3rd/docmatch/internal/embedding"
	"github.com/MrJamesThe3rd/docmatch/internal/export"
	"github.com/MrJamesThe3rd/docmatch/internal/importer"
	"github.com/MrJamesThe3rd/docmatch/internal/itempairing"
	"github.com/MrJamesThe3rd/docmatch/internal/job"
	jobStore "github.com/MrJamesThe3rd/docmatch/internal/job/store"
	"github.com/MrJamesThe3rd/docmatch/internal/matching"
	matchingStore "github.com/MrJamesThe3rd/docmatch/internal/matching/store"
	"github.com/MrJamesThe3rd/docmatch/internal/pairing"
	"github.com/MrJamesThe3rd/docmatch/internal/report"
	reportStore "github.com/MrJamesThe3rd/docmatch/internal/report/store"
	"github.com/MrJamesThe3rd/docmatch/internal/scoring"
)

type App struct {
	DB        *sql.DB
	Documents *document.Service
	Matching  *matching.Service
	Reports   *report.Service
	Jobs      *job.Service
	Importer  *importer.Service
	Export    *export.Service

	closers []func() error
}

// New connects to the database, applies the schema and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	engine, closeEngine, err := Engine(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	reportSvc := report.NewService(reportStore.New(db))
	matchSvc := matching.NewService(matchingStore.New(db), reportSvc, engine)

	return &App{
		DB:        db,
		Documents: document.NewService(docStore.New(db)),
		Matching:  matchSvc,
		Reports:   reportSvc,
		Jobs:      job.NewService(jobStore.New(db), matchSvc, cfg.Matching.ProcessingCap),
		Importer:  importer.NewService(),
		Export:    export.NewService(reportSvc),
		closers:   []func() error{closeEngine, db.Close},
	}, nil
}

// Close waits for running batch jobs and releases the connections.
func (a *App) Close() error {
	a.Jobs.Wait()

	var errs []error

	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Engine builds the matching stages from cfg. With models disabled the
// predictor runs reference logic only and item comparison is reported as
// unavailable.
func Engine(cfg *config.Config) (matching.Engine, func() error, error) {
	var (
		scorer   pairing.Scorer
		embedder itempairing.Embedder
		closer   = func() error { return nil }
	)

	if !cfg.Models.Disabled {
		if path := cfg.Models.ScoringModelPath; path != "" {
			m, err := scoring.Load(path)
			if err != nil {
				return matching.Engine{}, nil, err
			}

			scorer = m

			slog.Info("loaded scoring model", "path", path)
		}

		client := embedding.NewClient(
			embedding.WithBaseURL(cfg.Models.EmbeddingURL),
			embedding.WithModel(cfg.Models.EmbeddingModel),
		)

		var cache embedding.Cache

		if addr := cfg.Cache.RedisAddr; addr != "" {
			pool := embedding.NewPool(addr)
			cache = embedding.NewRedisCache(pool, cfg.Cache.TTL)
			closer = pool.Close

			slog.Info("using redis embedding cache", "addr", addr)
		} else {
			cache = embedding.NewMemoryCache(cfg.Cache.MemoryLimit)
		}

		embedder = embedding.NewCachedEmbedder(client, cache, client.Model())
	} else {
		slog.Warn("models disabled, matching by reference only")
	}

	opts := pairing.DefaultOptions()
	opts.Threshold = cfg.Matching.PairingThreshold
	opts.UseReferenceLogic = cfg.Matching.UseReferenceLogic || scorer == nil
	opts.IgnoreChronology = cfg.Matching.IgnoreChronology

	predictor := pairing.NewPredictor(scorer, pairing.Config{
		FilterBySupplier:    cfg.Matching.FilterBySupplier,
		AcceptanceThreshold: cfg.Matching.AcceptanceThreshold,
	})

	assembler := report.NewAssembler(report.Thresholds{
		Matched: cfg.Matching.MatchThreshold,
		NoMatch: cfg.Matching.NoMatchThreshold,
	})

	engine := matching.Engine{
		Predictor: predictor,
		Items:     itempairing.NewService(embedder),
		Assembler: assembler,
		Options:   opts,
	}

	return engine, closer, nil
}
