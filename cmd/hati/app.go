package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xiaot623/hati/internal/adapter/giphy"
	"github.com/xiaot623/hati/internal/adapter/llm"
	"github.com/xiaot623/hati/internal/adapter/osm"
	"github.com/xiaot623/hati/internal/adapter/spotify"
	"github.com/xiaot623/hati/internal/adapter/tmdb"
	"github.com/xiaot623/hati/internal/cache"
	"github.com/xiaot623/hati/internal/config"
	"github.com/xiaot623/hati/internal/domain"
	"github.com/xiaot623/hati/internal/history"
	"github.com/xiaot623/hati/internal/logging"
	"github.com/xiaot623/hati/internal/policy"
	"github.com/xiaot623/hati/internal/repository"
	"github.com/xiaot623/hati/internal/service"
	"github.com/xiaot623/hati/internal/specialist"
)

// app is the wired server graph shared by every subcommand.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   *repository.SQLiteStore
	backend llm.Backend
	catalog *specialist.Catalog
	svc     *service.Service
}

func newApp(ctx context.Context, configFile string) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a, err := wire(ctx, cfg, log, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// wire builds the specialists and the dispatcher on top of an open store.
func wire(ctx context.Context, cfg *config.Config, log *zap.Logger, db *repository.SQLiteStore) (*app, error) {
	catalog, err := specialist.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	backend := llm.NewBackend(cfg.Mode, cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout, log)
	results := cache.New(db, log)
	conversations := history.NewCompactor(db, history.NewLLMSummarizer(backend), log)

	tracks := spotify.NewClient(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.ProviderTimeout)
	gifs := giphy.NewClient(cfg.Giphy.APIKey, cfg.ProviderTimeout)
	movies := tmdb.NewClient(cfg.TMDB.APIKey, cfg.ProviderTimeout)
	places := osm.NewClient(cfg.OSM.BaseURL, cfg.OSM.UserAgent, cfg.ProviderTimeout)

	registry, err := specialist.NewRegistry(
		specialist.NewMusic(tracks, results, db, catalog, log),
		specialist.NewEntertainment(gifs, movies, results, db, catalog, log),
		specialist.NewRelaxation(places, results, catalog, log),
		specialist.NewReflection(backend, conversations, catalog, log),
	)
	if err != nil {
		return nil, err
	}

	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy, domain.DefaultAgent)
	if err != nil {
		return nil, fmt.Errorf("init policy engine: %w", err)
	}

	svc := service.New(service.Deps{
		Store:     db,
		Completer: backend,
		Registry:  registry,
		Policy:    engine,
		History:   conversations,
		Cache:     results,
		Log:       log,
	})

	for name, ok := range map[string]bool{
		"spotify": tracks.Configured(),
		"giphy":   gifs.Configured(),
		"tmdb":    movies.Configured(),
	} {
		if !ok {
			log.Warn("provider not configured, its specialist will use fallbacks", zap.String("provider", name))
		}
	}

	return &app{
		cfg:     cfg,
		log:     log,
		store:   db,
		backend: backend,
		catalog: catalog,
		svc:     svc,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	_ = a.log.Sync()
}
