package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cartelera/internal/cache"
	"github.com/iliyamo/cartelera/internal/config"
	"github.com/iliyamo/cartelera/internal/database"
	"github.com/iliyamo/cartelera/internal/logging"
	"github.com/iliyamo/cartelera/internal/reconcile"
	"github.com/iliyamo/cartelera/internal/registry"
	"github.com/iliyamo/cartelera/internal/repository"
	"github.com/iliyamo/cartelera/internal/scraper"
	"github.com/iliyamo/cartelera/internal/service"
	"github.com/iliyamo/cartelera/internal/tmdb"
)

// app is the wiring shared by every command.
type app struct {
	cfg config.Config
	log *zap.Logger
	db  *sql.DB
	rdb *redis.Client
	svc *service.ListingService
}

// newApp connects the store, the cache and the catalog and builds the
// listing service.  The catalog is optional so commands that never enrich
// run without a TMDB key.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	a.db, err = database.Open(ctx, cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := database.Migrate(ctx, a.db, cfg.Store.Driver, log); err != nil {
		a.Close()
		return nil, err
	}
	dialect := repository.SQLite
	if cfg.Store.Driver == database.DriverMySQL {
		dialect = repository.MySQL
	}

	if cfg.Cache.Backend == "redis" || cfg.RateLimit.Enabled {
		if a.rdb = config.NewRedisClient(cfg.Redis); a.rdb == nil {
			log.Warn("redis unreachable, using memory cache and no rate limiting", zap.String("addr", cfg.Redis.Addr))
		}
	}
	var store cache.Store
	if cfg.Cache.Backend == "redis" && a.rdb != nil {
		store = cache.NewRedis(a.rdb, cfg.Cache.Prefix, cfg.Cache.MaxEntries)
	} else if store, err = cache.NewMemory(cfg.Cache.MaxEntries); err != nil {
		a.Close()
		return nil, err
	}

	fetcher := scraper.NewFetcher(nil, cfg.Scrape.UserAgent, cfg.Scrape.Timeout)
	deps := service.Deps{
		Registry:  registry.New(registry.DefaultSeeds()),
		Adapters:  scraper.NewRegistry(fetcher, log),
		Cache:     store,
		Directory: scraper.NewDirectory(fetcher, log),
		Venues:    repository.NewVenueRepo(a.db, dialect),
		Shows:     repository.NewShowRepo(a.db, dialect),
	}
	if cfg.TMDB.APIKey != "" {
		client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
			tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond, cfg.TMDB.Burst))
		if err != nil {
			a.Close()
			return nil, err
		}
		catalog := tmdb.NewCached(client, store, cfg.Cache.LongTTL, log)
		deps.Reconciler = reconcile.New(catalog, log, reconcile.WithCurrentYearSearch(cfg.TMDB.SearchCurrentYear))
	}
	if cfg.AMQP.Enabled {
		deps.Publisher = service.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.EventsQueue, log)
	}

	a.svc = service.NewListingService(deps, service.Options{
		ShortTTL:     cfg.Cache.ShortTTL,
		DirectoryURL: cfg.Scrape.DirectoryURL,
		Parallelism:  cfg.Scrape.RefreshParallelism,
	}, log)
	return a, nil
}

// requireCatalog fails when enrichment is requested without a TMDB key.
func (a *app) requireCatalog() error {
	if a.svc.Reconciler == nil {
		return errors.New("missing required env var: TMDB_API_KEY")
	}
	return nil
}

// Close releases every connection the app opened.
func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.log.Sync()
}
