package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/language"

	database "github.com/FACorreiaa/go-poi-explore/app/db"
	appMiddleware "github.com/FACorreiaa/go-poi-explore/app/middleware"
	"github.com/FACorreiaa/go-poi-explore/config"
	"github.com/FACorreiaa/go-poi-explore/internal/api"
	"github.com/FACorreiaa/go-poi-explore/internal/api/explore"
	"github.com/FACorreiaa/go-poi-explore/internal/api/favourite"
	"github.com/FACorreiaa/go-poi-explore/internal/api/geoapify"
	"github.com/FACorreiaa/go-poi-explore/internal/api/rating"
	"github.com/FACorreiaa/go-poi-explore/internal/router"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	SQLite *sql.DB

	Places           *geoapify.Client
	RatingService    rating.Service
	FavouriteService favourite.Service
	Explore          *explore.ExploreViewModel
	Authenticator    *appMiddleware.Authenticator

	ExploreHandler   *explore.Handler
	RatingHandler    *rating.Handler
	FavouriteHandler *favourite.Handler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	ratingRepo, favouriteRepo, err := c.openStores(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	secrets := cfg.SecretSource()

	c.Places = geoapify.NewClient(geoapify.Config{
		APIKey:          config.SecretOrEmpty(secrets, config.GeoapifyAPIKey),
		PlacesURL:       cfg.Geoapify.PlacesURL,
		DetailsURL:      cfg.Geoapify.DetailsURL,
		AutocompleteURL: cfg.Geoapify.AutocompleteURL,
		Lang:            cfg.Geoapify.Lang,
		Timeout:         cfg.Geoapify.Timeout,
		CacheTTL:        cfg.Geoapify.CacheTTL,
		RateLimitRPS:    cfg.Geoapify.RateLimitRPS,
		RateLimitBurst:  cfg.Geoapify.RateLimitBurst,
	}, logger)

	c.RatingService = rating.NewService(ratingRepo, logger)
	c.FavouriteService = favourite.NewService(favouriteRepo, logger)
	c.Explore = explore.NewExploreViewModel(exploreConfig(cfg, logger), c.Places, c.RatingService, c.FavouriteService, logger)
	c.Authenticator = appMiddleware.NewAuthenticator(config.SecretOrEmpty(secrets, config.JWTSecret), logger)

	validator := api.NewValidator()
	c.ExploreHandler = explore.NewHandler(c.Explore, validator, logger)
	c.RatingHandler = rating.NewHandler(c.RatingService, validator, logger)
	c.FavouriteHandler = favourite.NewHandler(c.FavouriteService, validator, logger)

	return c, nil
}

// Router builds the HTTP router over the container's handlers.
func (c *Container) Router() chi.Router {
	return router.SetupRouter(&router.Config{
		ExploreHandler:   c.ExploreHandler,
		RatingHandler:    c.RatingHandler,
		FavouriteHandler: c.FavouriteHandler,
		Authenticator:    c.Authenticator,
		Timeout:          c.Config.Server.Timeout,
		Logger:           c.Logger,
	})
}

func (c *Container) openStores(ctx context.Context) (rating.Repository, favourite.Repository, error) {
	switch c.Config.Storage.Driver {
	case "", DriverSQLite:
		path := c.Config.Storage.SQLitePath
		if path == "" {
			path = "explore.db"
		}
		db, err := database.OpenSQLite(path, c.Logger)
		if err != nil {
			c.Logger.Error("Failed to open SQLite store", slog.Any("error", err))
			return nil, nil, err
		}
		c.SQLite = db
		return rating.NewSQLiteRepository(db, c.Logger), favourite.NewSQLiteRepository(db, c.Logger), nil

	case DriverPostgres:
		dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
		if err != nil {
			c.Logger.Error("Failed to generate database config", slog.Any("error", err))
			return nil, nil, err
		}
		if err = database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
			c.Logger.Error("Failed to run database migrations", slog.Any("error", err))
			return nil, nil, err
		}
		pool, err := database.Init(dbConfig.ConnectionURL, c.Logger)
		if err != nil {
			c.Logger.Error("Failed to initialize database pool", slog.Any("error", err))
			return nil, nil, err
		}
		c.Pool = pool

		waitCtx := ctx
		if wait := c.Config.Repositories.Postgres.MAXCONWAITINGTIME; wait > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, time.Duration(wait)*time.Second)
			defer cancel()
		}
		if !database.WaitForDB(waitCtx, pool, c.Logger) {
			return nil, nil, errors.New("database not ready")
		}
		return rating.NewPostgresRepository(pool, c.Logger), favourite.NewPostgresRepository(pool, c.Logger), nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", c.Config.Storage.Driver)
	}
}

func exploreConfig(cfg *config.Config, logger *slog.Logger) explore.Config {
	ec := explore.DefaultConfig()
	e := cfg.Explore
	if e.DefaultLat != 0 || e.DefaultLon != 0 {
		ec.DefaultCenter.Lat = e.DefaultLat
		ec.DefaultCenter.Lon = e.DefaultLon
	}
	if e.DefaultRadiusKm > 0 {
		ec.DefaultRadiusKm = e.DefaultRadiusKm
	}
	if e.DebounceDelay > 0 {
		ec.DebounceDelay = e.DebounceDelay
	}
	if e.FetchTimeout > 0 {
		ec.FetchTimeout = e.FetchTimeout
	}
	if cfg.Geoapify.SearchLimit > 0 {
		ec.SearchLimit = cfg.Geoapify.SearchLimit
	}
	if cfg.Geoapify.SuggestLimit > 0 {
		ec.SuggestLimit = cfg.Geoapify.SuggestLimit
	}
	if e.Locale != "" {
		tag, err := language.Parse(e.Locale)
		if err != nil {
			logger.Warn("Invalid explore locale, keeping default",
				slog.String("locale", e.Locale), slog.Any("error", err))
		} else {
			ec.Locale = tag
		}
	}
	return ec
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Explore != nil {
		c.Explore.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			c.Logger.Warn("Failed to close SQLite store", slog.Any("error", err))
		}
	}
}
