package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appLogger "github.com/FACorreiaa/go-poi-explore/app/logger"
	appMiddleware "github.com/FACorreiaa/go-poi-explore/app/middleware"
	"github.com/FACorreiaa/go-poi-explore/internal/api/explore"
	"github.com/FACorreiaa/go-poi-explore/internal/api/favourite"
	"github.com/FACorreiaa/go-poi-explore/internal/api/rating"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ExploreHandler   *explore.Handler
	RatingHandler    *rating.Handler
	FavouriteHandler *favourite.Handler
	// Authenticator guards persistent writes. A nil Authenticator lets
	// every request through.
	Authenticator  *appMiddleware.Authenticator
	AllowedOrigins []string
	Timeout        time.Duration
	Logger         *slog.Logger
}

// SetupRouter initializes and configures the main application router.
func SetupRouter(cfg *Config) chi.Router {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(middleware.Timeout(timeout))
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	requireAuth := cfg.Authenticator.RequireAuth

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/explore", func(r chi.Router) {
			h := cfg.ExploreHandler
			r.Get("/", h.GetState)
			r.Put("/category", h.SetCategory)
			r.Put("/radius", h.SetRadius)
			r.Post("/search", h.Search)
			r.Post("/select", h.Select)
			r.Post("/reset", h.Reset)
			r.Put("/filters", h.SetFilters)
			r.Put("/list", h.SetListVisible)
			r.Get("/places/{placeID}", h.PlaceDetails)
			r.Get("/autocomplete", h.Autocomplete)
		})

		r.Get("/places/{placeID}/rating", cfg.RatingHandler.GetSummary)
		r.Get("/favourites", cfg.FavouriteHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/places/{placeID}/ratings", cfg.RatingHandler.AddRating)
			r.Post("/favourites/toggle", cfg.FavouriteHandler.Toggle)
			r.Delete("/favourites/{placeID}", cfg.FavouriteHandler.Remove)
		})
	})

	return r
}
