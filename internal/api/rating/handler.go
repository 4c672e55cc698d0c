package rating

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-poi-explore/internal/api"
	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

type Handler struct {
	service   Service
	validator *api.Validator
	logger    *slog.Logger
}

func NewHandler(service Service, validator *api.Validator, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		validator: validator,
		logger:    logger,
	}
}

// AddRating handles POST /places/{placeID}/ratings.
func (h *Handler) AddRating(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RatingHandler").Start(r.Context(), "AddRating", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/places/{placeID}/ratings"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "AddRating"))
	placeID := chi.URLParam(r, "placeID")

	var req types.AddRatingRequest
	if !api.DecodeAndValidate(w, r, h.validator, &req) {
		span.SetStatus(codes.Error, "Invalid request body")
		return
	}

	rating, err := h.service.AddRating(ctx, placeID, req.Value)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to add rating")
		switch {
		case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrMissingPlaceID):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		default:
			l.ErrorContext(ctx, "Failed to add rating", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to save rating")
		}
		return
	}

	span.SetStatus(codes.Ok, "Rating added")
	api.WriteJSONResponse(w, r, http.StatusCreated, rating)
}

// GetSummary handles GET /places/{placeID}/rating.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("RatingHandler").Start(r.Context(), "GetSummary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/places/{placeID}/rating"),
	))
	defer span.End()

	summary, err := h.service.Summary(ctx, chi.URLParam(r, "placeID"))
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to load rating summary", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load rating summary")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load ratings")
		return
	}

	span.SetStatus(codes.Ok, "Summary retrieved")
	api.WriteJSONResponse(w, r, http.StatusOK, summary)
}
