package favourite

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

// List handles GET /favourites.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FavouriteHandler").Start(r.Context(), "List", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favourites"),
	))
	defer span.End()

	favs, err := h.service.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list favourites")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load favourites")
		return
	}

	span.SetStatus(codes.Ok, "Favourites listed")
	api.WriteJSONResponse(w, r, http.StatusOK, favs)
}

// Toggle handles POST /favourites/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FavouriteHandler").Start(r.Context(), "Toggle", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favourites/toggle"),
	))
	defer span.End()

	var req types.ToggleFavouriteRequest
	if !api.DecodeAndValidate(w, r, h.validator, &req) {
		span.SetStatus(codes.Error, "Invalid request body")
		return
	}

	isFav, err := h.service.Toggle(ctx, req.Place())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to toggle favourite")
		if errors.Is(err, ErrMissingPlaceID) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "Failed to toggle favourite", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update favourite")
		return
	}

	span.SetStatus(codes.Ok, "Favourite toggled")
	api.WriteJSONResponse(w, r, http.StatusOK, types.ToggleFavouriteResponse{PlaceID: req.ID, IsFavourite: isFav})
}

// Remove handles DELETE /favourites/{placeID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("FavouriteHandler").Start(r.Context(), "Remove", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/favourites/{placeID}"),
	))
	defer span.End()

	if err := h.service.Remove(ctx, chi.URLParam(r, "placeID")); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to remove favourite")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to remove favourite")
		return
	}

	span.SetStatus(codes.Ok, "Favourite removed")
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}
