package explore

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-poi-explore/internal/api"
	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

type Handler struct {
	vm        *ExploreViewModel
	validator *api.Validator
	logger    *slog.Logger
}

func NewHandler(vm *ExploreViewModel, validator *api.Validator, logger *slog.Logger) *Handler {
	return &Handler{
		vm:        vm,
		validator: validator,
		logger:    logger,
	}
}

func startSpan(r *http.Request, name, route string) (*http.Request, trace.Span) {
	ctx, span := otel.Tracer("ExploreHandler").Start(r.Context(), name, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	return r.WithContext(ctx), span
}

func (h *Handler) writeState(w http.ResponseWriter, r *http.Request, status int) {
	api.WriteJSONResponse(w, r, status, h.vm.Visible(r.Context()))
}

// GetState handles GET /explore.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "GetState", "/explore")
	defer span.End()
	h.writeState(w, r, http.StatusOK)
}

// SetCategory handles PUT /explore/category.
func (h *Handler) SetCategory(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "SetCategory", "/explore/category")
	defer span.End()

	var req types.SetCategoryRequest
	if !api.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	c, err := types.ParsePlaceCategory(req.Category)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.vm.SetCategory(r.Context(), c)
	h.writeState(w, r, http.StatusOK)
}

// SetRadius handles PUT /explore/radius. The refetch is debounced, so the
// response carries the previous results.
func (h *Handler) SetRadius(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "SetRadius", "/explore/radius")
	defer span.End()

	var req types.SetRadiusRequest
	if !api.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	h.vm.SetRadius(req.RadiusKm)
	h.writeState(w, r, http.StatusAccepted)
}

// Search handles POST /explore/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "Search", "/explore/search")
	defer span.End()

	var req types.SearchRequest
	if !api.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	if req.RadiusKm != nil {
		h.vm.SearchWithRadius(r.Context(), req.Center, *req.RadiusKm)
	} else {
		h.vm.Search(r.Context(), req.Center)
	}
	h.writeState(w, r, http.StatusOK)
}

// Select handles POST /explore/select with a chosen autocomplete result.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "Select", "/explore/select")
	defer span.End()

	var req types.AutocompleteResult
	if !api.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}

	h.vm.SelectSuggestion(r.Context(), req)
	h.writeState(w, r, http.StatusOK)
}

// Reset handles POST /explore/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "Reset", "/explore/reset")
	defer span.End()

	h.vm.Reset(r.Context())
	h.writeState(w, r, http.StatusOK)
}

// SetFilters handles PUT /explore/filters. Absent fields are left unchanged.
func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "SetFilters", "/explore/filters")
	defer span.End()

	var req types.SetFiltersRequest
	if !api.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	if req.Sort != nil {
		mode, err := types.ParseSortMode(*req.Sort)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.vm.SetSort(mode)
	}
	if req.Query != nil {
		h.vm.SetQuery(*req.Query)
	}
	if req.OnlyFavorites != nil {
		h.vm.SetOnlyFavorites(*req.OnlyFavorites)
	}
	h.writeState(w, r, http.StatusOK)
}

// SetListVisible handles PUT /explore/list.
func (h *Handler) SetListVisible(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "SetListVisible", "/explore/list")
	defer span.End()

	var req types.SetListVisibleRequest
	if !api.DecodeAndValidate(w, r, h.validator, &req) {
		return
	}
	h.vm.SetListVisible(req.Visible)
	h.writeState(w, r, http.StatusOK)
}

// PlaceDetails handles GET /explore/places/{placeID}.
func (h *Handler) PlaceDetails(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "PlaceDetails", "/explore/places/{placeID}")
	defer span.End()

	resp, err := h.vm.PlaceDetails(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		if errors.Is(err, ErrPlaceNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Place not found in current results")
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to resolve place details", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to load place")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Autocomplete handles GET /explore/autocomplete?text=.
func (h *Handler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "Autocomplete", "/explore/autocomplete")
	defer span.End()

	api.WriteJSONResponse(w, r, http.StatusOK, h.vm.Suggest(r.Context(), r.URL.Query().Get("text")))
}
