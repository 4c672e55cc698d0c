package explore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/FACorreiaa/go-poi-explore/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-explore/internal/api/geoapify"
	"github.com/FACorreiaa/go-poi-explore/internal/debounce"
	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

var ErrPlaceNotFound = errors.New("place is not in the current results")

const (
	genericFetchError = "Something went wrong while fetching places."
	minSuggestChars   = 3
)

// SearchClient is the place provider used by the view model.
type SearchClient interface {
	SearchNearby(ctx context.Context, center types.LatLon, category types.PlaceCategory, radiusKm float64, limit int) ([]types.Place, error)
	FetchDetails(ctx context.Context, placeID string) (types.PlaceDetailPatch, error)
	Autocomplete(ctx context.Context, text string, limit int) ([]types.AutocompleteResult, error)
}

type RatingReader interface {
	AverageFill(ctx context.Context, placeID string) (float64, error)
	AverageFills(ctx context.Context, placeIDs []string) (map[string]float64, error)
}

type FavouriteReader interface {
	IDs(ctx context.Context) (map[string]struct{}, error)
	IsFavourite(ctx context.Context, placeID string) (bool, error)
	Get(ctx context.Context, placeID string) (types.FavoritePlace, error)
}

type Config struct {
	DefaultCenter   types.LatLon
	DefaultRadiusKm float64
	DefaultCategory types.PlaceCategory
	SearchLimit     int
	SuggestLimit    int
	DebounceDelay   time.Duration
	// FetchTimeout bounds fetches that have no caller context (debounced ones).
	FetchTimeout time.Duration
	Locale       language.Tag
}

// DefaultConfig centres on Oslo S with a 5 km restaurant search.
func DefaultConfig() Config {
	return Config{
		DefaultCenter:   types.LatLon{Lat: 59.9111, Lon: 10.7503},
		DefaultRadiusKm: 5,
		DefaultCategory: types.CategoryRestaurant,
		SearchLimit:     10,
		SuggestLimit:    5,
		DebounceDelay:   300 * time.Millisecond,
		FetchTimeout:    15 * time.Second,
		Locale:          language.Norwegian,
	}
}

// ExploreViewModel owns the explore screen state. All mutations go through
// its methods; readers get copies.
type ExploreViewModel struct {
	cfg        Config
	client     SearchClient
	ratings    RatingReader
	favourites FavouriteReader
	logger     *slog.Logger

	debouncer *debounce.Debouncer
	// baseCtx parents debounced fetches; cancelled by Close.
	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu    sync.Mutex
	state types.ExploreState
	// seq is the number of the most recently issued fetch.
	seq uint64
}

func NewExploreViewModel(cfg Config, client SearchClient, ratings RatingReader, favourites FavouriteReader, logger *slog.Logger) *ExploreViewModel {
	baseCtx, cancel := context.WithCancel(context.Background())
	vm := &ExploreViewModel{
		cfg:        cfg,
		client:     client,
		ratings:    ratings,
		favourites: favourites,
		logger:     logger.With(slog.String("component", "explore")),
		debouncer:  debounce.New(),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
	vm.debouncer.OnSuperseded = func() {
		metrics.Get().DebounceSuperseded.Add(context.Background(), 1)
	}
	vm.state = vm.defaultState()
	return vm
}

func (vm *ExploreViewModel) defaultState() types.ExploreState {
	return types.ExploreState{
		Category: vm.cfg.DefaultCategory,
		Center:   vm.cfg.DefaultCenter,
		RadiusKm: vm.cfg.DefaultRadiusKm,
		Places:   []types.Place{},
		Sort:     types.SortDistance,
	}
}

// Close drops any pending debounced fetch and cancels fetches it started.
func (vm *ExploreViewModel) Close() {
	vm.debouncer.Stop()
	vm.cancelBase()
}

// State returns a copy of the current state.
func (vm *ExploreViewModel) State() types.ExploreState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.snapshotLocked()
}

func (vm *ExploreViewModel) snapshotLocked() types.ExploreState {
	s := vm.state
	s.Places = append([]types.Place(nil), vm.state.Places...)
	if s.Places == nil {
		s.Places = []types.Place{}
	}
	if vm.state.ErrorMessage != nil {
		msg := *vm.state.ErrorMessage
		s.ErrorMessage = &msg
	}
	return s
}

// Fetch searches around center for the current category and replaces the
// results. Failures become an error message on the state. A completion that
// is not from the latest issued fetch is discarded.
func (vm *ExploreViewModel) Fetch(ctx context.Context, center types.LatLon, radiusKm float64) {
	vm.mu.Lock()
	vm.seq++
	seq := vm.seq
	vm.state.IsLoading = true
	vm.state.ErrorMessage = nil
	vm.state.Center = center
	vm.state.RadiusKm = radiusKm
	category := vm.state.Category
	limit := vm.cfg.SearchLimit
	vm.mu.Unlock()

	ctx, span := otel.Tracer("ExploreViewModel").Start(ctx, "Fetch", trace.WithAttributes(
		attribute.Int64("fetch.seq", int64(seq)),
		attribute.String("category", string(category)),
		attribute.Float64("radius_km", radiusKm),
	))
	defer span.End()

	places, err := vm.client.SearchNearby(ctx, center, category, radiusKm, limit)

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if seq != vm.seq {
		vm.logger.DebugContext(ctx, "Discarding stale fetch result",
			slog.Uint64("seq", seq), slog.Uint64("latest", vm.seq))
		metrics.Get().StaleResultsDiscarded.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("fetch.stale", true))
		return
	}

	vm.state.IsLoading = false
	if err == nil {
		vm.state.Places = places
		span.SetAttributes(attribute.Int("places.count", len(places)))
		span.SetStatus(codes.Ok, "places fetched")
		return
	}

	span.RecordError(err)
	var gErr *geoapify.Error
	switch {
	case errors.As(err, &gErr) && gErr.Kind == geoapify.KindCancelled:
		// caller went away; keep what is on screen
		vm.logger.DebugContext(ctx, "Fetch cancelled", slog.Uint64("seq", seq))
		return
	case errors.As(err, &gErr):
		msg := gErr.UserMessage()
		vm.state.ErrorMessage = &msg
	default:
		msg := genericFetchError
		vm.state.ErrorMessage = &msg
	}
	vm.state.Places = []types.Place{}
	span.SetStatus(codes.Error, *vm.state.ErrorMessage)
	vm.logger.WarnContext(ctx, "Fetch failed", slog.Uint64("seq", seq), slog.Any("error", err))
}

// DebouncedFetch schedules a Fetch after delay; a later call within the
// window replaces it.
func (vm *ExploreViewModel) DebouncedFetch(center types.LatLon, radiusKm float64, delay time.Duration) {
	vm.debouncer.Schedule(delay, func() {
		ctx, cancel := context.WithTimeout(vm.baseCtx, vm.cfg.FetchTimeout)
		defer cancel()
		vm.Fetch(ctx, center, radiusKm)
	})
}

// SetCategory switches category and refetches at the current center and radius.
func (vm *ExploreViewModel) SetCategory(ctx context.Context, c types.PlaceCategory) {
	vm.mu.Lock()
	vm.state.Category = c
	center, radius := vm.state.Center, vm.state.RadiusKm
	vm.mu.Unlock()

	vm.Fetch(ctx, center, radius)
}

// SetRadius records the radius immediately and debounces the refetch.
func (vm *ExploreViewModel) SetRadius(radiusKm float64) {
	vm.mu.Lock()
	vm.state.RadiusKm = radiusKm
	center := vm.state.Center
	vm.mu.Unlock()

	vm.DebouncedFetch(center, radiusKm, vm.cfg.DebounceDelay)
}

// Search recenters on center and fetches with the current radius.
func (vm *ExploreViewModel) Search(ctx context.Context, center types.LatLon) {
	vm.mu.Lock()
	radius := vm.state.RadiusKm
	vm.mu.Unlock()

	vm.debouncer.Cancel()
	vm.Fetch(ctx, center, radius)
}

// SearchWithRadius recenters on center with an explicit radius. A pending
// debounced refetch is dropped so it cannot land after this search.
func (vm *ExploreViewModel) SearchWithRadius(ctx context.Context, center types.LatLon, radiusKm float64) {
	vm.debouncer.Cancel()
	vm.Fetch(ctx, center, radiusKm)
}

// SelectSuggestion fills the query with the chosen address, searches there
// and hides the list.
func (vm *ExploreViewModel) SelectSuggestion(ctx context.Context, s types.AutocompleteResult) {
	vm.mu.Lock()
	vm.state.Query = s.Formatted
	radius := vm.state.RadiusKm
	vm.mu.Unlock()

	vm.debouncer.Cancel()
	vm.Fetch(ctx, s.Coordinate(), radius)

	vm.mu.Lock()
	vm.state.ListVisible = false
	vm.mu.Unlock()
}

// Reset restores the defaults and fetches at the default center.
func (vm *ExploreViewModel) Reset(ctx context.Context) {
	vm.debouncer.Cancel()

	vm.mu.Lock()
	d := vm.defaultState()
	vm.state.Query = d.Query
	vm.state.RadiusKm = d.RadiusKm
	vm.state.Category = d.Category
	vm.state.Sort = d.Sort
	vm.state.OnlyFavorites = d.OnlyFavorites
	vm.state.Center = d.Center
	vm.mu.Unlock()

	vm.Fetch(ctx, d.Center, d.RadiusKm)
}

func (vm *ExploreViewModel) SetQuery(q string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Query = q
}

func (vm *ExploreViewModel) SetSort(s types.SortMode) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Sort = s
}

func (vm *ExploreViewModel) SetOnlyFavorites(only bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.OnlyFavorites = only
}

func (vm *ExploreViewModel) SetListVisible(visible bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.ListVisible = visible
}

// Visible projects the current results with favourites and rating fills.
// Store read failures degrade to no favourites and zero fills.
func (vm *ExploreViewModel) Visible(ctx context.Context) types.ExploreResponse {
	state := vm.State()

	favIDs, err := vm.favourites.IDs(ctx)
	if err != nil {
		vm.logger.WarnContext(ctx, "Could not load favourites, rendering without them", slog.Any("error", err))
		favIDs = map[string]struct{}{}
	}

	ids := make([]string, len(state.Places))
	for i, p := range state.Places {
		ids[i] = p.ID
	}
	fills, err := vm.ratings.AverageFills(ctx, ids)
	if err != nil {
		vm.logger.WarnContext(ctx, "Could not load ratings, rendering without them", slog.Any("error", err))
		fills = map[string]float64{}
	}

	projected := Project(state.Places, ProjectionParams{
		Query:         state.Query,
		Sort:          state.Sort,
		OnlyFavorites: state.OnlyFavorites,
		FavoriteIDs:   favIDs,
		Center:        state.Center,
		RatingLookup:  func(id string) float64 { return fills[id] },
		Locale:        vm.cfg.Locale,
	})

	visible := make([]types.VisiblePlace, len(projected))
	for i, p := range projected {
		_, isFav := favIDs[p.ID]
		visible[i] = types.VisiblePlace{
			Place:          p,
			AverageFill:    fills[p.ID],
			IsFavourite:    isFav,
			DistanceMeters: DistanceMeters(state.Center, p.Coordinate),
			Glyph:          glyphFor(p),
		}
	}
	return types.ExploreResponse{State: state, Visible: visible}
}

// PlaceDetails enriches a place with provider details. The place comes from
// the current results, or from the saved favourite snapshot when it is not
// among them. Provider failures fall back to the known place.
func (vm *ExploreViewModel) PlaceDetails(ctx context.Context, placeID string) (types.PlaceDetailsResponse, error) {
	ctx, span := otel.Tracer("ExploreViewModel").Start(ctx, "PlaceDetails", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	place, ok := vm.findPlace(placeID)
	if !ok {
		fav, err := vm.favourites.Get(ctx, placeID)
		if err != nil {
			if !errors.Is(err, types.ErrNotFound) {
				vm.logger.WarnContext(ctx, "Could not load favourite snapshot",
					slog.String("place_id", placeID), slog.Any("error", err))
			}
			span.SetStatus(codes.Error, "place not found")
			return types.PlaceDetailsResponse{}, ErrPlaceNotFound
		}
		place = fav.Place()
		span.AddEvent("resolved from favourites")
	}

	merged := place
	if patch, err := vm.client.FetchDetails(ctx, placeID); err != nil {
		vm.logger.WarnContext(ctx, "Place details unavailable, using search result",
			slog.String("place_id", placeID), slog.Any("error", err))
		span.AddEvent("details unavailable")
	} else {
		merged = patch.ApplyTo(place)
	}

	fill, err := vm.ratings.AverageFill(ctx, placeID)
	if err != nil {
		vm.logger.WarnContext(ctx, "Could not load rating", slog.String("place_id", placeID), slog.Any("error", err))
	}
	isFav, err := vm.favourites.IsFavourite(ctx, placeID)
	if err != nil {
		vm.logger.WarnContext(ctx, "Could not load favourite state", slog.String("place_id", placeID), slog.Any("error", err))
	}

	resp := types.PlaceDetailsResponse{
		Place:       merged,
		AverageFill: fill,
		IsFavourite: isFav,
	}
	if merged.Category != nil {
		resp.Animation = types.CategoryAnimationFor(*merged.Category)
	}
	span.SetStatus(codes.Ok, "details resolved")
	return resp, nil
}

// Suggest returns address suggestions once text has at least three
// characters. Provider failures yield no suggestions.
func (vm *ExploreViewModel) Suggest(ctx context.Context, text string) []types.AutocompleteResult {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minSuggestChars {
		return []types.AutocompleteResult{}
	}
	out, err := vm.client.Autocomplete(ctx, text, vm.cfg.SuggestLimit)
	if err != nil {
		vm.logger.WarnContext(ctx, "Autocomplete failed", slog.Any("error", err))
		return []types.AutocompleteResult{}
	}
	return out
}

func (vm *ExploreViewModel) findPlace(id string) (types.Place, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	for _, p := range vm.state.Places {
		if p.ID == id {
			return p, true
		}
	}
	return types.Place{}, false
}

func glyphFor(p types.Place) string {
	if p.Category == nil {
		return types.PlaceCategory("").Glyph()
	}
	c, _ := types.InferCategory([]string{*p.Category})
	return c.Glyph()
}
