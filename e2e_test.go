package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"github.com/FACorreiaa/go-poi-explore/config"
	"github.com/FACorreiaa/go-poi-explore/internal/container"
	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

const (
	providerOK = iota
	providerFailing
	providerEmpty
)

const placesFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"properties": {"place_id": "p-far", "name": "Alpha Bistro", "categories": ["catering.restaurant"]},
     "geometry": {"type": "Point", "coordinates": [10.7600, 59.9300]}},
    {"properties": {"place_id": "p-near", "name": "Fiskeriet", "address_line2": "Youngstorget 2b, Oslo", "categories": ["catering.restaurant"]},
     "geometry": {"type": "Point", "coordinates": [10.7510, 59.9120]}},
    {"properties": {"place_id": "p-mid", "name": "Mathallen", "categories": ["catering.restaurant"]},
     "geometry": {"type": "Point", "coordinates": [10.7520, 59.9200]}}
  ]
}`

const detailsFixture = `{"features": [{"properties": {"name": "Fiskeriet Youngstorget", "contact": {"phone": "+47 22 00 00 00"}}}]}`

const autocompleteFixture = `{"features": [{"properties": {"formatted": "Oslo, Norway", "lat": 59.91, "lon": 10.75}}]}`

var osloS = types.LatLon{Lat: 59.9111, Lon: 10.7503}

// E2ETestSuite drives the real router over an in-memory store and a fake
// Geoapify server.
type E2ETestSuite struct {
	suite.Suite
	provider     *httptest.Server
	providerMode atomic.Int32
	container    *container.Container
	server       *httptest.Server
	client       *http.Client
	token        string
}

func TestE2ESuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}

func (s *E2ETestSuite) SetupSuite() {
	s.provider = httptest.NewServer(http.HandlerFunc(s.serveProvider))
	s.client = &http.Client{Timeout: 10 * time.Second}
}

func (s *E2ETestSuite) TearDownSuite() {
	s.provider.Close()
}

func (s *E2ETestSuite) SetupTest() {
	s.providerMode.Store(providerOK)

	cfg := &config.Config{Service: "go-poi-explore-e2e"}
	cfg.Server.Timeout = 10 * time.Second
	cfg.Storage.Driver = container.DriverSQLite
	cfg.Storage.SQLitePath = ":memory:"
	cfg.Geoapify.PlacesURL = s.provider.URL + "/v2/places"
	cfg.Geoapify.DetailsURL = s.provider.URL + "/v2/place-details"
	cfg.Geoapify.AutocompleteURL = s.provider.URL + "/v1/geocode/autocomplete"
	cfg.Geoapify.Timeout = 5 * time.Second
	cfg.Explore.Locale = "en"
	cfg.Secrets = map[string]string{
		config.GeoapifyAPIKey: "test-key",
		config.JWTSecret:      "e2e-secret",
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := container.NewContainer(context.Background(), cfg, logger)
	s.Require().NoError(err)
	s.container = c
	s.server = httptest.NewServer(c.Router())

	s.token, err = c.Authenticator.IssueToken("e2e-device", jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s.Require().NoError(err)
}

func (s *E2ETestSuite) TearDownTest() {
	s.server.Close()
	s.container.Close()
}

func (s *E2ETestSuite) serveProvider(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("apiKey") != "test-key" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch s.providerMode.Load() {
	case providerFailing:
		w.WriteHeader(http.StatusInternalServerError)
		return
	case providerEmpty:
		_, _ = io.WriteString(w, `{"type":"FeatureCollection","features":[]}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/v2/places"):
		_, _ = io.WriteString(w, placesFixture)
	case strings.HasSuffix(r.URL.Path, "/v2/place-details"):
		_, _ = io.WriteString(w, detailsFixture)
	case strings.HasSuffix(r.URL.Path, "/v1/geocode/autocomplete"):
		_, _ = io.WriteString(w, autocompleteFixture)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *E2ETestSuite) do(method, path string, body any, auth bool) (int, []byte) {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			s.Require().NoError(err)
			reader = bytes.NewReader(raw)
		}
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, raw
}

func (s *E2ETestSuite) explore(method, path string, body any) types.ExploreResponse {
	code, raw := s.do(method, "/api/v1/explore"+path, body, false)
	s.Require().Equal(http.StatusOK, code, string(raw))
	var out types.ExploreResponse
	s.Require().NoError(json.Unmarshal(raw, &out))
	return out
}

func (s *E2ETestSuite) search() types.ExploreResponse {
	return s.explore(http.MethodPost, "/search", map[string]any{"center": osloS, "radius_km": 2})
}

func visibleIDs(resp types.ExploreResponse) []string {
	out := make([]string, len(resp.Visible))
	for i, v := range resp.Visible {
		out[i] = v.ID
	}
	return out
}

func (s *E2ETestSuite) TestPing() {
	code, body := s.do(http.MethodGet, "/ping", nil, false)
	s.Equal(http.StatusOK, code)
	s.Equal("pong", string(body))
}

func (s *E2ETestSuite) TestInitialState() {
	resp := s.explore(http.MethodGet, "", nil)
	s.Equal(types.CategoryRestaurant, resp.State.Category)
	s.Equal(types.SortDistance, resp.State.Sort)
	s.Empty(resp.Visible)
	s.Nil(resp.State.ErrorMessage)
}

func (s *E2ETestSuite) TestSearchSortsByDistance() {
	resp := s.search()

	s.Nil(resp.State.ErrorMessage)
	s.False(resp.State.IsLoading)
	s.Equal(2.0, resp.State.RadiusKm)
	s.Len(resp.State.Places, 3)
	s.Equal([]string{"p-near", "p-mid", "p-far"}, visibleIDs(resp))
	for i := 1; i < len(resp.Visible); i++ {
		s.LessOrEqual(resp.Visible[i-1].DistanceMeters, resp.Visible[i].DistanceMeters)
	}
}

func (s *E2ETestSuite) TestFiltersProjectWithoutRefetch() {
	s.search()

	resp := s.explore(http.MethodPut, "/filters", map[string]any{"sort": "name"})
	s.Equal([]string{"p-far", "p-near", "p-mid"}, visibleIDs(resp))

	resp = s.explore(http.MethodPut, "/filters", map[string]any{"query": "MATHALLEN"})
	s.Equal([]string{"p-mid"}, visibleIDs(resp))
	s.Len(resp.State.Places, 3, "raw results are untouched by filters")

	code, _ := s.do(http.MethodPut, "/api/v1/explore/filters", map[string]any{"sort": "price"}, false)
	s.Equal(http.StatusUnprocessableEntity, code)
}

func (s *E2ETestSuite) TestFavouritesFlow() {
	s.search()
	snapshot := map[string]any{"id": "p-near", "name": "Fiskeriet", "address": "Youngstorget 2b, Oslo"}

	code, _ := s.do(http.MethodPost, "/api/v1/favourites/toggle", snapshot, false)
	s.Equal(http.StatusUnauthorized, code)

	code, raw := s.do(http.MethodPost, "/api/v1/favourites/toggle", snapshot, true)
	s.Require().Equal(http.StatusOK, code, string(raw))
	var toggled types.ToggleFavouriteResponse
	s.Require().NoError(json.Unmarshal(raw, &toggled))
	s.True(toggled.IsFavourite)

	code, raw = s.do(http.MethodGet, "/api/v1/favourites", nil, false)
	s.Require().Equal(http.StatusOK, code)
	var favs []types.FavoritePlace
	s.Require().NoError(json.Unmarshal(raw, &favs))
	s.Require().Len(favs, 1)
	s.Equal("p-near", favs[0].ID)
	s.Equal("Youngstorget 2b, Oslo", favs[0].Address)

	resp := s.explore(http.MethodPut, "/filters", map[string]any{"only_favorites": true})
	s.Require().Equal([]string{"p-near"}, visibleIDs(resp))
	s.True(resp.Visible[0].IsFavourite)

	code, raw = s.do(http.MethodPost, "/api/v1/favourites/toggle", snapshot, true)
	s.Require().Equal(http.StatusOK, code)
	s.Require().NoError(json.Unmarshal(raw, &toggled))
	s.False(toggled.IsFavourite)

	resp = s.explore(http.MethodGet, "", nil)
	s.Empty(resp.Visible)

	code, _ = s.do(http.MethodDelete, "/api/v1/favourites/p-near", nil, true)
	s.Equal(http.StatusNoContent, code, "removing an absent favourite is not an error")
}

func (s *E2ETestSuite) TestRatingsFlow() {
	s.search()

	code, _ := s.do(http.MethodPost, "/api/v1/places/p-mid/ratings", map[string]any{"value": 4}, false)
	s.Equal(http.StatusUnauthorized, code)

	for _, v := range []int{4, 2} {
		code, raw := s.do(http.MethodPost, "/api/v1/places/p-mid/ratings", map[string]any{"value": v}, true)
		s.Require().Equal(http.StatusCreated, code, string(raw))
	}

	code, _ = s.do(http.MethodPost, "/api/v1/places/p-mid/ratings", map[string]any{"value": 9}, true)
	s.Equal(http.StatusUnprocessableEntity, code)

	code, raw := s.do(http.MethodGet, "/api/v1/places/p-mid/rating", nil, false)
	s.Require().Equal(http.StatusOK, code)
	var summary types.PlaceRatingSummary
	s.Require().NoError(json.Unmarshal(raw, &summary))
	s.Equal(2, summary.Count)
	s.InDelta(0.6, summary.AverageFill, 1e-9)
	s.InDelta(3.0, summary.AverageStars, 1e-9)
	s.Equal("3.0 / 5", summary.Display)

	resp := s.explore(http.MethodPut, "/filters", map[string]any{"sort": "rating"})
	s.Require().NotEmpty(resp.Visible)
	s.Equal("p-mid", resp.Visible[0].ID)
	s.InDelta(0.6, resp.Visible[0].AverageFill, 1e-9)
	s.Zero(resp.Visible[1].AverageFill)
}

func (s *E2ETestSuite) TestPlaceDetails() {
	s.search()

	code, raw := s.do(http.MethodGet, "/api/v1/explore/places/p-near", nil, false)
	s.Require().Equal(http.StatusOK, code, string(raw))
	var details types.PlaceDetailsResponse
	s.Require().NoError(json.Unmarshal(raw, &details))
	s.Equal("p-near", details.Place.ID)
	s.Equal("Fiskeriet Youngstorget", details.Place.Name)
	s.Require().NotNil(details.Place.Phone)
	s.Equal("+47 22 00 00 00", *details.Place.Phone)
	s.Equal(types.LatLon{Lat: 59.9120, Lon: 10.7510}, details.Place.Coordinate)

	code, _ = s.do(http.MethodGet, "/api/v1/explore/places/unknown", nil, false)
	s.Equal(http.StatusNotFound, code)
}

func (s *E2ETestSuite) TestAutocomplete() {
	code, raw := s.do(http.MethodGet, "/api/v1/explore/autocomplete?text=Os", nil, false)
	s.Require().Equal(http.StatusOK, code)
	s.JSONEq(`[]`, string(raw))

	code, raw = s.do(http.MethodGet, "/api/v1/explore/autocomplete?text=Oslo", nil, false)
	s.Require().Equal(http.StatusOK, code)
	var results []types.AutocompleteResult
	s.Require().NoError(json.Unmarshal(raw, &results))
	s.Require().Len(results, 1)
	s.Equal("Oslo, Norway", results[0].Formatted)

	resp := s.explore(http.MethodPost, "/select", results[0])
	s.Equal("Oslo, Norway", resp.State.Query)
	s.Equal(types.LatLon{Lat: 59.91, Lon: 10.75}, resp.State.Center)
	s.False(resp.State.ListVisible)
}

func (s *E2ETestSuite) TestProviderErrorsBecomeMessages() {
	s.providerMode.Store(providerFailing)
	resp := s.search()
	s.Require().NotNil(resp.State.ErrorMessage)
	s.Equal("Failed to fetch data. Please check your network connection.", *resp.State.ErrorMessage)
	s.Empty(resp.Visible)

	s.providerMode.Store(providerEmpty)
	resp = s.search()
	s.Require().NotNil(resp.State.ErrorMessage)
	s.Equal("No results found.", *resp.State.ErrorMessage)

	s.providerMode.Store(providerOK)
	resp = s.search()
	s.Nil(resp.State.ErrorMessage)
	s.Len(resp.Visible, 3)
}

func (s *E2ETestSuite) TestRequestValidation() {
	code, _ := s.do(http.MethodPut, "/api/v1/explore/radius", map[string]any{"radius_km": 0}, false)
	s.Equal(http.StatusUnprocessableEntity, code)

	code, _ = s.do(http.MethodPut, "/api/v1/explore/category", map[string]any{"category": "bar"}, false)
	s.Equal(http.StatusUnprocessableEntity, code)

	code, _ = s.do(http.MethodPut, "/api/v1/explore/list", `{"visible": true, "extra": 1}`, false)
	s.Equal(http.StatusBadRequest, code)

	code, raw := s.do(http.MethodPut, "/api/v1/explore/radius", map[string]any{"radius_km": 3}, false)
	s.Require().Equal(http.StatusAccepted, code)
	var resp types.ExploreResponse
	s.Require().NoError(json.Unmarshal(raw, &resp))
	s.Equal(3.0, resp.State.RadiusKm)
}

func (s *E2ETestSuite) TestResetRestoresDefaults() {
	s.explore(http.MethodPut, "/category", map[string]any{"category": "cafe"})
	s.explore(http.MethodPut, "/filters", map[string]any{"query": "x", "sort": "name", "only_favorites": true})

	resp := s.explore(http.MethodPost, "/reset", nil)
	s.Equal(types.CategoryRestaurant, resp.State.Category)
	s.Equal(types.SortDistance, resp.State.Sort)
	s.Empty(resp.State.Query)
	s.False(resp.State.OnlyFavorites)
	s.Equal(osloS, resp.State.Center)
	s.Len(resp.Visible, 3)
}
