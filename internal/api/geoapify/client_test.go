package geoapify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

var oslo = types.LatLon{Lat: 59.9111, Lon: 10.7503}

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	cfg := Config{
		APIKey:          "test-key",
		PlacesURL:       server.URL + "/v2/places",
		DetailsURL:      server.URL + "/v2/place-details",
		AutocompleteURL: server.URL + "/v1/geocode/autocomplete",
		Timeout:         2 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(cfg, logger), &hits
}

func TestSearchNearby_BuildsQueryInLonLatOrder(t *testing.T) {
	fixture := loadFixture(t, "places_oslo.json")
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v2/places", r.URL.Path)
		assert.Equal(t, "catering.cafe", q.Get("categories"))
		assert.Equal(t, "circle:10.7503,59.9111,2500", q.Get("filter"))
		assert.Equal(t, "proximity:10.7503,59.9111", q.Get("bias"))
		assert.Equal(t, "10", q.Get("limit"))
		assert.Equal(t, "test-key", q.Get("apiKey"))
		assert.Equal(t, "en", q.Get("lang"))
		_, _ = w.Write(fixture)
	})

	_, err := client.SearchNearby(context.Background(), oslo, types.CategoryCafe, 2.5, 10)
	require.NoError(t, err)
}

func TestSearchNearby_MapsFeatures(t *testing.T) {
	fixture := loadFixture(t, "places_oslo.json")
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(fixture)
	})

	places, err := client.SearchNearby(context.Background(), oslo, types.CategoryRestaurant, 1, 10)
	require.NoError(t, err)
	require.Len(t, places, 3, "feature without two coordinates is skipped")

	fiskeriet := places[0]
	assert.Equal(t, "p-fiskeriet", fiskeriet.ID)
	assert.Equal(t, "Fiskeriet Youngstorget", fiskeriet.Name)
	require.NotNil(t, fiskeriet.Address)
	assert.Equal(t, "Fiskeriet Youngstorget, Youngstorget 2b, 0181 Oslo, Norway", *fiskeriet.Address)
	assert.InDelta(t, 59.9155, fiskeriet.Coordinate.Lat, 1e-9)
	assert.InDelta(t, 10.7489, fiskeriet.Coordinate.Lon, 1e-9)
	require.NotNil(t, fiskeriet.Category)
	assert.Equal(t, "catering.restaurant", *fiskeriet.Category)
	require.NotNil(t, fiskeriet.Phone)
	assert.Equal(t, "+47 22 42 45 40", *fiskeriet.Phone)
	require.NotNil(t, fiskeriet.OpeningHours)

	noname := places[1]
	assert.Equal(t, "Unknown place", noname.Name)
	assert.Nil(t, noname.Address)
	require.NotNil(t, noname.Category)
	assert.Equal(t, "catering.restaurant", *noname.Category)

	shop := places[2]
	require.NotNil(t, shop.Address)
	assert.Equal(t, "Storgata 1, Oslo", *shop.Address)
	require.NotNil(t, shop.Category)
	assert.Equal(t, "commercial.supermarket", *shop.Category, "falls back to the first raw token")
}

func TestSearchNearby_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "no features", status: http.StatusOK, body: `{"features": []}`, wantErr: ErrEmpty},
		{name: "only unusable features", status: http.StatusOK, body: `{"features": [{"properties": {"place_id": ""}, "geometry": {"coordinates": [1, 2]}}]}`, wantErr: ErrEmpty},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error": "Unauthorized"}`, wantErr: ErrRequestFailed},
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrRequestFailed},
		{name: "malformed body", status: http.StatusOK, body: `{"features": [`, wantErr: ErrDecodingFailed},
		{name: "wrong shape", status: http.StatusOK, body: `{"features": "nope"}`, wantErr: ErrDecodingFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			places, err := client.SearchNearby(context.Background(), oslo, types.CategoryHotel, 5, 10)
			require.Error(t, err)
			assert.Nil(t, places)
			assert.ErrorIs(t, err, tt.wantErr)

			var gErr *Error
			require.True(t, errors.As(err, &gErr))
			assert.Equal(t, "search", gErr.Op)
		})
	}
}

func TestSearchNearby_InvalidArgumentsAreBadRequest(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.SearchNearby(context.Background(), oslo, types.PlaceCategory("bar"), 5, 10)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = client.SearchNearby(context.Background(), oslo, types.CategoryCafe, 0, 10)
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = client.SearchNearby(context.Background(), oslo, types.CategoryCafe, 5, 0)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Zero(t, hits.Load())
}

func TestSearchNearby_InvalidBaseURL(t *testing.T) {
	client := NewClient(Config{PlacesURL: "::not a url"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := client.SearchNearby(context.Background(), oslo, types.CategoryCafe, 5, 10)
	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, "Invalid request URL.", err.(*Error).UserMessage())
}

func TestSearchNearby_TransportFailure(t *testing.T) {
	client, _ := newTestClient(t, func(http.ResponseWriter, *http.Request) {}, func(c *Config) {
		c.PlacesURL = "http://127.0.0.1:1/v2/places"
	})
	_, err := client.SearchNearby(context.Background(), oslo, types.CategoryCafe, 5, 10)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestSearchNearby_CancelledContext(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.SearchNearby(ctx, oslo, types.CategoryCafe, 5, 10)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Zero(t, hits.Load())
}

func TestSearchNearby_TransportErrorHidesAPIKey(t *testing.T) {
	var logs bytes.Buffer
	client := NewClient(Config{
		APIKey:    "secret-key-123",
		PlacesURL: "http://127.0.0.1:1/v2/places",
		Timeout:   2 * time.Second,
	}, slog.New(slog.NewTextHandler(&logs, nil)))

	_, err := client.SearchNearby(context.Background(), oslo, types.CategoryCafe, 5, 10)
	require.ErrorIs(t, err, ErrRequestFailed)
	assert.NotContains(t, err.Error(), "secret-key-123")
	assert.Contains(t, err.Error(), "apiKey=REDACTED")
	assert.NotContains(t, logs.String(), "secret-key-123")

	var urlErr *url.Error
	require.ErrorAs(t, err, &urlErr, "transport cause stays inspectable")
}

func TestRedactURLError(t *testing.T) {
	cause := errors.New("connection refused")
	top := &url.Error{Op: "Get", URL: "https://api.geoapify.com/v2/places?apiKey=s3cret&limit=5", Err: cause}

	got := redactURLError(top)
	assert.NotContains(t, got.Error(), "s3cret")
	assert.Contains(t, got.Error(), "limit=5")
	assert.ErrorIs(t, got, cause)
	assert.Contains(t, top.URL, "s3cret", "original error is not mutated")

	wrapped := redactURLError(fmt.Errorf("read body: %w", top))
	assert.NotContains(t, wrapped.Error(), "s3cret")
	assert.Contains(t, wrapped.Error(), "read body: ")
	assert.ErrorIs(t, wrapped, cause)

	plain := errors.New("rate limit: context canceled")
	assert.Same(t, plain, redactURLError(plain))
}

func TestSearchNearby_SharedSearchOutlivesCancelledCaller(t *testing.T) {
	fixture := loadFixture(t, "places_oslo.json")
	arrived := make(chan struct{}, 4)
	release := make(chan struct{})
	var once sync.Once
	unblock := func() { once.Do(func() { close(release) }) }

	client, hits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		arrived <- struct{}{}
		<-release
		_, _ = w.Write(fixture)
	})
	t.Cleanup(unblock)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.SearchNearby(firstCtx, oslo, types.CategoryRestaurant, 5, 10)
		firstErr <- err
	}()

	select {
	case <-arrived:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the server")
	}

	type result struct {
		places []types.Place
		err    error
	}
	second := make(chan result, 1)
	go func() {
		places, err := client.SearchNearby(context.Background(), oslo, types.CategoryRestaurant, 5, 10)
		second <- result{places, err}
	}()
	// let the second caller join the in-flight search
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	unblock()
	select {
	case res := <-second:
		require.NoError(t, res.err)
		require.NotEmpty(t, res.places)
		assert.Equal(t, "Fiskeriet Youngstorget", res.places[0].Name)
	case <-time.After(2 * time.Second):
		t.Fatal("joined caller never returned")
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestSearchNearby_CachesSuccessOnly(t *testing.T) {
	fixture := loadFixture(t, "places_oslo.json")
	var fail atomic.Bool
	fail.Store(true)
	client, hits := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(fixture)
	}, func(c *Config) { c.CacheTTL = time.Minute })

	ctx := context.Background()
	_, err := client.SearchNearby(ctx, oslo, types.CategoryRestaurant, 5, 10)
	require.ErrorIs(t, err, ErrRequestFailed)

	fail.Store(false)
	first, err := client.SearchNearby(ctx, oslo, types.CategoryRestaurant, 5, 10)
	require.NoError(t, err)
	first[0].Name = "mutated by caller"

	second, err := client.SearchNearby(ctx, oslo, types.CategoryRestaurant, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "third call is served from cache")
	assert.Equal(t, "Fiskeriet Youngstorget", second[0].Name)
}

func TestFetchDetails(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/place-details", r.URL.Path)
		assert.Equal(t, "p-fiskeriet", r.URL.Query().Get("id"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apiKey"))
		_, _ = w.Write([]byte(`{"features": [{"properties": {
			"name": "Fiskeriet",
			"address_line1": "Youngstorget 2b",
			"contact": {"phone": "+47 1234"},
			"website": "https://fiskeriet.no"
		}}]}`))
	})

	patch, err := client.FetchDetails(context.Background(), "p-fiskeriet")
	require.NoError(t, err)

	hours := "Mo-Su 10:00-22:00"
	cat := "catering.restaurant"
	known := types.Place{
		ID:           "p-fiskeriet",
		Name:         "Fiskeriet Youngstorget",
		Coordinate:   types.LatLon{Lat: 59.9155, Lon: 10.7489},
		Category:     &cat,
		OpeningHours: &hours,
	}
	merged := patch.ApplyTo(known)

	assert.Equal(t, "Fiskeriet", merged.Name)
	assert.Equal(t, "Youngstorget 2b", merged.AddressOrEmpty())
	require.NotNil(t, merged.Phone)
	assert.Equal(t, "+47 1234", *merged.Phone)
	assert.Equal(t, &hours, merged.OpeningHours, "missing detail fields keep the known value")
	assert.Equal(t, known.Coordinate, merged.Coordinate)
	assert.Equal(t, known.Category, merged.Category)
	assert.True(t, merged.SamePlace(known))
}

func TestFetchDetails_Errors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	})

	_, err := client.FetchDetails(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = client.FetchDetails(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestAutocomplete(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/geocode/autocomplete", r.URL.Path)
		assert.Equal(t, "Karl Johans", r.URL.Query().Get("text"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"features": [
			{"properties": {"formatted": "Karl Johans gate 1, Oslo", "lat": 59.911, "lon": 10.749}},
			{"properties": {"formatted": "Karl Johans gate 22, Oslo", "lat": 59.913, "lon": 10.739}}
		]}`))
	})

	got, err := client.Autocomplete(context.Background(), "  Karl Johans ", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Karl Johans gate 1, Oslo", got[0].Formatted)
	assert.Equal(t, types.LatLon{Lat: 59.911, Lon: 10.749}, got[0].Coordinate())

	blank, err := client.Autocomplete(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, blank)
	assert.Equal(t, int32(1), hits.Load())
}

func TestErrorUserMessages(t *testing.T) {
	assert.Equal(t, "Invalid request URL.", MessageFor(KindBadRequest))
	assert.Equal(t, "Failed to fetch data. Please check your network connection.", MessageFor(KindRequestFailed))
	assert.Equal(t, "Could not read data from the service.", MessageFor(KindDecodingFailed))
	assert.Equal(t, "No results found.", MessageFor(KindEmpty))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
