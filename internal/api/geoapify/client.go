package geoapify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-poi-explore/app/observability/metrics"
	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

const (
	DefaultPlacesURL       = "https://api.geoapify.com/v2/places"
	DefaultDetailsURL      = "https://api.geoapify.com/v2/place-details"
	DefaultAutocompleteURL = "https://api.geoapify.com/v1/geocode/autocomplete"

	maxResponseBytes = 4 << 20
)

type Config struct {
	APIKey          string
	PlacesURL       string
	DetailsURL      string
	AutocompleteURL string
	Lang            string
	Timeout         time.Duration
	CacheTTL        time.Duration
	// RateLimitRPS <= 0 disables outbound throttling.
	RateLimitRPS   float64
	RateLimitBurst int
}

func (c Config) withDefaults() Config {
	if c.PlacesURL == "" {
		c.PlacesURL = DefaultPlacesURL
	}
	if c.DetailsURL == "" {
		c.DetailsURL = DefaultDetailsURL
	}
	if c.AutocompleteURL == "" {
		c.AutocompleteURL = DefaultAutocompleteURL
	}
	if c.Lang == "" {
		c.Lang = "en"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 1
	}
	return c
}

// Client talks to the Geoapify places, place-details and autocomplete APIs.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	cache       *cache.Cache
	group       singleflight.Group
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		logger.Warn("Geoapify API key is not configured, place lookups will fail")
	}

	limiter := rate.NewLimiter(rate.Inf, cfg.RateLimitBurst)
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	var c *cache.Cache
	if cfg.CacheTTL > 0 {
		c = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: limiter,
		cache:       c,
		logger:      logger.With(slog.String("component", "geoapify")),
	}
}

// SearchNearby returns places of category within radiusKm of center.
// An empty result is reported as ErrEmpty.
func (c *Client) SearchNearby(ctx context.Context, center types.LatLon, category types.PlaceCategory, radiusKm float64, limit int) ([]types.Place, error) {
	const op = "search"
	ctx, span := otel.Tracer("GeoapifyClient").Start(ctx, "SearchNearby", trace.WithAttributes(
		attribute.String("category", string(category)),
		attribute.Float64("center.lat", center.Lat),
		attribute.Float64("center.lon", center.Lon),
		attribute.Float64("radius_km", radiusKm),
	))
	defer span.End()

	if !category.Valid() || radiusKm <= 0 || limit <= 0 {
		err := newError(KindBadRequest, op, fmt.Errorf("category=%q radius=%v limit=%d", category, radiusKm, limit))
		recordSpanError(span, err)
		return nil, err
	}

	params := url.Values{}
	params.Set("categories", category.Token())
	params.Set("filter", fmt.Sprintf("circle:%s,%s,%d", formatCoord(center.Lon), formatCoord(center.Lat), int(radiusKm*1000)))
	params.Set("bias", fmt.Sprintf("proximity:%s,%s", formatCoord(center.Lon), formatCoord(center.Lat)))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("apiKey", c.cfg.APIKey)
	params.Set("lang", c.cfg.Lang)

	key := "search:" + params.Encode()
	if places, ok := c.cached(ctx, key, op); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return places.([]types.Place), nil
	}

	if err := ctx.Err(); err != nil {
		terr := transportError(ctx, op, err)
		recordSpanError(span, terr)
		return nil, terr
	}

	// identical in-flight searches share one request. The request runs
	// detached from the caller that started it, so a caller leaving only
	// ends its own wait.
	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
		defer cancel()

		var fc featureCollection
		if err := c.getJSON(flightCtx, op, c.cfg.PlacesURL, params, &fc); err != nil {
			return nil, err
		}
		places := make([]types.Place, 0, len(fc.Features))
		for _, f := range fc.Features {
			if p, ok := f.toPlace(); ok {
				places = append(places, p)
			}
		}
		if len(places) == 0 {
			return nil, newError(KindEmpty, op, nil)
		}
		c.store(key, places)
		return places, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		err := transportError(ctx, op, ctx.Err())
		recordSpanError(span, err)
		return nil, err
	}
	if res.Err != nil {
		recordSpanError(span, res.Err)
		return nil, res.Err
	}

	places := res.Val.([]types.Place)
	span.SetAttributes(attribute.Int("places.count", len(places)))
	span.SetStatus(codes.Ok, "places found")
	return clonePlaces(places), nil
}

// FetchDetails returns the detail overlay for placeID.
func (c *Client) FetchDetails(ctx context.Context, placeID string) (types.PlaceDetailPatch, error) {
	const op = "details"
	ctx, span := otel.Tracer("GeoapifyClient").Start(ctx, "FetchDetails", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	if strings.TrimSpace(placeID) == "" {
		err := newError(KindBadRequest, op, errors.New("empty place id"))
		recordSpanError(span, err)
		return types.PlaceDetailPatch{}, err
	}

	params := url.Values{}
	params.Set("id", placeID)
	params.Set("apiKey", c.cfg.APIKey)
	params.Set("lang", c.cfg.Lang)

	key := "details:" + placeID + ":" + c.cfg.Lang
	if patch, ok := c.cached(ctx, key, op); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return patch.(types.PlaceDetailPatch), nil
	}

	var resp detailsResponse
	if err := c.getJSON(ctx, op, c.cfg.DetailsURL, params, &resp); err != nil {
		recordSpanError(span, err)
		return types.PlaceDetailPatch{}, err
	}
	if len(resp.Features) == 0 {
		err := newError(KindEmpty, op, nil)
		recordSpanError(span, err)
		return types.PlaceDetailPatch{}, err
	}

	patch := resp.Features[0].Properties.toPatch()
	c.store(key, patch)
	span.SetStatus(codes.Ok, "details fetched")
	return patch, nil
}

// Autocomplete returns address suggestions for text. Blank text yields no
// suggestions and sends no request.
func (c *Client) Autocomplete(ctx context.Context, text string, limit int) ([]types.AutocompleteResult, error) {
	const op = "autocomplete"
	text = strings.TrimSpace(text)
	if text == "" {
		return []types.AutocompleteResult{}, nil
	}
	if limit <= 0 {
		return nil, newError(KindBadRequest, op, fmt.Errorf("limit=%d", limit))
	}

	ctx, span := otel.Tracer("GeoapifyClient").Start(ctx, "Autocomplete", trace.WithAttributes(
		attribute.Int("text.length", len(text)),
	))
	defer span.End()

	params := url.Values{}
	params.Set("text", text)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("apiKey", c.cfg.APIKey)

	var resp autocompleteResponse
	if err := c.getJSON(ctx, op, c.cfg.AutocompleteURL, params, &resp); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	out := make([]types.AutocompleteResult, 0, len(resp.Features))
	for _, f := range resp.Features {
		out = append(out, types.AutocompleteResult{
			Formatted: f.Properties.Formatted,
			Lat:       f.Properties.Lat,
			Lon:       f.Properties.Lon,
		})
	}
	span.SetAttributes(attribute.Int("suggestions.count", len(out)))
	span.SetStatus(codes.Ok, "suggestions fetched")
	return out, nil
}

// getJSON waits for the rate limiter, performs the GET and decodes the body
// into dst. Every failure is returned as *Error.
func (c *Client) getJSON(ctx context.Context, op, base string, params url.Values, dst any) error {
	m := metrics.Get()
	opAttr := metric.WithAttributes(attribute.String("op", op))
	start := time.Now()
	m.SearchRequestsTotal.Add(ctx, 1, opAttr)

	err := c.doGetJSON(ctx, op, base, params, dst)

	m.SearchDurationSeconds.Record(ctx, time.Since(start).Seconds(), opAttr)
	if err != nil {
		m.SearchErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("kind", string(KindOf(err))),
		))
		if KindOf(err) != KindCancelled {
			c.logger.WarnContext(ctx, "Geoapify request failed", slog.String("op", op), slog.Any("error", err))
		}
	}
	return err
}

func (c *Client) doGetJSON(ctx context.Context, op, base string, params url.Values, dst any) error {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return newError(KindBadRequest, op, fmt.Errorf("invalid base url %q", base))
	}
	u.RawQuery = params.Encode()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return transportError(ctx, op, fmt.Errorf("rate limit: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return newError(KindBadRequest, op, err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.DebugContext(ctx, "Geoapify request", slog.String("op", op), slog.String("path", u.Path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return newError(KindRequestFailed, op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(ctx, op, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return newError(KindDecodingFailed, op, err)
	}
	return nil
}

// transportError maps a caller-side cancellation to KindCancelled and
// everything else to KindRequestFailed. The request URL is stripped of the
// API key before it ends up in the error.
func transportError(ctx context.Context, op string, err error) *Error {
	err = redactURLError(err)
	if errors.Is(ctx.Err(), context.Canceled) {
		return newError(KindCancelled, op, err)
	}
	return newError(KindRequestFailed, op, err)
}

func redactURLError(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	redacted.URL = redactURL(urlErr.URL)
	if urlErr == err {
		return &redacted
	}
	return &redactedError{
		msg: strings.ReplaceAll(err.Error(), urlErr.URL, redacted.URL),
		err: &redacted,
	}
}

// redactedError keeps the outer message of a wrapped *url.Error while
// unwrapping to its redacted copy.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable url>"
	}
	q := u.Query()
	if q.Has("apiKey") {
		q.Set("apiKey", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

func (c *Client) cached(ctx context.Context, key, op string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if ok {
		metrics.Get().SearchCacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
		if places, isPlaces := v.([]types.Place); isPlaces {
			return clonePlaces(places), true
		}
	}
	return v, ok
}

func (c *Client) store(key string, v any) {
	if c.cache == nil {
		return
	}
	c.cache.Set(key, v, cache.DefaultExpiration)
}

func clonePlaces(in []types.Place) []types.Place {
	out := make([]types.Place, len(in))
	copy(out, in)
	return out
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
