package rating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

var (
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrMissingPlaceID = errors.New("place id is required")
)

var _ Service = (*ServiceImpl)(nil)

// Service records ratings and computes place aggregates at read time.
type Service interface {
	AddRating(ctx context.Context, placeID string, value int) (types.Rating, error)
	Summary(ctx context.Context, placeID string) (types.PlaceRatingSummary, error)
	AverageFill(ctx context.Context, placeID string) (float64, error)
	// AverageFills returns a fill for every requested id (0 when unrated).
	AverageFills(ctx context.Context, placeIDs []string) (map[string]float64, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *ServiceImpl) AddRating(ctx context.Context, placeID string, value int) (types.Rating, error) {
	ctx, span := otel.Tracer("RatingService").Start(ctx, "AddRating", trace.WithAttributes(
		attribute.String("place.id", placeID),
		attribute.Int("rating.value", value),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "AddRating"), slog.String("placeID", placeID))

	if strings.TrimSpace(placeID) == "" {
		span.SetStatus(codes.Error, "missing place id")
		return types.Rating{}, ErrMissingPlaceID
	}
	if value < 1 || value > MaxStars {
		span.SetStatus(codes.Error, "invalid rating value")
		return types.Rating{}, ErrInvalidRating
	}

	rating, err := s.repo.AddRating(ctx, placeID, value)
	if err != nil {
		l.ErrorContext(ctx, "Failed to save rating", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save rating")
		return types.Rating{}, fmt.Errorf("error saving rating: %w", err)
	}

	l.InfoContext(ctx, "Rating saved", slog.Int("value", value))
	span.SetStatus(codes.Ok, "Rating saved")
	return rating, nil
}

func (s *ServiceImpl) Summary(ctx context.Context, placeID string) (types.PlaceRatingSummary, error) {
	ctx, span := otel.Tracer("RatingService").Start(ctx, "Summary", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	ratings, err := s.repo.GetRatingsByPlaceID(ctx, placeID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load ratings", slog.String("placeID", placeID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load ratings")
		return types.PlaceRatingSummary{}, fmt.Errorf("error loading ratings: %w", err)
	}

	span.SetStatus(codes.Ok, "Ratings summarized")
	return Summarize(placeID, ratings), nil
}

func (s *ServiceImpl) AverageFill(ctx context.Context, placeID string) (float64, error) {
	summary, err := s.Summary(ctx, placeID)
	if err != nil {
		return 0, err
	}
	return summary.AverageFill, nil
}

func (s *ServiceImpl) AverageFills(ctx context.Context, placeIDs []string) (map[string]float64, error) {
	ctx, span := otel.Tracer("RatingService").Start(ctx, "AverageFills", trace.WithAttributes(
		attribute.Int("places.count", len(placeIDs)),
	))
	defer span.End()

	byPlace, err := s.repo.GetRatingsByPlaceIDs(ctx, placeIDs)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load ratings batch", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to load ratings")
		return nil, fmt.Errorf("error loading ratings: %w", err)
	}

	fills := make(map[string]float64, len(placeIDs))
	for _, id := range placeIDs {
		fills[id] = AverageFill(byPlace[id])
	}
	span.SetStatus(codes.Ok, "Fills computed")
	return fills, nil
}
