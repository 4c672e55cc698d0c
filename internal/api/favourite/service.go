package favourite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

var ErrMissingPlaceID = errors.New("place id is required")

var _ Service = (*ServiceImpl)(nil)

type Service interface {
	// Toggle flips the favourite state of place and returns the new state.
	// On failure it returns the state from before the call.
	Toggle(ctx context.Context, place types.Place) (bool, error)
	Remove(ctx context.Context, placeID string) error
	List(ctx context.Context) ([]types.FavoritePlace, error)
	IDs(ctx context.Context) (map[string]struct{}, error)
	IsFavourite(ctx context.Context, placeID string) (bool, error)
	// Get returns the saved snapshot, or types.ErrNotFound.
	Get(ctx context.Context, placeID string) (types.FavoritePlace, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	// serializes check-then-write in Toggle
	mu sync.Mutex
}

func NewService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *ServiceImpl) Toggle(ctx context.Context, place types.Place) (bool, error) {
	ctx, span := otel.Tracer("FavouriteService").Start(ctx, "Toggle", trace.WithAttributes(
		attribute.String("place.id", place.ID),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Toggle"), slog.String("placeID", place.ID))

	if strings.TrimSpace(place.ID) == "" {
		span.SetStatus(codes.Error, "missing place id")
		return false, ErrMissingPlaceID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	was, err := s.repo.IsFavourite(ctx, place.ID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to read favourite state", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to read favourite state")
		return false, fmt.Errorf("error reading favourite state: %w", err)
	}

	if was {
		if _, err := s.repo.RemoveFavourite(ctx, place.ID); err != nil {
			l.ErrorContext(ctx, "Failed to remove favourite", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to remove favourite")
			return true, fmt.Errorf("error removing favourite: %w", err)
		}
		l.InfoContext(ctx, "Favourite removed")
		span.SetAttributes(attribute.Bool("favourite", false))
		span.SetStatus(codes.Ok, "Favourite removed")
		return false, nil
	}

	if _, err := s.repo.AddFavourite(ctx, types.NewFavoritePlace(place)); err != nil {
		l.ErrorContext(ctx, "Failed to save favourite", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save favourite")
		return false, fmt.Errorf("error saving favourite: %w", err)
	}
	l.InfoContext(ctx, "Favourite saved")
	span.SetAttributes(attribute.Bool("favourite", true))
	span.SetStatus(codes.Ok, "Favourite saved")
	return true, nil
}

// Remove deletes a favourite. Removing a place that is not saved is not an error.
func (s *ServiceImpl) Remove(ctx context.Context, placeID string) error {
	ctx, span := otel.Tracer("FavouriteService").Start(ctx, "Remove", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.repo.RemoveFavourite(ctx, placeID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to remove favourite", slog.String("placeID", placeID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to remove favourite")
		return fmt.Errorf("error removing favourite: %w", err)
	}
	span.SetAttributes(attribute.Bool("removed", removed))
	span.SetStatus(codes.Ok, "Favourite removed")
	return nil
}

func (s *ServiceImpl) List(ctx context.Context) ([]types.FavoritePlace, error) {
	ctx, span := otel.Tracer("FavouriteService").Start(ctx, "List")
	defer span.End()

	favs, err := s.repo.GetFavourites(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list favourites", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list favourites")
		return nil, fmt.Errorf("error listing favourites: %w", err)
	}
	span.SetAttributes(attribute.Int("favourites.count", len(favs)))
	span.SetStatus(codes.Ok, "Favourites listed")
	return favs, nil
}

func (s *ServiceImpl) IDs(ctx context.Context) (map[string]struct{}, error) {
	ids, err := s.repo.GetFavouriteIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading favourite ids: %w", err)
	}
	return ids, nil
}

func (s *ServiceImpl) IsFavourite(ctx context.Context, placeID string) (bool, error) {
	ok, err := s.repo.IsFavourite(ctx, placeID)
	if err != nil {
		return false, fmt.Errorf("error reading favourite state: %w", err)
	}
	return ok, nil
}

func (s *ServiceImpl) Get(ctx context.Context, placeID string) (types.FavoritePlace, error) {
	fav, err := s.repo.GetFavourite(ctx, placeID)
	if err != nil {
		return types.FavoritePlace{}, fmt.Errorf("error loading favourite: %w", err)
	}
	return fav, nil
}
