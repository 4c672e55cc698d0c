package rating

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-poi-explore/app/db"
	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

var _ Repository = (*PostgresRepository)(nil)

type PostgresRepository struct {
	pgpool database.Querier
	logger *slog.Logger
}

func NewPostgresRepository(pgpool database.Querier, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{
		pgpool: pgpool,
		logger: logger,
	}
}

func (r *PostgresRepository) AddRating(ctx context.Context, placeID string, value int) (rating types.Rating, err error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "AddRating", trace.WithAttributes(
		attribute.String("place.id", placeID),
		attribute.Int("rating.value", value),
	))
	defer span.End()
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "add_rating", start, err) }()

	rating = types.Rating{ID: uuid.New(), PlaceID: placeID, Value: value}
	query := `
		INSERT INTO ratings (id, place_id, value)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	if err = r.pgpool.QueryRow(ctx, query, rating.ID, placeID, value).Scan(&rating.CreatedAt); err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert rating", slog.String("place_id", placeID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return types.Rating{}, fmt.Errorf("failed to insert rating: %w", err)
	}

	span.SetStatus(codes.Ok, "Rating inserted")
	return rating, nil
}

func (r *PostgresRepository) GetRatingsByPlaceID(ctx context.Context, placeID string) (ratings []types.Rating, err error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "GetRatingsByPlaceID", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "get_ratings", start, err) }()

	query := `
		SELECT id, place_id, value, created_at
		FROM ratings
		WHERE place_id = $1
		ORDER BY created_at`

	rows, err := r.pgpool.Query(ctx, query, placeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	ratings, err = collectRatings(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("ratings.count", len(ratings)))
	span.SetStatus(codes.Ok, "Ratings retrieved")
	return ratings, nil
}

func (r *PostgresRepository) GetRatingsByPlaceIDs(ctx context.Context, placeIDs []string) (byPlace map[string][]types.Rating, err error) {
	ctx, span := otel.Tracer("RatingRepository").Start(ctx, "GetRatingsByPlaceIDs", trace.WithAttributes(
		attribute.Int("places.count", len(placeIDs)),
	))
	defer span.End()

	byPlace = make(map[string][]types.Rating)
	if len(placeIDs) == 0 {
		return byPlace, nil
	}
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "get_ratings_batch", start, err) }()

	query := `
		SELECT id, place_id, value, created_at
		FROM ratings
		WHERE place_id = ANY($1)
		ORDER BY created_at`

	rows, err := r.pgpool.Query(ctx, query, placeIDs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Query failed")
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	ratings, err := collectRatings(rows)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, rt := range ratings {
		byPlace[rt.PlaceID] = append(byPlace[rt.PlaceID], rt)
	}

	span.SetStatus(codes.Ok, "Ratings retrieved")
	return byPlace, nil
}

func collectRatings(rows pgx.Rows) ([]types.Rating, error) {
	defer rows.Close()
	ratings := []types.Rating{}
	for rows.Next() {
		var rt types.Rating
		if err := rows.Scan(&rt.ID, &rt.PlaceID, &rt.Value, &rt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}
	return ratings, nil
}
