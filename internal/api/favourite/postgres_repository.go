package favourite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

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

func (r *PostgresRepository) IsFavourite(ctx context.Context, placeID string) (exists bool, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "is_favourite", start, err) }()

	query := `SELECT EXISTS (SELECT 1 FROM favourite_places WHERE id = $1)`
	if err = r.pgpool.QueryRow(ctx, query, placeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check favourite: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) AddFavourite(ctx context.Context, fav types.FavoritePlace) (inserted bool, err error) {
	ctx, span := otel.Tracer("FavouriteRepository").Start(ctx, "AddFavourite", trace.WithAttributes(
		attribute.String("place.id", fav.ID),
	))
	defer span.End()
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "add_favourite", start, err) }()

	query := `
		INSERT INTO favourite_places (id, name, address, category)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	tag, err := r.pgpool.Exec(ctx, query, fav.ID, fav.Name, fav.Address, fav.Category)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert favourite", slog.String("place_id", fav.ID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return false, fmt.Errorf("failed to insert favourite: %w", err)
	}

	span.SetStatus(codes.Ok, "Favourite saved")
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) RemoveFavourite(ctx context.Context, placeID string) (removed bool, err error) {
	ctx, span := otel.Tracer("FavouriteRepository").Start(ctx, "RemoveFavourite", trace.WithAttributes(
		attribute.String("place.id", placeID),
	))
	defer span.End()
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "remove_favourite", start, err) }()

	tag, err := r.pgpool.Exec(ctx, `DELETE FROM favourite_places WHERE id = $1`, placeID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete favourite", slog.String("place_id", placeID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return false, fmt.Errorf("failed to delete favourite: %w", err)
	}

	span.SetStatus(codes.Ok, "Favourite removed")
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) GetFavourite(ctx context.Context, placeID string) (f types.FavoritePlace, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "get_favourite", start, err) }()

	query := `
		SELECT id, name, address, category, created_at
		FROM favourite_places
		WHERE id = $1`

	err = r.pgpool.QueryRow(ctx, query, placeID).Scan(&f.ID, &f.Name, &f.Address, &f.Category, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.FavoritePlace{}, types.ErrNotFound
	}
	if err != nil {
		return types.FavoritePlace{}, fmt.Errorf("failed to get favourite: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) GetFavourites(ctx context.Context) (favs []types.FavoritePlace, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "get_favourites", start, err) }()

	query := `
		SELECT id, name, address, category, created_at
		FROM favourite_places
		ORDER BY created_at DESC, name`

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query favourites: %w", err)
	}
	defer rows.Close()

	favs = []types.FavoritePlace{}
	for rows.Next() {
		var f types.FavoritePlace
		if err = rows.Scan(&f.ID, &f.Name, &f.Address, &f.Category, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan favourite: %w", err)
		}
		favs = append(favs, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favourites: %w", err)
	}
	return favs, nil
}

func (r *PostgresRepository) GetFavouriteIDs(ctx context.Context) (ids map[string]struct{}, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "postgres", "get_favourite_ids", start, err) }()

	rows, err := r.pgpool.Query(ctx, `SELECT id FROM favourite_places`)
	if err != nil {
		return nil, fmt.Errorf("failed to query favourite ids: %w", err)
	}
	defer rows.Close()

	ids = make(map[string]struct{})
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favourite id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favourite ids: %w", err)
	}
	return ids, nil
}
