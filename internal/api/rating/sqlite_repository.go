package rating

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	database "github.com/FACorreiaa/go-poi-explore/app/db"
	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

var _ Repository = (*SQLiteRepository)(nil)

// SQLiteRepository keeps ratings in the local SQLite store.
type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLiteRepository(db *sql.DB, logger *slog.Logger) *SQLiteRepository {
	return &SQLiteRepository{db: db, logger: logger, now: time.Now}
}

func (r *SQLiteRepository) AddRating(ctx context.Context, placeID string, value int) (rating types.Rating, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "add_rating", start, err) }()

	rating = types.Rating{
		ID:        uuid.New(),
		PlaceID:   placeID,
		Value:     value,
		CreatedAt: r.now().UTC(),
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO ratings (id, place_id, value, created_at) VALUES (?, ?, ?, ?)`,
		rating.ID.String(), placeID, value, rating.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert rating", slog.String("place_id", placeID), slog.Any("error", err))
		return types.Rating{}, fmt.Errorf("failed to insert rating: %w", err)
	}
	return rating, nil
}

func (r *SQLiteRepository) GetRatingsByPlaceID(ctx context.Context, placeID string) (ratings []types.Rating, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "get_ratings", start, err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, place_id, value, created_at FROM ratings WHERE place_id = ? ORDER BY created_at, rowid`,
		placeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	return scanSQLiteRatings(rows)
}

func (r *SQLiteRepository) GetRatingsByPlaceIDs(ctx context.Context, placeIDs []string) (byPlace map[string][]types.Rating, err error) {
	byPlace = make(map[string][]types.Rating)
	if len(placeIDs) == 0 {
		return byPlace, nil
	}
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "get_ratings_batch", start, err) }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(placeIDs)), ",")
	args := make([]any, len(placeIDs))
	for i, id := range placeIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, place_id, value, created_at FROM ratings WHERE place_id IN (`+placeholders+`) ORDER BY created_at, rowid`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	ratings, err := scanSQLiteRatings(rows)
	if err != nil {
		return nil, err
	}
	for _, rt := range ratings {
		byPlace[rt.PlaceID] = append(byPlace[rt.PlaceID], rt)
	}
	return byPlace, nil
}

func scanSQLiteRatings(rows *sql.Rows) ([]types.Rating, error) {
	defer rows.Close()
	ratings := []types.Rating{}
	for rows.Next() {
		var (
			rt        types.Rating
			id        string
			createdAt string
		)
		if err := rows.Scan(&id, &rt.PlaceID, &rt.Value, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("invalid rating id %q: %w", id, err)
		}
		rt.ID = parsedID
		if rt.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("invalid rating timestamp %q: %w", createdAt, err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ratings: %w", err)
	}
	return ratings, nil
}
