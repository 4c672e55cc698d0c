package favourite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	database "github.com/FACorreiaa/go-poi-explore/app/db"
	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

var _ Repository = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

func NewSQLiteRepository(db *sql.DB, logger *slog.Logger) *SQLiteRepository {
	return &SQLiteRepository{db: db, logger: logger, now: time.Now}
}

func (r *SQLiteRepository) IsFavourite(ctx context.Context, placeID string) (exists bool, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "is_favourite", start, err) }()

	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favourite_places WHERE id = ?)`, placeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check favourite: %w", err)
	}
	return exists, nil
}

func (r *SQLiteRepository) AddFavourite(ctx context.Context, fav types.FavoritePlace) (inserted bool, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "add_favourite", start, err) }()

	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favourite_places (id, name, address, category, created_at) VALUES (?, ?, ?, ?, ?)`,
		fav.ID, fav.Name, fav.Address, fav.Category, r.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert favourite", slog.String("place_id", fav.ID), slog.Any("error", err))
		return false, fmt.Errorf("failed to insert favourite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) RemoveFavourite(ctx context.Context, placeID string) (removed bool, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "remove_favourite", start, err) }()

	res, err := r.db.ExecContext(ctx, `DELETE FROM favourite_places WHERE id = ?`, placeID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete favourite", slog.String("place_id", placeID), slog.Any("error", err))
		return false, fmt.Errorf("failed to delete favourite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) GetFavourite(ctx context.Context, placeID string) (f types.FavoritePlace, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "get_favourite", start, err) }()

	var (
		category  sql.NullString
		createdAt string
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT id, name, address, category, created_at FROM favourite_places WHERE id = ?`, placeID,
	).Scan(&f.ID, &f.Name, &f.Address, &category, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.FavoritePlace{}, types.ErrNotFound
	}
	if err != nil {
		return types.FavoritePlace{}, fmt.Errorf("failed to get favourite: %w", err)
	}
	if category.Valid {
		f.Category = &category.String
	}
	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return types.FavoritePlace{}, fmt.Errorf("invalid favourite timestamp %q: %w", createdAt, err)
	}
	return f, nil
}

func (r *SQLiteRepository) GetFavourites(ctx context.Context) (favs []types.FavoritePlace, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "get_favourites", start, err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, address, category, created_at FROM favourite_places ORDER BY created_at DESC, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query favourites: %w", err)
	}
	defer rows.Close()

	favs = []types.FavoritePlace{}
	for rows.Next() {
		var (
			f         types.FavoritePlace
			category  sql.NullString
			createdAt string
		)
		if err = rows.Scan(&f.ID, &f.Name, &f.Address, &category, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan favourite: %w", err)
		}
		if category.Valid {
			f.Category = &category.String
		}
		if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("invalid favourite timestamp %q: %w", createdAt, err)
		}
		favs = append(favs, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favourites: %w", err)
	}
	return favs, nil
}

func (r *SQLiteRepository) GetFavouriteIDs(ctx context.Context) (ids map[string]struct{}, err error) {
	start := time.Now()
	defer func() { database.ObserveQuery(ctx, "sqlite", "get_favourite_ids", start, err) }()

	rows, err := r.db.QueryContext(ctx, `SELECT id FROM favourite_places`)
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
