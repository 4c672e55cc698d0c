package favourite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-poi-explore/internal/types"
)

var _ Repository = (*MockRepository)(nil)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) IsFavourite(ctx context.Context, placeID string) (bool, error) {
	args := m.Called(ctx, placeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) AddFavourite(ctx context.Context, fav types.FavoritePlace) (bool, error) {
	args := m.Called(ctx, fav)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) RemoveFavourite(ctx context.Context, placeID string) (bool, error) {
	args := m.Called(ctx, placeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) GetFavourite(ctx context.Context, placeID string) (types.FavoritePlace, error) {
	args := m.Called(ctx, placeID)
	return args.Get(0).(types.FavoritePlace), args.Error(1)
}

func (m *MockRepository) GetFavourites(ctx context.Context) ([]types.FavoritePlace, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.FavoritePlace), args.Error(1)
}

func (m *MockRepository) GetFavouriteIDs(ctx context.Context) (map[string]struct{}, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func newTestService() (*ServiceImpl, *MockRepository) {
	repo := new(MockRepository)
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func testPlace() types.Place {
	cat := "catering.cafe"
	return types.Place{
		ID:         "p-java",
		Name:       "Java Espressobar",
		Coordinate: types.LatLon{Lat: 59.9276, Lon: 10.7378},
		Category:   &cat,
	}
}

func TestService_ToggleInsertsSnapshot(t *testing.T) {
	svc, repo := newTestService()
	place := testPlace()

	repo.On("IsFavourite", mock.Anything, place.ID).Return(false, nil).Once()
	repo.On("AddFavourite", mock.Anything, mock.MatchedBy(func(f types.FavoritePlace) bool {
		return f.ID == place.ID && f.Name == place.Name && f.Address == "" && f.Category == place.Category
	})).Return(true, nil).Once()

	isFav, err := svc.Toggle(context.Background(), place)
	require.NoError(t, err)
	assert.True(t, isFav)
	repo.AssertExpectations(t)
}

func TestService_ToggleRemovesExisting(t *testing.T) {
	svc, repo := newTestService()
	place := testPlace()

	repo.On("IsFavourite", mock.Anything, place.ID).Return(true, nil).Once()
	repo.On("RemoveFavourite", mock.Anything, place.ID).Return(true, nil).Once()

	isFav, err := svc.Toggle(context.Background(), place)
	require.NoError(t, err)
	assert.False(t, isFav)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "AddFavourite", mock.Anything, mock.Anything)
}

func TestService_ToggleFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	place := testPlace()
	storeErr := errors.New("write failed")

	t.Run("failed insert", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("IsFavourite", mock.Anything, place.ID).Return(false, nil).Once()
		repo.On("AddFavourite", mock.Anything, mock.Anything).Return(false, storeErr).Once()

		isFav, err := svc.Toggle(ctx, place)
		assert.ErrorIs(t, err, storeErr)
		assert.False(t, isFav)
	})

	t.Run("failed delete", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("IsFavourite", mock.Anything, place.ID).Return(true, nil).Once()
		repo.On("RemoveFavourite", mock.Anything, place.ID).Return(false, storeErr).Once()

		isFav, err := svc.Toggle(ctx, place)
		assert.ErrorIs(t, err, storeErr)
		assert.True(t, isFav)
	})

	t.Run("failed read", func(t *testing.T) {
		svc, repo := newTestService()
		repo.On("IsFavourite", mock.Anything, place.ID).Return(false, storeErr).Once()

		_, err := svc.Toggle(ctx, place)
		assert.ErrorIs(t, err, storeErr)
		repo.AssertNotCalled(t, "AddFavourite", mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "RemoveFavourite", mock.Anything, mock.Anything)
	})
}

func TestService_ToggleRequiresID(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Toggle(context.Background(), types.Place{Name: "nameless"})
	assert.ErrorIs(t, err, ErrMissingPlaceID)
}

func TestService_Remove(t *testing.T) {
	svc, repo := newTestService()
	repo.On("RemoveFavourite", mock.Anything, "gone").Return(false, nil).Once()

	assert.NoError(t, svc.Remove(context.Background(), "gone"))
	repo.AssertExpectations(t)
}

func TestService_Get(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	snapshot := types.FavoritePlace{ID: "p1", Name: "Tim Wendelboe", Address: "Grüners gate 1"}
	repo.On("GetFavourite", mock.Anything, "p1").Return(snapshot, nil).Once()
	repo.On("GetFavourite", mock.Anything, "p9").Return(types.FavoritePlace{}, types.ErrNotFound).Once()

	got, err := svc.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)

	_, err = svc.Get(ctx, "p9")
	assert.ErrorIs(t, err, types.ErrNotFound)
	repo.AssertExpectations(t)
}
