package rating

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
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

func (m *MockRepository) AddRating(ctx context.Context, placeID string, value int) (types.Rating, error) {
	args := m.Called(ctx, placeID, value)
	return args.Get(0).(types.Rating), args.Error(1)
}

func (m *MockRepository) GetRatingsByPlaceID(ctx context.Context, placeID string) ([]types.Rating, error) {
	args := m.Called(ctx, placeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Rating), args.Error(1)
}

func (m *MockRepository) GetRatingsByPlaceIDs(ctx context.Context, placeIDs []string) (map[string][]types.Rating, error) {
	args := m.Called(ctx, placeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]types.Rating), args.Error(1)
}

func newTestService() (*ServiceImpl, *MockRepository) {
	repo := new(MockRepository)
	return NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil))), repo
}

func TestService_AddRating(t *testing.T) {
	ctx := context.Background()

	t.Run("stores valid rating", func(t *testing.T) {
		svc, repo := newTestService()
		saved := types.Rating{ID: uuid.New(), PlaceID: "p1", Value: 4}
		repo.On("AddRating", mock.Anything, "p1", 4).Return(saved, nil).Once()

		got, err := svc.AddRating(ctx, "p1", 4)
		require.NoError(t, err)
		assert.Equal(t, saved, got)
		repo.AssertExpectations(t)
	})

	t.Run("rejects out of range values without touching the store", func(t *testing.T) {
		svc, repo := newTestService()
		for _, v := range []int{0, 6, -1} {
			_, err := svc.AddRating(ctx, "p1", v)
			assert.ErrorIs(t, err, ErrInvalidRating)
		}
		repo.AssertNotCalled(t, "AddRating", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects blank place id", func(t *testing.T) {
		svc, _ := newTestService()
		_, err := svc.AddRating(ctx, " ", 3)
		assert.ErrorIs(t, err, ErrMissingPlaceID)
	})

	t.Run("propagates store failure", func(t *testing.T) {
		svc, repo := newTestService()
		storeErr := errors.New("disk full")
		repo.On("AddRating", mock.Anything, "p1", 5).Return(types.Rating{}, storeErr).Once()

		_, err := svc.AddRating(ctx, "p1", 5)
		assert.ErrorIs(t, err, storeErr)
		repo.AssertExpectations(t)
	})
}

func TestService_Summary(t *testing.T) {
	svc, repo := newTestService()
	repo.On("GetRatingsByPlaceID", mock.Anything, "p1").Return(ratingsOf(3, 4, 5), nil).Once()

	s, err := svc.Summary(context.Background(), "p1")
	require.NoError(t, err)
	assert.InDelta(t, 0.8, s.AverageFill, 1e-9)
	assert.Equal(t, 3, s.Count)

	repo.On("GetRatingsByPlaceID", mock.Anything, "p2").Return(nil, errors.New("boom")).Once()
	_, err = svc.AverageFill(context.Background(), "p2")
	assert.Error(t, err)
	repo.AssertExpectations(t)
}

func TestService_AverageFills(t *testing.T) {
	svc, repo := newTestService()
	ids := []string{"p1", "p2"}
	repo.On("GetRatingsByPlaceIDs", mock.Anything, ids).Return(map[string][]types.Rating{
		"p1": ratingsOf(1, 1, 1, 1, 1),
	}, nil).Once()

	fills, err := svc.AverageFills(context.Background(), ids)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, fills["p1"], 1e-9)
	v, ok := fills["p2"]
	assert.True(t, ok, "unrated places are present with fill 0")
	assert.Zero(t, v)
	repo.AssertExpectations(t)
}
