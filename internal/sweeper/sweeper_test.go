package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stars-deposit-ledger/internal/domain/deposit"
)

type MockDepositRepo struct {
	mock.Mock
}

func (m *MockDepositRepo) Create(ctx context.Context, trans *deposit.Transaction) error {
	args := m.Called(ctx, trans)
	return args.Error(0)
}

func (m *MockDepositRepo) GetByPayload(ctx context.Context, payload string) (*deposit.Transaction, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.Transaction), args.Error(1)
}

func (m *MockDepositRepo) LockByPayload(ctx context.Context, payload string) (*deposit.Transaction, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.Transaction), args.Error(1)
}

func (m *MockDepositRepo) MarkCompleted(ctx context.Context, id int64, chargeID string, completedAt time.Time) error {
	args := m.Called(ctx, id, chargeID, completedAt)
	return args.Error(0)
}

func (m *MockDepositRepo) Cancel(ctx context.Context, payload string) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockDepositRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDepositRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDepositRepo) CreateLink(ctx context.Context, link *deposit.PaymentLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockDepositRepo) GetLink(ctx context.Context, linkID string) (*deposit.PaymentLink, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deposit.PaymentLink), args.Error(1)
}

func (m *MockDepositRepo) WithTx(tx pgx.Tx) deposit.Repository {
	return m
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("reports expired count", func(t *testing.T) {
		repo := new(MockDepositRepo)
		repo.On("ExpireStale", ctx, mock.AnythingOfType("time.Time")).Return(int64(3), nil).Once()

		s := New(repo, nil, newTestLogger(), time.Minute)
		count, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
		repo.AssertExpectations(t)
	})

	t.Run("quiet when nothing is stale", func(t *testing.T) {
		repo := new(MockDepositRepo)
		repo.On("ExpireStale", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Once()

		s := New(repo, nil, newTestLogger(), time.Minute)
		count, err := s.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		repo.AssertExpectations(t)
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := new(MockDepositRepo)
		dbErr := errors.New("db down")
		repo.On("ExpireStale", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), dbErr).Once()

		s := New(repo, nil, newTestLogger(), time.Minute)
		_, err := s.Sweep(ctx)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestSweeper_Start(t *testing.T) {
	repo := new(MockDepositRepo)
	repo.On("ExpireStale", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(0), nil)

	s := New(repo, nil, newTestLogger(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}

	repo.AssertCalled(t, "ExpireStale", mock.Anything, mock.AnythingOfType("time.Time"))
}
