package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stars-deposit-ledger/internal/domain/ledger"
	"github.com/stars-deposit-ledger/internal/domain/user"
)

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Create(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepo) GetByEntryID(ctx context.Context, entryID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) GetByUserID(ctx context.Context, userID int64, limit, offset int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByUserID(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) SumByUserID(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

func newTestUserService(userRepo *MockUserRepo, ledgerRepo *MockLedgerRepo) *UserServiceImpl {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewUserService(userRepo, ledgerRepo, logger)
}

func TestUserService_GetUser(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the user", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := newTestUserService(userRepo, new(MockLedgerRepo))

		expected := user.NewUser(111222333, "collector", "Card Collector")
		userRepo.On("GetByID", ctx, int64(111222333)).Return(expected, nil)

		u, err := svc.GetUser(ctx, 111222333)
		require.NoError(t, err)
		assert.Equal(t, expected, u)
	})

	t.Run("propagates not found", func(t *testing.T) {
		userRepo := new(MockUserRepo)
		svc := newTestUserService(userRepo, new(MockLedgerRepo))

		userRepo.On("GetByID", ctx, int64(999)).Return(nil, user.ErrUserNotFound{UserID: 999})

		_, err := svc.GetUser(ctx, 999)
		assert.ErrorIs(t, err, user.ErrUserNotFound{})
	})
}

func TestUserService_GetTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("translates page to offset", func(t *testing.T) {
		ledgerRepo := new(MockLedgerRepo)
		svc := newTestUserService(new(MockUserRepo), ledgerRepo)

		entry, err := ledger.NewEntry(111222333, 50, ledger.KindDeposit, "Stars deposit stars_charge_001")
		require.NoError(t, err)
		ledgerRepo.On("GetByUserID", ctx, int64(111222333), 10, 20).
			Return([]*ledger.Entry{entry}, nil)
		ledgerRepo.On("CountByUserID", ctx, int64(111222333)).Return(int64(21), nil)

		entries, total, err := svc.GetTransactions(ctx, 111222333, 3, 10)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, int64(21), total)
	})

	t.Run("normalizes bad pagination", func(t *testing.T) {
		ledgerRepo := new(MockLedgerRepo)
		svc := newTestUserService(new(MockUserRepo), ledgerRepo)

		ledgerRepo.On("GetByUserID", ctx, int64(111222333), 20, 0).
			Return([]*ledger.Entry{}, nil)
		ledgerRepo.On("CountByUserID", ctx, int64(111222333)).Return(int64(0), nil)

		_, _, err := svc.GetTransactions(ctx, 111222333, -1, 5000)
		require.NoError(t, err)
		ledgerRepo.AssertExpectations(t)
	})

	t.Run("propagates listing errors", func(t *testing.T) {
		ledgerRepo := new(MockLedgerRepo)
		svc := newTestUserService(new(MockUserRepo), ledgerRepo)

		dbErr := errors.New("connection reset")
		ledgerRepo.On("GetByUserID", ctx, int64(111222333), 20, 0).Return(nil, dbErr)

		_, _, err := svc.GetTransactions(ctx, 111222333, 1, 20)
		assert.ErrorIs(t, err, dbErr)
		ledgerRepo.AssertNotCalled(t, "CountByUserID", mock.Anything, mock.Anything)
	})
}
