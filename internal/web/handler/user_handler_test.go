package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stars-deposit-ledger/internal/domain/ledger"
	"github.com/stars-deposit-ledger/internal/domain/user"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) GetTransactions(ctx context.Context, userID int64, page, perPage int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func TestUserHandler_GetByID(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockUserService)
		handler := NewUserHandler(logger, mockService)

		now := time.Now()
		mockService.On("GetUser", mock.Anything, int64(111222333)).Return(&user.User{
			ID:           111222333,
			Username:     "collector",
			FullName:     "Card Collector",
			Balance:      120,
			TotalDeposit: 450,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, nil)

		router := setupTestRouter()
		router.GET("/user/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/user/111222333", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(120), data["balance"])
		assert.Equal(t, float64(450), data["total_deposit"])
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockUserService)
		handler := NewUserHandler(logger, mockService)

		mockService.On("GetUser", mock.Anything, int64(999)).
			Return(nil, user.ErrUserNotFound{UserID: 999})

		router := setupTestRouter()
		router.GET("/user/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/user/999", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockUserService)
		handler := NewUserHandler(logger, mockService)

		router := setupTestRouter()
		router.GET("/user/:id", handler.GetByID)

		req, _ := http.NewRequest(http.MethodGet, "/user/garbage", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})
}

func TestUserHandler_GetTransactions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("PaginatedHistory", func(t *testing.T) {
		mockService := new(MockUserService)
		handler := NewUserHandler(logger, mockService)

		entry, err := ledger.NewEntry(111222333, 50, ledger.KindDeposit, "Stars deposit stars_charge_001")
		require.NoError(t, err)
		mockService.On("GetTransactions", mock.Anything, int64(111222333), 2, 10).
			Return([]*ledger.Entry{entry}, int64(11), nil)

		router := setupTestRouter()
		router.GET("/user/:id/transactions", handler.GetTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/user/111222333/transactions?page=2&per_page=10", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 2, resp.Meta.Page)
		assert.Equal(t, 10, resp.Meta.PerPage)
		assert.Equal(t, 11, resp.Meta.TotalItems)
		assert.Equal(t, 2, resp.Meta.TotalPages)

		items := resp.Data.([]interface{})
		require.Len(t, items, 1)
		first := items[0].(map[string]interface{})
		assert.Equal(t, float64(50), first["amount"])
		assert.Equal(t, string(ledger.KindDeposit), first["kind"])
	})

	t.Run("DefaultsBadPagination", func(t *testing.T) {
		mockService := new(MockUserService)
		handler := NewUserHandler(logger, mockService)

		mockService.On("GetTransactions", mock.Anything, int64(111222333), 1, 20).
			Return([]*ledger.Entry{}, int64(0), nil)

		router := setupTestRouter()
		router.GET("/user/:id/transactions", handler.GetTransactions)

		req, _ := http.NewRequest(http.MethodGet, "/user/111222333/transactions?page=0&per_page=5000", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})
}
