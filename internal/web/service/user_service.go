package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stars-deposit-ledger/internal/domain/ledger"
	"github.com/stars-deposit-ledger/internal/domain/user"
)

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userRepo   user.Repository
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewUserService creates a new user service instance
func NewUserService(userRepo user.Repository, ledgerRepo ledger.Repository, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		userRepo:   userRepo,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// GetUser retrieves a user's balance and profile
func (s *UserServiceImpl) GetUser(ctx context.Context, id int64) (*user.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound{}) {
			s.logger.Error("Failed to get user", "user_id", id, "error", err)
		}
		return nil, err
	}
	return u, nil
}

// GetTransactions retrieves a paginated ledger history for a user
func (s *UserServiceImpl) GetTransactions(ctx context.Context, userID int64, page, perPage int) ([]*ledger.Entry, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	entries, err := s.ledgerRepo.GetByUserID(ctx, userID, perPage, offset)
	if err != nil {
		s.logger.Error("Failed to list ledger entries", "user_id", userID, "error", err)
		return nil, 0, err
	}

	total, err := s.ledgerRepo.CountByUserID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count ledger entries", "user_id", userID, "error", err)
		return nil, 0, err
	}

	return entries, total, nil
}
