package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stars-deposit-ledger/internal/domain/user"
	"github.com/stars-deposit-ledger/internal/web/service"
)

// UserHandler handles HTTP requests for user balance and history
type UserHandler struct {
	userService service.UserService
	logger      *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(logger *slog.Logger, userService service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
		logger:      logger,
	}
}

// GetByID retrieves a user's balance and profile, returns 404 if not found
func (h *UserHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "Invalid user id")
		return
	}

	u, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound{}) {
			RespondNotFound(c, "User not found")
			return
		}
		h.logger.Error("Failed to get user", "user_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, toUserResponse(u))
}

// GetTransactions retrieves a user's paginated ledger history
func (h *UserHandler) GetTransactions(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondBadRequest(c, "Invalid user id")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	entries, total, err := h.userService.GetTransactions(c.Request.Context(), id, page, perPage)
	if err != nil {
		h.logger.Error("Failed to get user transactions", "user_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	items := make([]*LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, &LedgerEntryResponse{
			EntryID:     e.EntryID.String(),
			Amount:      e.Amount,
			Kind:        string(e.Kind),
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
		})
	}

	RespondWithPaginatedData(c, http.StatusOK, items, page, perPage, int(total))
}
