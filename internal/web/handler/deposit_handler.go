package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/settlement"
	"github.com/stars-deposit-ledger/internal/web/service"
)

// DepositHandler handles HTTP requests for the deposit lifecycle
type DepositHandler struct {
	depositService service.DepositService
	logger         *slog.Logger
}

// NewDepositHandler creates a new deposit handler
func NewDepositHandler(logger *slog.Logger, depositService service.DepositService) *DepositHandler {
	return &DepositHandler{
		depositService: depositService,
		logger:         logger,
	}
}

// Init creates a pending deposit intent and returns the payment link
func (h *DepositHandler) Init(c *gin.Context) {
	var req InitDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.UserID <= 0 {
		RespondBadRequest(c, "user_id must be positive")
		return
	}

	result, err := h.depositService.InitDeposit(c.Request.Context(), &service.InitDepositRequest{
		UserID:   req.UserID,
		Amount:   req.Amount,
		Username: req.Username,
		FullName: req.FullName,
	})
	if err != nil {
		var invalidAmount deposit.ErrInvalidAmount
		if errors.As(err, &invalidAmount) {
			RespondBadRequest(c, fmt.Sprintf("amount must be between %d and %d Stars",
				invalidAmount.Min, invalidAmount.Max))
			return
		}
		h.logger.Error("Failed to initiate deposit", "user_id", req.UserID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, toDepositResponse(result.Transaction, result.PaymentLink, time.Now()))
}

// Check reports the current status of a deposit intent
func (h *DepositHandler) Check(c *gin.Context) {
	payload := c.Param("payload")
	if payload == "" {
		RespondBadRequest(c, "payload is required")
		return
	}

	trans, err := h.depositService.CheckStatus(c.Request.Context(), payload)
	if err != nil {
		if errors.Is(err, deposit.ErrTransactionNotFound{}) {
			RespondNotFound(c, "Deposit transaction not found")
			return
		}
		h.logger.Error("Failed to check deposit status", "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, toDepositStatusResponse(trans))
}

// Cancel abandons a pending deposit intent
func (h *DepositHandler) Cancel(c *gin.Context) {
	payload := c.Param("payload")
	if payload == "" {
		RespondBadRequest(c, "payload is required")
		return
	}

	if err := h.depositService.Cancel(c.Request.Context(), payload); err != nil {
		switch {
		case errors.Is(err, deposit.ErrTransactionNotFound{}):
			RespondNotFound(c, "Deposit transaction not found")
		case errors.Is(err, deposit.ErrAlreadyFinal{}):
			RespondConflict(c, "Deposit transaction is no longer pending")
		default:
			h.logger.Error("Failed to cancel deposit", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, gin.H{"payload": payload, "status": string(deposit.StatusExpired)})
}

// Verify settles a deposit on behalf of the trusted backend
func (h *DepositHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	outcome, err := h.depositService.VerifySettlement(c.Request.Context(), &service.VerifyRequest{
		ChargeID: req.ChargeID,
		Payload:  req.Payload,
		UserID:   req.UserID,
		Amount:   req.Amount,
		APIKey:   req.APIKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnauthorized):
			RespondUnauthorized(c, "Invalid api key")
		case errors.Is(err, deposit.ErrTransactionNotFound{}):
			RespondNotFound(c, "Deposit transaction not found")
		case errors.Is(err, deposit.ErrTransactionExpired{}):
			RespondGone(c, "Deposit transaction has expired")
		case errors.Is(err, deposit.ErrAmountMismatch{}) || errors.Is(err, deposit.ErrUserMismatch{}):
			RespondConflict(c, "Payment does not match the recorded deposit intent")
		default:
			h.logger.Error("Failed to verify settlement", "payload", req.Payload, "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, &VerifyResponse{
		Payload:   req.Payload,
		Settled:   true,
		Duplicate: outcome == settlement.AlreadySettled,
	})
}
