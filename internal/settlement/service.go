package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stars-deposit-ledger/internal/config"
	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/domain/ledger"
	"github.com/stars-deposit-ledger/internal/domain/outbox"
	"github.com/stars-deposit-ledger/internal/domain/user"
	"github.com/stars-deposit-ledger/internal/platform/metrics"
)

type ServiceImpl struct {
	txRunner    TxRunner
	depositRepo deposit.Repository
	userRepo    user.Repository
	ledgerRepo  ledger.Repository
	outboxRepo  outbox.Repository
	depositCfg  *config.DepositConfig
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

func NewService(
	txRunner TxRunner,
	depositRepo deposit.Repository,
	userRepo user.Repository,
	ledgerRepo ledger.Repository,
	outboxRepo outbox.Repository,
	depositCfg *config.DepositConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) Service {
	return &ServiceImpl{
		txRunner:    txRunner,
		depositRepo: depositRepo,
		userRepo:    userRepo,
		ledgerRepo:  ledgerRepo,
		outboxRepo:  outboxRepo,
		depositCfg:  depositCfg,
		metrics:     m,
		logger:      logger,
	}
}

// Precheck validates a pre-checkout query against the recorded intent.
// It is advisory: no status is written, so a Success callback is verified
// again from scratch. Approval here never guarantees settlement.
func (s *ServiceImpl) Precheck(ctx context.Context, req *PrecheckRequest) error {
	logger := s.logger.With("payload", req.Payload, "user_id", req.UserID)

	if req.Currency != s.depositCfg.Currency {
		s.metrics.PrecheckRejected("currency")
		return deposit.ErrUnsupportedCurrency{Currency: req.Currency}
	}

	trans, err := s.depositRepo.GetByPayload(ctx, req.Payload)
	if err != nil {
		s.metrics.PrecheckRejected("not_found")
		return err
	}

	if trans.Status.Final() || time.Now().After(trans.ExpiresAt) {
		s.metrics.PrecheckRejected("expired")
		return deposit.ErrTransactionExpired{Payload: req.Payload}
	}

	if trans.UserID != req.UserID {
		s.metrics.PrecheckRejected("user_mismatch")
		logger.Warn("Pre-checkout user does not own the deposit intent", "owner_id", trans.UserID)
		return deposit.ErrUserMismatch{Payload: req.Payload, Want: trans.UserID, Got: req.UserID}
	}

	if trans.Amount != req.Amount {
		s.metrics.PrecheckRejected("amount_mismatch")
		return deposit.ErrAmountMismatch{Payload: req.Payload, Want: trans.Amount, Got: req.Amount}
	}

	logger.Info("Pre-checkout approved", "amount", req.Amount)
	return nil
}

// Settle credits a successful payment exactly once. The whole state change
// runs in one database transaction: the row lock on the intent serializes
// duplicate callbacks, the status guard makes replays observable, and the
// ledger append, balance credit, and audit outbox write commit together or
// not at all.
func (s *ServiceImpl) Settle(ctx context.Context, req *SettleRequest) (Outcome, error) {
	logger := s.logger.With("payload", req.Payload, "user_id", req.UserID, "charge_id", req.ChargeID)

	outcome := Settled
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		depositRepo := s.depositRepo.WithTx(tx)

		trans, err := depositRepo.LockByPayload(ctx, req.Payload)
		if err != nil {
			return err
		}

		switch trans.Status {
		case deposit.StatusCompleted:
			// A duplicate Success callback; the first one already credited.
			outcome = AlreadySettled
			return nil
		case deposit.StatusExpired, deposit.StatusFailed:
			// Fail closed. The provider charged after the intent died;
			// this needs manual reconciliation, not an automatic credit.
			logger.Error("Success callback for a dead deposit intent, refusing to credit",
				"status", string(trans.Status))
			return deposit.ErrTransactionExpired{Payload: req.Payload}
		}

		if trans.UserID != req.UserID {
			return deposit.ErrUserMismatch{Payload: req.Payload, Want: trans.UserID, Got: req.UserID}
		}
		if trans.Amount != req.Amount {
			return deposit.ErrAmountMismatch{Payload: req.Payload, Want: trans.Amount, Got: req.Amount}
		}

		now := time.Now()
		if err := depositRepo.MarkCompleted(ctx, trans.ID, req.ChargeID, now); err != nil {
			return err
		}

		if err := s.userRepo.WithTx(tx).Credit(ctx, trans.UserID, trans.Amount, true); err != nil {
			return err
		}

		entry, err := ledger.NewEntry(trans.UserID, trans.Amount, ledger.KindDeposit,
			fmt.Sprintf("Stars deposit %s", req.ChargeID))
		if err != nil {
			return err
		}
		if err := s.ledgerRepo.WithTx(tx).Create(ctx, entry); err != nil {
			return err
		}

		message, err := outbox.NewMessage(entry)
		if err != nil {
			return fmt.Errorf("failed to build audit outbox message: %w", err)
		}
		return s.outboxRepo.WithTx(tx).Create(ctx, message)
	})
	if err != nil {
		s.metrics.SettlementFailed(failureReason(err))
		return OutcomeUnknown, err
	}

	if outcome == AlreadySettled {
		logger.Info("Duplicate settlement callback ignored")
		return AlreadySettled, nil
	}

	s.metrics.DepositSettled(req.Amount)
	logger.Info("Deposit settled", "amount", req.Amount)
	return Settled, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, deposit.ErrTransactionNotFound{}):
		return "not_found"
	case errors.Is(err, deposit.ErrTransactionExpired{}):
		return "expired"
	case errors.Is(err, deposit.ErrUserMismatch{}):
		return "user_mismatch"
	case errors.Is(err, deposit.ErrAmountMismatch{}):
		return "amount_mismatch"
	default:
		return "internal"
	}
}
