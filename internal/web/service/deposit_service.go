package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/stars-deposit-ledger/internal/config"
	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/domain/user"
	"github.com/stars-deposit-ledger/internal/platform/metrics"
	"github.com/stars-deposit-ledger/internal/settlement"
)

// payloadRetries bounds the nonce collision retry loop. Collisions need the
// same user, amount, second, and four-digit code, so one retry almost always
// suffices.
const payloadRetries = 3

const linkIDBytes = 8

// DepositServiceImpl implements the DepositService interface
type DepositServiceImpl struct {
	txRunner    settlement.TxRunner
	depositRepo deposit.Repository
	userRepo    user.Repository
	settler     settlement.Service
	linkIssuer  LinkIssuer
	depositCfg  *config.DepositConfig
	securityCfg *config.SecurityConfig
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewDepositService creates a new deposit service instance
func NewDepositService(
	txRunner settlement.TxRunner,
	depositRepo deposit.Repository,
	userRepo user.Repository,
	settler settlement.Service,
	linkIssuer LinkIssuer,
	depositCfg *config.DepositConfig,
	securityCfg *config.SecurityConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *DepositServiceImpl {
	return &DepositServiceImpl{
		txRunner:    txRunner,
		depositRepo: depositRepo,
		userRepo:    userRepo,
		settler:     settler,
		linkIssuer:  linkIssuer,
		depositCfg:  depositCfg,
		securityCfg: securityCfg,
		metrics:     m,
		logger:      logger,
	}
}

// InitDeposit records a pending deposit intent and returns its payment link
func (s *DepositServiceImpl) InitDeposit(ctx context.Context, req *InitDepositRequest) (*InitResult, error) {
	userID, amount := req.UserID, req.Amount
	if amount < s.depositCfg.MinAmount || amount > s.depositCfg.MaxAmount {
		return nil, deposit.ErrInvalidAmount{Amount: amount, Min: s.depositCfg.MinAmount, Max: s.depositCfg.MaxAmount}
	}

	// Settlement credits an existing account; make sure the row is there
	// before a payment can ever arrive for it.
	if _, err := s.userRepo.GetOrCreate(ctx, userID, req.Username, req.FullName); err != nil {
		s.logger.Error("Failed to ensure user account", "user_id", userID, "error", err)
		return nil, err
	}

	var trans *deposit.Transaction
	var link *deposit.PaymentLink

	// The payload carries a four-digit nonce; on the rare unique-index
	// collision we roll the whole transaction back and draw a fresh one.
	var err error
	for attempt := 0; attempt < payloadRetries; attempt++ {
		payload := deposit.NewPayload(userID, amount, time.Now()).String()
		trans = deposit.NewTransaction(userID, amount, payload, s.depositCfg.TTL)

		err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
			repo := s.depositRepo.WithTx(tx)
			if err := repo.Create(ctx, trans); err != nil {
				return err
			}
			linkID, err := newLinkID()
			if err != nil {
				return fmt.Errorf("failed to generate link id: %w", err)
			}
			link = &deposit.PaymentLink{
				LinkID:        linkID,
				Payload:       payload,
				TransactionID: trans.ID,
				ExpiresAt:     trans.ExpiresAt,
			}
			return repo.CreateLink(ctx, link)
		})
		if err == nil {
			break
		}
		if !errors.Is(err, deposit.ErrDuplicatePayload{}) {
			s.logger.Error("Failed to create deposit transaction", "user_id", userID, "error", err)
			return nil, err
		}
		s.logger.Warn("Deposit payload collision, retrying", "user_id", userID, "attempt", attempt+1)
	}
	if err != nil {
		s.logger.Error("Failed to draw a unique deposit payload", "user_id", userID, "error", err)
		return nil, err
	}

	paymentLink, err := s.linkIssuer.Issue(ctx, link)
	if err != nil {
		// The intent was never shown to anyone, so removing it cannot lose
		// money. Best effort: the sweeper catches it if the delete fails too.
		if delErr := s.depositRepo.Delete(ctx, trans.ID); delErr != nil {
			s.logger.Error("Failed to remove deposit after link issuance failure",
				"transaction_id", trans.ID, "error", delErr)
		}
		s.logger.Error("Failed to issue payment link", "transaction_id", trans.ID, "error", err)
		return nil, fmt.Errorf("failed to issue payment link: %w", err)
	}

	s.metrics.DepositInitiated()
	s.logger.Info("Deposit initiated",
		"user_id", userID, "amount", amount, "transaction_id", trans.ID)

	return &InitResult{Transaction: trans, PaymentLink: paymentLink}, nil
}

// CheckStatus reports the current state of a deposit intent
func (s *DepositServiceImpl) CheckStatus(ctx context.Context, payload string) (*deposit.Transaction, error) {
	trans, err := s.depositRepo.GetByPayload(ctx, payload)
	if err != nil {
		if !errors.Is(err, deposit.ErrTransactionNotFound{}) {
			s.logger.Error("Failed to look up deposit transaction", "error", err)
		}
		return nil, err
	}
	return trans, nil
}

// Cancel abandons a pending deposit intent
func (s *DepositServiceImpl) Cancel(ctx context.Context, payload string) error {
	if err := s.depositRepo.Cancel(ctx, payload); err != nil {
		return err
	}
	s.metrics.DepositCancelled()
	s.logger.Info("Deposit cancelled", "payload", payload)
	return nil
}

// VerifySettlement settles a deposit on behalf of the trusted backend.
// The api key gate runs before any database access so an unauthenticated
// caller learns nothing about stored payloads.
func (s *DepositServiceImpl) VerifySettlement(ctx context.Context, req *VerifyRequest) (settlement.Outcome, error) {
	want := s.securityCfg.APIKey()
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(want)) != 1 {
		s.logger.Warn("Settlement verification with a bad api key", "user_id", req.UserID)
		return 0, ErrUnauthorized
	}

	return s.settler.Settle(ctx, &settlement.SettleRequest{
		ChargeID: req.ChargeID,
		UserID:   req.UserID,
		Payload:  req.Payload,
		Amount:   req.Amount,
	})
}

func newLinkID() (string, error) {
	buf := make([]byte, linkIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// TelegramLinkIssuer builds t.me deep links for the configured bot
type TelegramLinkIssuer struct {
	botUsername string
}

// NewTelegramLinkIssuer creates a link issuer for the given bot username
func NewTelegramLinkIssuer(botUsername string) *TelegramLinkIssuer {
	return &TelegramLinkIssuer{botUsername: botUsername}
}

// Issue renders the deep link carrying the short link id as start parameter
func (i *TelegramLinkIssuer) Issue(_ context.Context, link *deposit.PaymentLink) (string, error) {
	if i.botUsername == "" {
		return "", errors.New("bot username is not configured")
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", i.botUsername, link.LinkID), nil
}
