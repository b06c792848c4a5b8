// Package bot runs the Telegram payment bot: it turns deposit links into
// Stars invoices and feeds provider payment callbacks into settlement.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/stars-deposit-ledger/internal/config"
	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/domain/user"
	"github.com/stars-deposit-ledger/internal/platform/metrics"
	"github.com/stars-deposit-ledger/internal/settlement"
)

// telegramAPI is the slice of the bot client the handlers use. *bot.Bot
// satisfies it; tests substitute a mock.
type telegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*models.Message, error)
	AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error)
}

// Bot wraps the telegram bot with the deposit payment handlers
type Bot struct {
	bot     *bot.Bot
	api     telegramAPI
	cfg     *config.Config
	deposit depositStore
	users   user.Repository
	settler settlement.Service
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// depositStore is the subset of the deposit repository the bot needs
type depositStore interface {
	Create(ctx context.Context, trans *deposit.Transaction) error
	GetByPayload(ctx context.Context, payload string) (*deposit.Transaction, error)
	GetLink(ctx context.Context, linkID string) (*deposit.PaymentLink, error)
}

// New creates a new telegram payment bot
func New(
	cfg *config.Config,
	depositRepo deposit.Repository,
	userRepo user.Repository,
	settler settlement.Service,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*Bot, error) {
	b := &Bot{
		cfg:     cfg,
		deposit: depositRepo,
		users:   userRepo,
		settler: settler,
		metrics: m,
		logger:  logger,
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
	}

	tgBot, err := bot.New(cfg.Telegram.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	b.bot = tgBot
	b.api = tgBot

	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start ", bot.MatchTypePrefix, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/deposit", bot.MatchTypePrefix, b.depositHandler)

	return b, nil
}

// Start begins long polling for updates. Blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("Telegram bot started", "username", b.cfg.Telegram.BotUsername)
	b.bot.Start(ctx)
}

// defaultHandler routes the payment updates that have no message-text
// pattern: pre-checkout queries and successful payments.
func (b *Bot) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		b.handlePreCheckout(ctx, update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		b.handleSuccessfulPayment(ctx, update.Message)
	}
}
