package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/stars-deposit-ledger/internal/domain/deposit"
	"github.com/stars-deposit-ledger/internal/settlement"
)

func (b *Bot) startHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message

	arg := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/start"))
	if arg == "" {
		b.sendMessage(ctx, msg.Chat.ID,
			"This bot processes Stars deposits for the marketplace.\n\n"+
				"Start a deposit from the website to receive a payment link here.\n\n"+
				"Test deposit: /deposit <amount>")
		return
	}

	var payload string
	if deposit.IsPayload(arg) {
		// Old-style links carry the raw payload as the start parameter
		payload = arg
	} else {
		link, err := b.deposit.GetLink(ctx, arg)
		if err != nil {
			if errors.Is(err, deposit.ErrLinkNotFound{}) {
				b.sendMessage(ctx, msg.Chat.ID,
					"This payment link has expired or does not exist.\n"+
						"Please start a new deposit from the website.")
				return
			}
			b.logger.Error("Failed to resolve payment link", "link_id", arg, "error", err)
			b.sendMessage(ctx, msg.Chat.ID, "Something went wrong, please try again.")
			return
		}
		payload = link.Payload
	}

	trans, err := b.deposit.GetByPayload(ctx, payload)
	if err != nil {
		if errors.Is(err, deposit.ErrTransactionNotFound{}) {
			b.sendMessage(ctx, msg.Chat.ID,
				"This deposit could not be found. Please start a new one from the website.")
			return
		}
		b.logger.Error("Failed to load deposit transaction", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	if trans.Status.Final() || time.Now().After(trans.ExpiresAt) {
		b.sendMessage(ctx, msg.Chat.ID,
			"This deposit is no longer payable.\n"+
				"Please start a new deposit from the website.")
		return
	}
	if trans.UserID != msg.From.ID {
		b.logger.Warn("Deposit link opened by a different user",
			"transaction_user_id", trans.UserID, "sender_id", msg.From.ID)
		b.sendMessage(ctx, msg.Chat.ID, "This payment link belongs to another account.")
		return
	}

	b.sendStarsInvoice(ctx, msg.Chat.ID, trans.Amount, trans.Payload)
}

// depositHandler creates a deposit intent directly from chat. Meant for
// testing the payment flow without going through the website.
func (b *Bot) depositHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message

	arg := strings.TrimSpace(strings.TrimPrefix(msg.Text, "/deposit"))
	amount, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		b.sendMessage(ctx, msg.Chat.ID, "Usage: /deposit <amount>")
		return
	}
	if amount < b.cfg.Deposit.MinAmount || amount > b.cfg.Deposit.MaxAmount {
		b.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf(
			"Amount must be between %d and %d Stars.",
			b.cfg.Deposit.MinAmount, b.cfg.Deposit.MaxAmount))
		return
	}

	fullName := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if _, err := b.users.GetOrCreate(ctx, msg.From.ID, msg.From.Username, fullName); err != nil {
		b.logger.Error("Failed to ensure user account", "user_id", msg.From.ID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Something went wrong, please try again.")
		return
	}

	payload := deposit.NewPayload(msg.From.ID, amount, time.Now()).String()
	trans := deposit.NewTransaction(msg.From.ID, amount, payload, b.cfg.Deposit.TTL)
	if err := b.deposit.Create(ctx, trans); err != nil {
		b.logger.Error("Failed to create test deposit", "user_id", msg.From.ID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Something went wrong, please try again.")
		return
	}
	b.metrics.DepositInitiated()

	b.sendStarsInvoice(ctx, msg.Chat.ID, amount, payload)
}

func (b *Bot) sendStarsInvoice(ctx context.Context, chatID int64, amount int64, payload string) {
	_, err := b.api.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:      chatID,
		Title:       "Stars Deposit",
		Description: fmt.Sprintf("Deposit %d Stars to your marketplace balance", amount),
		Payload:     payload,
		// Stars invoices carry no provider token
		ProviderToken: "",
		Currency:      b.cfg.Deposit.Currency,
		Prices: []models.LabeledPrice{
			{Label: fmt.Sprintf("%d Stars", amount), Amount: int(amount)},
		},
	})
	if err != nil {
		b.logger.Error("Failed to send Stars invoice", "chat_id", chatID, "error", err)
		b.sendMessage(ctx, chatID, "Failed to create the invoice, please try again.")
	}
}

// handlePreCheckout answers the provider's pre-checkout query. Approval here
// is advisory; the authoritative checks run again at settlement.
func (b *Bot) handlePreCheckout(ctx context.Context, q *models.PreCheckoutQuery) {
	err := b.settler.Precheck(ctx, &settlement.PrecheckRequest{
		QueryID:  q.ID,
		UserID:   q.From.ID,
		Payload:  q.InvoicePayload,
		Currency: q.Currency,
		Amount:   int64(q.TotalAmount),
	})

	params := &bot.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: q.ID,
		OK:                 err == nil,
	}
	if err != nil {
		params.ErrorMessage = precheckErrorMessage(err)
		b.logger.Warn("Pre-checkout rejected",
			"user_id", q.From.ID, "payload", q.InvoicePayload, "error", err)
	}

	if _, answerErr := b.api.AnswerPreCheckoutQuery(ctx, params); answerErr != nil {
		b.logger.Error("Failed to answer pre-checkout query", "query_id", q.ID, "error", answerErr)
	}
}

// handleSuccessfulPayment settles a confirmed payment. By the time this
// update arrives the Stars have already moved, so a failure here means money
// without a credit; it is logged loudly and left for manual reconciliation.
func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *models.Message) {
	sp := msg.SuccessfulPayment
	if msg.From == nil {
		return
	}

	outcome, err := b.settler.Settle(ctx, &settlement.SettleRequest{
		ChargeID: sp.TelegramPaymentChargeID,
		UserID:   msg.From.ID,
		Payload:  sp.InvoicePayload,
		Amount:   int64(sp.TotalAmount),
	})
	if err != nil {
		b.logger.Error("ALERT: payment received but settlement failed",
			"user_id", msg.From.ID,
			"payload", sp.InvoicePayload,
			"charge_id", sp.TelegramPaymentChargeID,
			"amount", sp.TotalAmount,
			"error", err)
		b.sendMessage(ctx, msg.Chat.ID,
			"Your payment was received and is being processed.\n"+
				"If your balance does not update shortly, please contact support.")
		return
	}

	// Duplicate deliveries were already credited and confirmed once
	if outcome == settlement.AlreadySettled {
		return
	}

	text := fmt.Sprintf("Deposit of %d Stars credited to your balance.\nReference: %s",
		sp.TotalAmount, sp.TelegramPaymentChargeID)
	if b.cfg.Telegram.WebsiteURL != "" {
		text += "\n" + b.cfg.Telegram.WebsiteURL
	}
	b.sendMessage(ctx, msg.Chat.ID, text)
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) {
	_, err := b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		b.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func precheckErrorMessage(err error) string {
	switch {
	case errors.Is(err, deposit.ErrTransactionExpired{}):
		return "This deposit has expired. Please start a new one from the website."
	case errors.Is(err, deposit.ErrTransactionNotFound{}):
		return "This deposit could not be found. Please start a new one from the website."
	case errors.Is(err, deposit.ErrAmountMismatch{}):
		return "The payment amount does not match the deposit."
	case errors.Is(err, deposit.ErrUserMismatch{}):
		return "This deposit belongs to another account."
	case errors.Is(err, deposit.ErrUnsupportedCurrency{}):
		return "Only Telegram Stars payments are supported."
	default:
		return "The deposit could not be verified. Please try again."
	}
}
