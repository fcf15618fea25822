// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"ruznama_bot/internal/config"
	"ruznama_bot/internal/logging"
)

// messenger is the subset of the Bot API used to talk to users.
type messenger interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

type botAPI interface {
	messenger
	Start(ctx context.Context)
	StartWebhook(ctx context.Context)
	WebhookHandler() http.HandlerFunc
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"callback_query",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance and logging dependencies.
type Client struct {
	bot    botAPI
	sender *Sender
	router *Router
	cfg    config.Config
	logger *logrus.Entry
}

// NewClient initializes the Telegram bot and routes every update to router.
func NewClient(cfg config.Config, router *Router, logger *logrus.Entry) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{
		router: router,
		cfg:    cfg,
		logger: logger,
	}

	options := []bot.Option{
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	}
	if cfg.UseWebhook() && cfg.WebhookSecret != "" {
		options = append(options, bot.WithWebhookSecretToken(cfg.WebhookSecret))
	}

	tgBot, err := createBot(cfg.TelegramToken, options...)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot
	client.sender = NewSender(tgBot, logger)
	router.attach(client.sender)

	return client, nil
}

// Sender returns the outbound message dispatcher bound to this bot.
func (c *Client) Sender() *Sender {
	return c.sender
}

// WebhookHandler returns the HTTP handler that feeds webhook updates to the
// bot. It is only meaningful when WEBHOOK_URL is configured.
func (c *Client) WebhookHandler() http.Handler {
	return c.bot.WebhookHandler()
}

// Start receives updates until the context is canceled, via webhook when
// configured and long polling otherwise.
func (c *Client) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if c.cfg.UseWebhook() {
		if _, err := c.bot.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:            c.cfg.WebhookURL,
			SecretToken:    c.cfg.WebhookSecret,
			AllowedUpdates: defaultAllowedUpdates,
		}); err != nil {
			return fmt.Errorf("set telegram webhook: %w", err)
		}

		c.logger.WithFields(logging.Fields{
			"event":           "telegram_listen",
			"mode":            "webhook",
			"allowed_updates": defaultAllowedUpdates,
		}).Info("starting telegram webhook processing")

		c.bot.StartWebhook(ctx)
	} else {
		c.logger.WithFields(logging.Fields{
			"event":           "telegram_listen",
			"mode":            "polling",
			"allowed_updates": defaultAllowedUpdates,
		}).Info("starting telegram long polling")

		c.bot.Start(ctx)
	}

	c.logger.WithField("event", "telegram_stopped").Info("telegram update processing stopped")
	return nil
}

func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	c.router.Handle(ctx, update)
}

type updateMeta struct {
	userID     int64
	chatID     int64
	text       string
	updateType string
}

func extractUpdateMeta(update *models.Update) updateMeta {
	switch {
	case update.Message != nil:
		return updateMeta{
			userID:     userID(update.Message.From),
			chatID:     chatID(&update.Message.Chat),
			text:       strings.TrimSpace(update.Message.Text),
			updateType: "message",
		}
	case update.CallbackQuery != nil:
		return updateMeta{
			userID:     userID(&update.CallbackQuery.From),
			chatID:     messageChatID(update.CallbackQuery.Message),
			text:       strings.TrimSpace(update.CallbackQuery.Data),
			updateType: "callback_query",
		}
	default:
		return updateMeta{updateType: "unknown"}
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram update error")
	}
}

func userID(user *models.User) int64 {
	if user == nil {
		return 0
	}

	return user.ID
}

func chatID(chat *models.Chat) int64 {
	if chat == nil {
		return 0
	}

	return chat.ID
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return chatID(&msg.Message.Chat)
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return chatID(&msg.InaccessibleMessage.Chat)
	default:
		return 0
	}
}

// messageID returns the id of the message a callback was attached to, or 0
// when it is no longer accessible.
func messageID(msg models.MaybeInaccessibleMessage) int {
	if msg.Type == models.MaybeInaccessibleMessageTypeMessage && msg.Message != nil {
		return msg.Message.ID
	}
	return 0
}
