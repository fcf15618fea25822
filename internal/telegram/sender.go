package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"ruznama_bot/internal/domain"
	"ruznama_bot/internal/logging"
)

// unreachableMarkers are Bot API error descriptions meaning the chat is gone
// for good.
var unreachableMarkers = []string{
	"chat not found",
	"user is deactivated",
	"bot was blocked",
	"bot was kicked",
	"have no rights to send",
}

var disabledPreview = &models.LinkPreviewOptions{IsDisabled: bot.True()}

// Sender delivers HTML messages and classifies Bot API failures.
type Sender struct {
	api    messenger
	logger *logrus.Entry
}

// NewSender wraps a Bot API client.
func NewSender(api messenger, logger *logrus.Entry) *Sender {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Sender{api: api, logger: logger}
}

// SendMessage sends text to the private chat of userID. Failures are
// *domain.DeliveryError values.
func (s *Sender) SendMessage(ctx context.Context, userID, text string) error {
	if s == nil || s.api == nil {
		return errors.New("sender is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	chat, err := strconv.ParseInt(strings.TrimSpace(userID), 10, 64)
	if err != nil {
		return &domain.DeliveryError{
			Reason: domain.FailureUnreachable,
			Err:    fmt.Errorf("parse chat id %q: %w", userID, err),
		}
	}

	return s.send(ctx, chat, text, nil)
}

func (s *Sender) send(ctx context.Context, chat int64, text string, markup models.ReplyMarkup) error {
	params := &bot.SendMessageParams{
		ChatID:             chat,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: disabledPreview,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := s.api.SendMessage(ctx, params); err != nil {
		return classify(err)
	}
	return nil
}

// edit replaces the text of a bot message, falling back to a new message
// when the original cannot be edited.
func (s *Sender) edit(ctx context.Context, chat int64, message int, text string, markup models.ReplyMarkup) error {
	if message == 0 {
		return s.send(ctx, chat, text, markup)
	}

	params := &bot.EditMessageTextParams{
		ChatID:             chat,
		MessageID:          message,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: disabledPreview,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	_, err := s.api.EditMessageText(ctx, params)
	switch {
	case err == nil:
		return nil
	case strings.Contains(strings.ToLower(err.Error()), "message is not modified"):
		return nil
	case errors.Is(err, bot.ErrorBadRequest):
		s.logger.WithFields(logging.Fields{
			"event":   "telegram_edit_fallback",
			"chat_id": chat,
		}).WithError(err).Debug("message cannot be edited, sending a new one")
		return s.send(ctx, chat, text, markup)
	default:
		return classify(err)
	}
}

func (s *Sender) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}

	if _, err := s.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		s.logger.WithField("event", "telegram_answer_failed").WithError(err).Debug("answer callback query failed")
	}
}

// classify maps a Bot API error onto a delivery failure reason.
func classify(err error) error {
	if err == nil {
		return nil
	}

	reason := domain.FailureTransient
	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, bot.ErrorForbidden):
		reason = domain.FailureUnreachable
	case errors.Is(err, bot.ErrorBadRequest):
		for _, marker := range unreachableMarkers {
			if strings.Contains(lower, marker) {
				reason = domain.FailureUnreachable
				break
			}
		}
	}

	return &domain.DeliveryError{Reason: reason, Err: err}
}
