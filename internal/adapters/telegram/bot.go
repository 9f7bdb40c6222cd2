// Package telegram is the remote control: it presents the current video
// with navigation buttons and relays the chat's signals back into the
// pipeline.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sethvargo/go-retry"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
	"github.com/dommurphy155/tiktokbot2/internal/logging"
)

// Callback payloads of the inline keyboard.
const (
	actionNext     = "next_video"
	actionPrevious = "prev_video"
	actionPost     = "post_video"
	actionPostNext = "post_next"
)

const sendAttempts = 3

// Bot wraps the Telegram Bot API for one controlling chat.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *logging.Logger
}

// NewBot authenticates against the Bot API.
func NewBot(token string, chatID int64, logger *logging.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	logger.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Bot{api: api, chatID: chatID, logger: logger}, nil
}

// PresentArtifact uploads the video with its caption and the navigation
// keyboard. The send is retried a bounded number of times; Telegram
// uploads of tens of megabytes fail often enough to warrant it.
func (b *Bot) PresentArtifact(ctx context.Context, artifact *domain.Artifact, navIndex int, leadText string, meta *domain.Metadata) error {
	video := tgbotapi.NewVideo(b.chatID, tgbotapi.FilePath(artifact.Path))
	video.Caption = buildCaption(leadText, meta)
	video.ReplyMarkup = navigationKeyboard(navIndex)

	start := time.Now()
	backoff := retry.WithMaxRetries(sendAttempts-1, retry.NewConstant(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := b.api.Send(video); err != nil {
			b.logger.Warn("failed to send video", "path", artifact.Path, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to send video %s after %d attempts: %w", artifact.Path, sendAttempts, err)
	}
	b.logger.Info("sent video", "path", artifact.Path, "index", navIndex, "took", time.Since(start).Round(10*time.Millisecond))
	return nil
}

// SendPrompt asks the chat a question, returning the message ID for later
// cleanup.
func (b *Bot) SendPrompt(ctx context.Context, chatID int64, text string) (int, error) {
	msg, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return 0, fmt.Errorf("failed to send prompt: %w", err)
	}
	return msg.MessageID, nil
}

// SendProcessingNotice confirms the upload is underway and offers Next.
func (b *Bot) SendProcessingNotice(ctx context.Context, chatID int64) (int, error) {
	msg := tgbotapi.NewMessage(chatID, "Your post is now processing. Please check your TikTok shortly to confirm.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Next ▶️", actionPostNext),
		),
	)
	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send processing notice: %w", err)
	}
	return sent.MessageID, nil
}

// DeleteMessages removes prompts already answered. Best-effort.
func (b *Bot) DeleteMessages(ctx context.Context, chatID int64, messageIDs []int) {
	for _, id := range messageIDs {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
			b.logger.Debug("failed to delete message", "chat", chatID, "message", id, "error", err)
		}
	}
}

func navigationKeyboard(navIndex int) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	if navIndex > 0 {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("◀️ Previous", actionPrevious))
	}
	row = append(row,
		tgbotapi.NewInlineKeyboardButtonData("Post ⬆️", actionPost),
		tgbotapi.NewInlineKeyboardButtonData("Next ▶️", actionNext),
	)
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func buildCaption(leadText string, meta *domain.Metadata) string {
	var parts []string
	if leadText != "" {
		parts = append(parts, leadText)
	}
	if meta != nil && meta.Caption != "" {
		parts = append(parts, "Original Caption: "+meta.Caption)
	}
	if meta != nil && len(meta.Hashtags) > 0 {
		parts = append(parts, "Hashtags: "+strings.Join(meta.Hashtags, " "))
	}
	return strings.Join(parts, "\n\n")
}
