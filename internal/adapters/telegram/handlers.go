package telegram

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dommurphy155/tiktokbot2/internal/core/domain"
)

// SignalHandler is what the chat can ask of the pipeline. The orchestrator
// implements it.
type SignalHandler interface {
	OnNext(ctx context.Context) error
	OnPrevious(ctx context.Context) error
	OnPost(ctx context.Context, chatID int64) error
	OnText(ctx context.Context, chatID int64, text string) error
}

// Run polls for updates and dispatches them until ctx is cancelled. Every
// handler failure is logged and absorbed; one bad update never stops the
// loop.
func (b *Bot) Run(ctx context.Context, handler SignalHandler) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.dispatch(ctx, handler, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, handler SignalHandler, update tgbotapi.Update) {
	if cb := update.CallbackQuery; cb != nil {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			b.logger.Debug("failed to answer callback", "error", err)
		}
		// Drop the invoking message so the chat only ever shows the
		// current video.
		if cb.Message != nil {
			b.DeleteMessages(ctx, cb.Message.Chat.ID, []int{cb.Message.MessageID})
		}

		chatID := b.chatID
		if cb.Message != nil && cb.Message.Chat != nil {
			chatID = cb.Message.Chat.ID
		}

		var err error
		switch cb.Data {
		case actionNext, actionPostNext:
			err = handler.OnNext(ctx)
		case actionPrevious:
			err = handler.OnPrevious(ctx)
		case actionPost:
			err = handler.OnPost(ctx, chatID)
		default:
			b.logger.Debug("ignoring unknown callback", "data", cb.Data)
		}
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				b.logger.Warn("nothing available for request", "action", cb.Data)
				return
			}
			b.logger.Error("action failed", "action", cb.Data, "error", err)
		}
		return
	}

	if msg := update.Message; msg != nil && msg.Text != "" && !msg.IsCommand() {
		if err := handler.OnText(ctx, msg.Chat.ID, msg.Text); err != nil {
			b.logger.Error("text handling failed", "chat", msg.Chat.ID, "error", err)
		}
	}
}
