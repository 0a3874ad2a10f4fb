package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, tgBot, update)
		return
	}
	// Plain text that is not a known command gets no reply.
}

func (b *Bot) handleCallbackQuery(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback.Data != "vpn" {
		return
	}

	if _, err := tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callback.ID,
	}); err != nil {
		b.Log.Warn("answer callback failed", zap.Error(err))
	}

	if callback.Message.Message == nil {
		return
	}
	b.reply(ctx, tgBot, callback.Message.Message.Chat.ID, "To get a VPN code, use /vpn")
}
