package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"vpngatebot/internal/antispam"
	"vpngatebot/internal/command"
)

// admission runs in front of every handler: it classifies the command,
// consults the abuse guard, and rejects or warns before business logic.
// It also recovers from handler panics so no update crashes the process.
func (b *Bot) admission(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
		userID, chatID, text := updateSender(update)

		defer func() {
			if r := recover(); r != nil {
				b.Log.Error("handler panic", zap.Any("panic", r), zap.Int64("chat_id", chatID))
				if chatID != 0 {
					b.reply(ctx, tgBot, chatID, "⚠️ An error occurred. Please try again later.")
				}
			}
		}()

		if userID == 0 {
			b.Log.Warn("update without sender")
			next(ctx, tgBot, update)
			return
		}

		switch decision := b.Guard.Admit(userID, classOf(text)); decision.Verdict {
		case antispam.Block:
			b.reply(ctx, tgBot, chatID, decision.Message)
			return
		case antispam.Warn:
			b.reply(ctx, tgBot, chatID, decision.Message)
		}

		next(ctx, tgBot, update)
	}
}

// classOf derives the rate-limit class from the parsed command kind.
// Only a bare /vpn request counts against the stricter vpn window.
func classOf(text string) antispam.Class {
	if command.Parse(text).Kind == command.KindVPNGet {
		return antispam.ClassVPN
	}
	return antispam.ClassGeneral
}

// updateSender extracts the sending user, the chat to reply into, and the
// message text from either a message or a callback query.
func updateSender(update *models.Update) (userID, chatID int64, text string) {
	if update.Message != nil {
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		return userID, update.Message.Chat.ID, update.Message.Text
	}
	if update.CallbackQuery != nil {
		userID = update.CallbackQuery.From.ID
		if update.CallbackQuery.Message.Message != nil {
			chatID = update.CallbackQuery.Message.Message.Chat.ID
		}
		return userID, chatID, ""
	}
	return 0, 0, ""
}
