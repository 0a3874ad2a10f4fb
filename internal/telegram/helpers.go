package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

func (b *Bot) reply(ctx context.Context, tgBot *bot.Bot, chatID int64, text string) {
	if _, err := tgBot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		b.Log.Error("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// codeMessage formats the MarkdownV2 code reply with the code in a code
// span and the grant reason underneath.
func codeMessage(code, reason string) string {
	return "🌐 *VPN Code* 🌐\n\nYour code: `" + code + "`\n\nUse it to activate your VPN\\!\n" + bot.EscapeMarkdown(reason)
}

func (b *Bot) replyCode(ctx context.Context, tgBot *bot.Bot, chatID int64, code, reason string) {
	if _, err := tgBot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      codeMessage(code, reason),
		ParseMode: models.ParseModeMarkdown,
	}); err != nil {
		b.Log.Error("send code message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// joinLinks renders one "@handle: https://t.me/handle" line per channel.
func joinLinks(channels []string) string {
	var sb strings.Builder
	for _, channel := range channels {
		fmt.Fprintf(&sb, "%s: https://t.me/%s\n", channel, strings.TrimPrefix(channel, "@"))
	}
	return sb.String()
}

func channelList(channels []string) string {
	return "[" + strings.Join(channels, ", ") + "]"
}
