package telegram

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"vpngatebot/internal/auth"
	"vpngatebot/internal/command"
	"vpngatebot/internal/vpncode"
)

const (
	adminUsage = `Please provide a password and channels. Example: /admin YourPassword ["@channel_one","@channel_two"]`
	vpnUsage   = "❌ Invalid format. Use: /vpn <password> <code> (e.g., /vpn YourPassword VPN-XYZ12345) or /vpn"
)

func (b *Bot) startCommand(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	welcome := "👋 Welcome to the VPN Bot!\n" +
		"I provide VPN codes after channel subscriptions.\n\n" +
		"Choose an option below:"

	if _, err := tgBot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   welcome,
		ReplyMarkup: &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "🌐 VPN", CallbackData: "vpn"}},
			},
		},
	}); err != nil {
		b.Log.Error("send start message failed", zap.Error(err))
		b.reply(ctx, tgBot, chatID, "⚠️ Error displaying options. Please try again.")
	}
}

func (b *Bot) helpCommand(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "🌐 VPN Bot Commands 🌐\n\n" +
		"/start - Show welcome message and options\n" +
		"/vpn - Get a VPN code (requires channel subscriptions)\n" +
		"/vpn <password> <code> - Set the active VPN code (admin only)\n" +
		`/admin <password> <channels> - Update required channels (e.g., /admin YourPassword ["@channel_one","@channel_two"])` + "\n" +
		"/help - Show this message"

	b.reply(ctx, tgBot, update.Message.Chat.ID, helpText)
}

func (b *Bot) adminCommand(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	cmd := command.Parse(update.Message.Text)
	if cmd.Kind != command.KindAdmin {
		return
	}
	if cmd.Password == "" || cmd.Arg == "" {
		b.reply(ctx, tgBot, chatID, adminUsage)
		return
	}

	if !auth.CheckPassword(cmd.Password, b.Config.AdminPassword) {
		b.Log.Info("invalid password attempt for /admin", zap.Int64("user_id", userID))
		b.reply(ctx, tgBot, chatID, "❌ Invalid password.")
		return
	}

	channels, err := command.ParseChannels(cmd.Arg)
	if err != nil {
		b.Log.Info("invalid channel list", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(ctx, tgBot, chatID, "❌ Channels must be an array of valid Telegram usernames starting with @.")
		return
	}

	old, err := b.Engine.UpdateChannels(ctx, channels)
	if err != nil {
		if notAuth, ok := err.(*vpncode.ChannelNotAuthorizedError); ok {
			b.reply(ctx, tgBot, chatID, fmt.Sprintf(
				"❌ Bot must be an admin in %s. Please add the bot as an admin and try again.", notAuth.Channel))
			return
		}
		b.Log.Error("channel update failed", zap.Error(err))
		b.reply(ctx, tgBot, chatID, "⚠️ Error updating channels. Please try again.")
		return
	}

	b.Admins.Grant(userID)
	b.Log.Info("granted admin status", zap.Int64("user_id", userID))
	b.reply(ctx, tgBot, chatID, fmt.Sprintf(
		"✅ You are now an admin! Required channels updated from %s to %s",
		channelList(old), channelList(channels)))
}

func (b *Bot) vpnCommand(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID

	cmd := command.Parse(update.Message.Text)
	if cmd.Kind == command.KindVPNSet {
		b.setCode(ctx, tgBot, chatID, userID, cmd)
		return
	}
	if cmd.Kind != command.KindVPNGet {
		// The prefix registration also catches texts like "/vpnabc";
		// those are not /vpn commands and get no reply, same as any
		// other unknown text.
		return
	}

	if b.Admins.Has(userID) {
		b.grantCode(ctx, tgBot, chatID, userID, "(Granted due to admin status)")
		return
	}

	result := b.Verifier.Check(ctx, userID, b.Engine.Channels())
	if !result.Subscribed {
		b.reply(ctx, tgBot, chatID,
			"Please subscribe to the following channels to get a VPN code:\n\n"+
				joinLinks(result.Missing)+
				"\nAfter subscribing, try /vpn again.")
		return
	}
	b.grantCode(ctx, tgBot, chatID, userID, "(Granted due to channel subscriptions)")
}

func (b *Bot) setCode(ctx context.Context, tgBot *bot.Bot, chatID, userID int64, cmd command.Command) {
	if cmd.Password == "" || cmd.Arg == "" {
		b.reply(ctx, tgBot, chatID, vpnUsage)
		return
	}
	if !auth.CheckPassword(cmd.Password, b.Config.AdminPassword) {
		b.Log.Info("invalid password attempt for /vpn set", zap.Int64("user_id", userID))
		b.reply(ctx, tgBot, chatID, "❌ Invalid password.")
		return
	}
	if err := b.Engine.SetActiveCode(ctx, cmd.Arg); err != nil {
		b.Log.Error("failed to set VPN code", zap.Error(err))
		b.reply(ctx, tgBot, chatID, "⚠️ Error setting VPN code. Please try again.")
		return
	}
	b.reply(ctx, tgBot, chatID, fmt.Sprintf("✅ VPN code %s set as the active code.", cmd.Arg))
}

func (b *Bot) grantCode(ctx context.Context, tgBot *bot.Bot, chatID, userID int64, reason string) {
	code, err := b.Engine.GetCode(ctx, userID)
	if err != nil {
		if err == vpncode.ErrNoCodeAvailable {
			b.reply(ctx, tgBot, chatID, "⚠️ No VPN codes available. Please contact an admin to add a code.")
			return
		}
		b.Log.Error("failed to get VPN code", zap.Int64("user_id", userID), zap.Error(err))
		b.reply(ctx, tgBot, chatID, "⚠️ Error fetching your VPN code. Please try again.")
		return
	}
	b.replyCode(ctx, tgBot, chatID, code, reason)
}
