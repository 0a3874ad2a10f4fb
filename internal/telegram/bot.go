package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"vpngatebot/internal/antispam"
	"vpngatebot/internal/auth"
	"vpngatebot/internal/config"
	"vpngatebot/internal/subs"
	"vpngatebot/internal/vpncode"
)

// Bot holds all dependencies and registers handlers. Engine and Verifier
// are wired after the underlying bot exists, since both need the gateway.
type Bot struct {
	Config   *config.Config
	Guard    *antispam.Guard
	Admins   *auth.Admins
	Engine   *vpncode.Service
	Verifier *subs.Verifier
	Log      *zap.Logger
}

// New creates a Bot with the dependencies available before gateway startup.
func New(cfg *config.Config, guard *antispam.Guard, admins *auth.Admins, logger *zap.Logger) *Bot {
	return &Bot{
		Config: cfg,
		Guard:  guard,
		Admins: admins,
		Log:    logger,
	}
}

// Options returns the bot.Option slice for all command/handler registrations.
func (b *Bot) Options() []bot.Option {
	return []bot.Option{
		bot.WithMiddlewares(b.admission),
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithMessageTextHandler("/start", bot.MatchTypeExact, b.startCommand),
		bot.WithMessageTextHandler("/help", bot.MatchTypeExact, b.helpCommand),
		bot.WithMessageTextHandler("/admin", bot.MatchTypePrefix, b.adminCommand),
		bot.WithMessageTextHandler("/vpn", bot.MatchTypePrefix, b.vpnCommand),
	}
}

// Gateway adapts *bot.Bot to the membership-checker interface consumed by
// the verifier and the distribution engine.
type Gateway struct {
	Bot *bot.Bot
}

// MemberStatus queries a user's membership in a channel and returns the
// Telegram status string.
func (g *Gateway) MemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	member, err := g.Bot.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: channel,
		UserID: userID,
	})
	if err != nil {
		return "", err
	}
	return memberStatus(member), nil
}

func memberStatus(m *models.ChatMember) string {
	switch m.Type {
	case models.ChatMemberTypeOwner:
		return "creator"
	case models.ChatMemberTypeAdministrator:
		return "administrator"
	case models.ChatMemberTypeMember:
		return "member"
	case models.ChatMemberTypeRestricted:
		return "restricted"
	case models.ChatMemberTypeLeft:
		return "left"
	case models.ChatMemberTypeBanned:
		return "kicked"
	}
	return "unknown"
}

// RegisterBotCommands registers the command list with Telegram for
// auto-completion.
func (b *Bot) RegisterBotCommands(ctx context.Context, tgBot *bot.Bot) {
	commands := []models.BotCommand{
		{Command: "start", Description: "Welcome message and options"},
		{Command: "vpn", Description: "Get a VPN code"},
		{Command: "help", Description: "Show commands"},
	}
	if _, err := tgBot.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		b.Log.Warn("failed to register bot commands", zap.Error(err))
	}
}
