// Package cmd initializes the CLI, configuration, and the bot process.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"vpngatebot/internal/antispam"
	"vpngatebot/internal/auth"
	"vpngatebot/internal/config"
	"vpngatebot/internal/logging"
	"vpngatebot/internal/store"
	"vpngatebot/internal/subs"
	"vpngatebot/internal/telegram"
	"vpngatebot/internal/vpncode"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vpngatebot",
	Short: "Telegram bot gating VPN code distribution behind channel subscriptions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (optional)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "could not read config file %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
	}
	viper.AutomaticEnv()
}

func run() error {
	// 1. Load configuration; missing token or password is fatal.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "initialize logger")
	}
	defer func() { _ = logger.Sync() }()

	// 2. Open the document store.
	db, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return errors.Wrap(err, "initialize store")
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 3. Load the required-channel list once; it lives in memory from here.
	channels, err := db.LoadChannels(ctx)
	if err != nil {
		return errors.Wrap(err, "load channels")
	}
	logger.Info("loaded required channels", zap.Strings("channels", channels))

	// 4. Build the admission layer.
	admins := auth.NewAdmins()
	guard := antispam.NewGuard(antispam.DefaultConfig(), admins, logger)

	// 5. Create the bot with handlers registered.
	tb := telegram.New(cfg, guard, admins, logger)
	tgBot, err := bot.New(cfg.TelegramToken, tb.Options()...)
	if err != nil {
		return errors.Wrap(err, "create bot")
	}

	// 6. Wire the gateway-dependent components after bot creation.
	me, err := tgBot.GetMe(ctx)
	if err != nil {
		return errors.Wrap(err, "identify bot")
	}
	gw := &telegram.Gateway{Bot: tgBot}
	tb.Engine = vpncode.New(db, gw, me.ID, channels, logger)
	tb.Verifier = subs.NewVerifier(gw, logger)

	tb.RegisterBotCommands(ctx, tgBot)

	// 7. Start the rate-limit sweep.
	go guard.Run(ctx)

	// 8. Start the long-poll loop until SIGINT/SIGTERM.
	logger.Info("🤖 VPN gate bot started", zap.Int64("bot_id", me.ID))
	tgBot.Start(ctx)
	logger.Info("bot stopped")
	return nil
}
