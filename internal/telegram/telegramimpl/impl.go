package telegramimpl

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/orgball2608/social-poster-telegram-bot/internal/telegram"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Config *config.Config
	Logger logger.Logger
}

type TelegramImpl struct {
	bot    *tgbotapi.BotAPI
	logger logger.Logger
	config *config.Config
}

func New(opts Opts) (*TelegramImpl, error) {
	bot, err := tgbotapi.NewBotAPI(opts.Config.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot api: %w", err)
	}

	log := opts.Logger.WithComponent("Telegram")
	log.Info("Telegram bot authorised", "username", bot.Self.UserName)

	return &TelegramImpl{
		bot:    bot,
		logger: log,
		config: opts.Config,
	}, nil
}

var _ telegram.Client = (*TelegramImpl)(nil)
