package schedulerimpl

import (
	"github.com/orgball2608/social-poster-telegram-bot/internal/publisher"
	"github.com/orgball2608/social-poster-telegram-bot/internal/repositories/account"
	"github.com/orgball2608/social-poster-telegram-bot/internal/repositories/post"
	"github.com/orgball2608/social-poster-telegram-bot/internal/scheduler"
	"github.com/orgball2608/social-poster-telegram-bot/internal/telegram"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

type Opts struct {
	fx.In

	Publisher   publisher.Client
	Telegram    telegram.Client
	PostRepo    post.Repository
	AccountRepo account.Repository
	Logger      logger.Logger
	Config      *config.Config
}

type SchedulerImpl struct {
	Publisher   publisher.Client
	Telegram    telegram.Client
	PostRepo    post.Repository
	AccountRepo account.Repository
	Logger      logger.Logger
	Config      *config.Config
}

func New(opts Opts) *SchedulerImpl {
	return &SchedulerImpl{
		Publisher:   opts.Publisher,
		Telegram:    opts.Telegram,
		PostRepo:    opts.PostRepo,
		AccountRepo: opts.AccountRepo,
		Logger:      opts.Logger,
		Config:      opts.Config,
	}
}

var _ scheduler.Client = (*SchedulerImpl)(nil)
