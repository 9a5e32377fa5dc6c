package fx

import (
	"github.com/orgball2608/social-poster-telegram-bot/internal/repositories/account"
	"github.com/orgball2608/social-poster-telegram-bot/internal/repositories/post"
	"go.uber.org/fx"
)

var Module = fx.Options(
	post.Module,
	account.Module,
)
