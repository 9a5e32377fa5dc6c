package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/orgball2608/social-poster-telegram-bot/internal/browser"
	_ "github.com/orgball2608/social-poster-telegram-bot/internal/migrations"
	"github.com/orgball2608/social-poster-telegram-bot/internal/pgx"
	"github.com/orgball2608/social-poster-telegram-bot/internal/publisher"
	"github.com/orgball2608/social-poster-telegram-bot/internal/publisher/publisherimpl"
	"github.com/orgball2608/social-poster-telegram-bot/internal/ratelimit"
	repositories "github.com/orgball2608/social-poster-telegram-bot/internal/repositories/fx"
	"github.com/orgball2608/social-poster-telegram-bot/internal/scheduler"
	"github.com/orgball2608/social-poster-telegram-bot/internal/scheduler/schedulerimpl"
	"github.com/orgball2608/social-poster-telegram-bot/internal/selector"
	"github.com/orgball2608/social-poster-telegram-bot/internal/storage"
	"github.com/orgball2608/social-poster-telegram-bot/internal/storage/storageimpl"
	"github.com/orgball2608/social-poster-telegram-bot/internal/telegram"
	"github.com/orgball2608/social-poster-telegram-bot/internal/telegram/telegramimpl"
	"github.com/orgball2608/social-poster-telegram-bot/internal/vault"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/config"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
)

var App = fx.Options(
	fx.Provide(
		config.New,
		logger.FxOption,
		pgx.New,
		vault.New,
		browser.NewManager,
		selector.New,
	),
	fx.Provide(
		fx.Annotate(
			telegramimpl.New,
			fx.As(new(telegram.Client)),
		), fx.Annotate(
			storageimpl.New,
			fx.As(new(storage.Client)),
		), fx.Annotate(
			publisherimpl.New,
			fx.As(new(publisher.Client)),
		),
		fx.Annotate(
			schedulerimpl.New,
			fx.As(new(scheduler.Client)),
		),
	),
	fx.Provide(func() ratelimit.Limiter {
		// Six publishes per hour per account, small burst for catching
		// up an overdue queue.
		return ratelimit.NewInMemoryLimiter(6, time.Hour, 2)
	}),
	repositories.Module,
	fx.Invoke(migrate),
	fx.Invoke(run),
)

func migrate(c *config.Config) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := sql.Open("postgres", c.GetDSN())
	if err != nil {
		return err
	}
	defer db.Close()

	// Migrations are compiled in via the blank import; the directory
	// argument only has to exist.
	return goose.Up(db, ".")
}

func run(lc fx.Lifecycle, log logger.Logger, cfg *config.Config, tgClient telegram.Client, schedClient scheduler.Client) {
	var cancel context.CancelFunc

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			go startHttpServer(log, cfg)

			if err := schedClient.ScheduleDeliveries(ctx); err != nil {
				log.Error("Failed to start delivery ticks", "Error", err)
				tgClient.SendMessageToOperator("Failed to start delivery ticks: " + err.Error())
				return err
			}

			// A broken sweep or digest cron leaves the service degraded
			// but still delivering.
			if err := schedClient.ScheduleRetentionSweep(ctx); err != nil {
				log.Error("Failed to start retention sweep", "Error", err)
				tgClient.SendMessageToOperator("Failed to start retention sweep: " + err.Error())
			}
			if err := schedClient.ScheduleQueueDigest(ctx); err != nil {
				log.Error("Failed to start queue digest", "Error", err)
				tgClient.SendMessageToOperator("Failed to start queue digest: " + err.Error())
			}

			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			return nil
		},
	})
}

func startHttpServer(log logger.Logger, cfg *config.Config) {
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		healthCheckHandler(w, r, log)
	})

	log.Info(fmt.Sprintf("Starting server on :%d", cfg.App.Port))

	if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.App.Port), nil); err != nil {
		log.Error("Server failed to start", "Error", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request, logger logger.Logger) {
	logger.Info("Health check request received", "Method", r.Method, "URL", r.URL.String())
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.Error("Failed to write response", "Error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
