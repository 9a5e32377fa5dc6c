package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/orgball2608/social-poster-telegram-bot/internal/app"
	"github.com/orgball2608/social-poster-telegram-bot/pkg/logger"
	"go.uber.org/fx"
)

func main() {
	_ = godotenv.Load()

	// Bootstrap logger only. The DI container builds the configured one.
	log := logger.New(logger.Opts{})

	poster := fx.New(
		fx.Logger(log),
		app.App,
	)

	if err := poster.Start(context.Background()); err != nil {
		log.Error("Failed to start application", "error", err)
		os.Exit(1)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	if err := poster.Stop(context.Background()); err != nil {
		log.Error("Failed to stop application", "error", err)
		os.Exit(1)
	}
}
