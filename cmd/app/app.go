package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/voyager-tech/go-backend/internal/app"
	config "github.com/voyager-tech/go-backend/internal/cfg"
	"github.com/voyager-tech/go-backend/pkg/logger"
)

// @title		Price Tracker API
// @version		1.0
// @BasePath	/
func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Errorf(err, "failed to initialize app")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
