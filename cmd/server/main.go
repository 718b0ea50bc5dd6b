package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/dirauth/internal/logging"
	"github.com/dmitrijs2005/dirauth/internal/server"
	"github.com/dmitrijs2005/dirauth/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger, nil)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}
