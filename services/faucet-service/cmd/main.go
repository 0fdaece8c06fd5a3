package main

import (
	"context"
	"log"

	"github.com/burakmert236/xsgfaucet/common/config"
	"github.com/burakmert236/xsgfaucet/common/utils"
	"github.com/burakmert236/xsgfaucet/services/faucet-service/app"
)

func main() {
	env := config.NewEnvLoader("FAUCET")

	cfg, err := config.Load(env.GetString("CONFIG_PATH", "../config"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, appErr := app.New(ctx, cfg, env.GetBool("DEV_LOGS", false))
	if appErr != nil {
		log.Fatalf("Failed to initialize application: %v", appErr)
	}

	if appErr := application.Start(); appErr != nil {
		log.Fatalf("Failed to start application: %v", appErr)
	}

	sig := utils.WaitForGracefulShutdown()
	log.Printf("Received %s, shutting down gracefully...", sig)

	if appErr := application.Stop(); appErr != nil {
		log.Printf("Error during shutdown: %v", appErr)
	}
}
