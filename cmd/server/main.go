package main

import (
	"context"
	"log"

	"github.com/vettta06/devteam-ai/internal/server"
	"github.com/vettta06/devteam-ai/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Fatalf("startup error: %v", err)
	}

	app.Run(context.Background())
}
