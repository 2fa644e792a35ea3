package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/aussiebroadwan/portal/internal/auth/app"
	"github.com/joho/godotenv"
)

func main() {
	loadLocalEnv()

	cfg := app.LoadConfig()

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

// loadLocalEnv reads .env when present. Variables already set win.
func loadLocalEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("ignoring .env: %v", err)
	}
}
