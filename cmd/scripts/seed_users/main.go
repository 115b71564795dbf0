// Creates a local demo account so the authenticated endpoints can be
// exercised without going through the register flow first.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/shopdesk/supportbot/internal/auth"
	"github.com/shopdesk/supportbot/internal/db"
	"github.com/shopdesk/supportbot/internal/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("config: failed to load: %v", err)
	}

	ctx := context.Background()

	postgres, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("postgres: failed to connect: %v", err)
	}
	defer postgres.Close()

	if err := postgres.EnsureSchema(ctx); err != nil {
		log.Fatalf("postgres: ensure schema: %v", err)
	}

	authService, err := auth.NewService(cfg.JWTSecret, 24*time.Hour, db.NewUsers(postgres))
	if err != nil {
		log.Fatalf("auth: failed to initialise: %v", err)
	}

	username := envOrDefault("SEED_USERNAME", "demo")
	password := envOrDefault("SEED_PASSWORD", "demo-secret")

	result, err := authService.Register(ctx, auth.RegisterInput{
		Username: username,
		Email:    envOrDefault("SEED_EMAIL", "demo@example.com"),
		Password: password,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) || errors.Is(err, auth.ErrEmailExists) {
			log.Printf("seed user %q already exists, nothing to do", username)
			return
		}
		log.Fatalf("failed to create seed user: %v", err)
	}

	log.Printf("created user %q (id %s)", username, result.User.ID)
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
