// cmd/seeduser creates or updates a staff account.
// Usage: go run ./cmd/seeduser -email admin@stockpos.local -password changeme123
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"stockpos/internal/config"
	"stockpos/internal/infra"
	"stockpos/internal/model"
	"stockpos/internal/repository"
	"stockpos/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	email := flag.String("email", "admin@stockpos.local", "account email")
	password := flag.String("password", "changeme123", "account password (min 8 chars)")
	flag.Parse()

	if !service.ValidateEmail(*email) {
		log.Fatal().Str("email", *email).Msg("invalid email")
	}
	if len(*password) < 8 {
		log.Fatal().Msg("password must be at least 8 characters long")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	db, err := infra.NewDatabase(infra.DatabaseOptions{
		Driver:      cfg.DBDriver,
		DSN:         cfg.DatabaseURL,
		AutoMigrate: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	user := &model.User{Email: *email, PasswordHash: string(hash)}
	if err := repository.NewUserRepository(db).Upsert(context.Background(), user); err != nil {
		log.Fatal().Err(err).Msg("upsert error")
	}
	log.Info().Uint("user_id", user.ID).Str("email", user.Email).Msg("user created/updated")
}
