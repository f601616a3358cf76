package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/family-fund-api/internal/repository"
	"github.com/noah-isme/family-fund-api/internal/service"
	"github.com/noah-isme/family-fund-api/pkg/config"
	"github.com/noah-isme/family-fund-api/pkg/database"
	"github.com/noah-isme/family-fund-api/pkg/logger"
)

// seed-admin creates the first SUPERADMIN account in PostgreSQL. It is a no-op
// when the email is already registered.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	email := flag.String("email", cfg.Seed.AdminEmail, "superadmin email")
	password := flag.String("password", cfg.Seed.AdminPassword, "superadmin password")
	name := flag.String("name", cfg.Seed.AdminName, "superadmin full name")
	flag.Parse()

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if *password == "" {
		logr.Fatal("password is required, set SEED_ADMIN_PASSWORD or -password")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			logr.Fatal("migrate", zap.Error(err))
		}
	}

	users := service.NewUserService(repository.NewUserRepository(db), validator.New(), logr)
	user, created, err := users.EnsureSuperAdmin(ctx, *email, *password, *name)
	if err != nil {
		logr.Fatal("seed superadmin", zap.Error(err))
	}
	if !created {
		logr.Info("superadmin already exists", zap.String("email", user.Email))
		return
	}
	logr.Info("superadmin created", zap.String("id", user.ID), zap.String("email", user.Email))
}
