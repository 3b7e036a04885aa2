package db

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"perfhub/internal/domain/auth"
	"perfhub/internal/platform/config"
)

// AccountWriter stores directory accounts; both the memory and Postgres
// directories satisfy it.
type AccountWriter interface {
	FindByEmail(ctx context.Context, email string) (auth.Account, error)
	Upsert(ctx context.Context, account auth.Account) error
}

// Seed loads USERS_FILE accounts and ensures the configured admin exists.
func Seed(ctx context.Context, dir AccountWriter, cfg config.Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UsersFile != "" {
		accounts, err := auth.LoadAccountsFile(cfg.UsersFile)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			if err := dir.Upsert(ctx, account); err != nil {
				return err
			}
		}
		logger.Info("users loaded", zap.String("file", cfg.UsersFile), zap.Int("count", len(accounts)))
	}
	return ensureAdmin(ctx, dir, cfg, logger)
}

func ensureAdmin(ctx context.Context, dir AccountWriter, cfg config.Config, logger *zap.Logger) error {
	email := strings.TrimSpace(cfg.SeedAdminEmail)
	if email == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return nil
	}
	if _, err := dir.FindByEmail(ctx, email); err == nil {
		return nil
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	account := auth.Account{
		User: auth.User{
			ID:    uuid.NewString(),
			Name:  cfg.SeedAdminName,
			Email: email,
			Role:  auth.RoleAdmin,
		},
		PasswordHash: hash,
	}
	if err := dir.Upsert(ctx, account); err != nil {
		return err
	}
	logger.Info("admin account seeded", zap.String("email", email))
	return nil
}
