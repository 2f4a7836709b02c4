// Package bootstrap wires the process-level dependencies shared by the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"amber/internal/cache"
	"amber/internal/config"
	"amber/internal/database"
	"amber/internal/middleware"
	"amber/internal/models"
	"amber/internal/repository"
	"amber/internal/seed"
	"amber/internal/service"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoData fills an empty development database with fake data.
	SeedDemoData bool
	Seed         seed.Options
}

// InitRuntime connects to the database and Redis, ensures the bootstrap admin and optionally
// seeds demo data. The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// May be nil if unreachable.
	rdb := cache.Connect(cfg.RedisURL)

	users := repository.NewUserRepository(db, cache.NewStore(rdb))
	if err := EnsureBootstrapAdmin(context.Background(), cfg, users, NewAdminService(cfg, db, rdb)); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	if opts.SeedDemoData {
		if err := seedIfEmpty(cfg, db, users, opts.Seed); err != nil {
			return nil, nil, err
		}
	}

	return db, rdb, nil
}

// NewAdminService wires the admin use cases outside the HTTP server.
func NewAdminService(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *service.AdminService {
	store := cache.NewStore(rdb)
	return service.NewAdminService(
		repository.NewUserRepository(db, store),
		repository.NewPostRepository(db, store),
		repository.NewCommentRepository(db),
		repository.NewAnalyticsRepository(db),
		service.NewImageService(cfg),
		bcrypt.DefaultCost,
	)
}

// EnsureBootstrapAdmin makes BOOTSTRAP_ADMIN_EMAIL an admin, creating the account with
// BOOTSTRAP_ADMIN_PASSWORD when it does not exist. Existing credentials are never touched.
func EnsureBootstrapAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository, admins *service.AdminService) error {
	if cfg == nil {
		return nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if email == "" {
		return nil
	}

	existing, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsAdmin {
			return nil
		}
		if _, err := admins.SetAdmin(ctx, existing.ID, true); err != nil {
			return err
		}
		middleware.Logger.Info("bootstrap admin promoted", slog.Uint64("user_id", uint64(existing.ID)))
		return nil
	case models.AsAppError(err).Code != models.CodeNotFound:
		return err
	}

	if cfg.BootstrapAdminPassword == "" {
		return errors.New("BOOTSTRAP_ADMIN_PASSWORD must be set when BOOTSTRAP_ADMIN_EMAIL names a new account")
	}
	created, err := admins.CreateUser(ctx, service.NewAccountInput{
		Email:    email,
		Password: cfg.BootstrapAdminPassword,
		IsAdmin:  true,
	})
	if err != nil {
		return err
	}
	middleware.Logger.Info("bootstrap admin created",
		slog.Uint64("user_id", uint64(created.ID)),
		slog.String("username", created.Username),
	)
	return nil
}

func seedIfEmpty(cfg *config.Config, db *gorm.DB, users repository.UserRepository, opts seed.Options) error {
	if cfg.IsProduction() {
		return errors.New("refusing to seed demo data in production")
	}
	count, err := users.Count(context.Background())
	if err != nil {
		return err
	}
	// The bootstrap admin alone does not count as data.
	if count > 1 {
		middleware.Logger.Info("database already populated, skipping demo seed", slog.Int64("users", count))
		return nil
	}
	opts.ShouldClean = false
	if _, err := seed.Seed(db, opts); err != nil {
		return fmt.Errorf("failed to seed demo data: %w", err)
	}
	return nil
}
