package bootstrap

import (
	"context"
	"testing"

	"amber/internal/config"
	"amber/internal/database"
	"amber/internal/models"
	"amber/internal/repository"
	"amber/internal/seed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newBootstrapEnv(t *testing.T) (*config.Config, *gorm.DB, repository.UserRepository) {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	cfg := &config.Config{
		Env:             "development",
		UploadFolder:    t.TempDir(),
		MaxUploadSizeMB: 1,
	}
	return cfg, db, repository.NewUserRepository(db, nil)
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	cfg, db, users := newBootstrapEnv(t)
	admins := NewAdminService(cfg, db, nil)

	require.NoError(t, EnsureBootstrapAdmin(ctx, cfg, users, admins), "no email configured is a no-op")
	count, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	cfg.BootstrapAdminEmail = " Root@Amber.Local "
	assert.Error(t, EnsureBootstrapAdmin(ctx, cfg, users, admins), "a new account needs a password")

	cfg.BootstrapAdminPassword = "bootstrap-pass-1"
	require.NoError(t, EnsureBootstrapAdmin(ctx, cfg, users, admins))
	root, err := users.GetByEmail(ctx, "root@amber.local")
	require.NoError(t, err)
	assert.True(t, root.IsAdmin)
	assert.Equal(t, "root", root.Username)

	require.NoError(t, EnsureBootstrapAdmin(ctx, cfg, users, admins), "idempotent")
	count, err = users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEnsureBootstrapAdminPromotesExistingAccount(t *testing.T) {
	ctx := context.Background()
	cfg, db, users := newBootstrapEnv(t)
	existing := &models.User{Username: "owner", Email: "owner@amber.local", Password: "keep-this-hash"}
	require.NoError(t, users.Create(ctx, existing))

	cfg.BootstrapAdminEmail = "owner@amber.local"
	require.NoError(t, EnsureBootstrapAdmin(ctx, cfg, users, NewAdminService(cfg, db, nil)))

	got, err := users.GetByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, "keep-this-hash", got.Password, "credentials are left alone")
}

func TestSeedIfEmpty(t *testing.T) {
	cfg, db, users := newBootstrapEnv(t)
	opts := seed.Options{NumUsers: 2, NumPosts: 3, FastHash: true}

	require.NoError(t, seedIfEmpty(cfg, db, users, opts))
	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(3), posts)

	require.NoError(t, seedIfEmpty(cfg, db, users, opts), "populated databases are skipped")
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(3), posts)

	cfg.Env = "production"
	assert.Error(t, seedIfEmpty(cfg, db, users, opts))
}
