package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"amber/internal/config"
	"amber/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOpenInMemory_MigratesSchema(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	for _, table := range []string{"users", "posts", "comments", "reviews"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasColumn(&models.Post{}, "post_type"))
	assert.True(t, db.Migrator().HasColumn(&models.Post{}, "vehicle_details"))
	assert.True(t, db.Migrator().HasColumn(&models.User{}, "password_hash"))

	u := models.User{Username: "kai", Email: "kai@example.com", Password: "x"}
	require.NoError(t, db.Create(&u).Error)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDialector(t *testing.T) {
	assert.Equal(t, "sqlite", Dialector(&config.Config{DBDriver: "sqlite", SQLitePath: ":memory:"}).Name())
	assert.Equal(t, "postgres", Dialector(&config.Config{DBDriver: "postgres", DBHost: "db"}).Name())
}

func TestCustomGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)), logger.Warn)
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Contains(t, buf.String(), "GORM query error")

	buf.Reset()
	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "GORM slow query")

	buf.Reset()
	silent := l.LogMode(logger.Silent)
	silent.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Empty(t, buf.String())
}
