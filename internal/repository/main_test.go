package repository

import (
	"context"
	"fmt"
	"testing"

	"amber/internal/database"
	"amber/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: fmt.Sprintf("%s@example.com", name), Password: "hash"}
	require.NoError(t, NewUserRepository(db, nil).Create(context.Background(), u))
	return u
}

func seedPost(t *testing.T, db *gorm.DB, owner *models.User, kind models.PostKind, description, location string) *models.Post {
	t.Helper()
	p := &models.Post{
		Kind:        kind,
		Description: description,
		Location:    location,
		ContactInfo: "555-0100",
		UserID:      owner.ID,
	}
	require.NoError(t, NewPostRepository(db, nil).Create(context.Background(), p))
	return p
}

func strPtr(s string) *string { return &s }
