package database

import (
	"testing"

	"amber/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPersistentModels_OrderedByDependency(t *testing.T) {
	got := PersistentModels()
	if assert.Len(t, got, 4) {
		assert.IsType(t, &models.User{}, got[0])
		assert.IsType(t, &models.Post{}, got[1])
		assert.IsType(t, &models.Comment{}, got[2])
		assert.IsType(t, &models.Review{}, got[3])
	}
}
