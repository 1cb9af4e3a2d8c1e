package auth

import (
	"testing"

	"waba-onboarding/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Credential{}))
	return db
}

func TestStore_SetGetClear(t *testing.T) {
	db := newTestDB(t)
	s := NewStore(db)

	assert.Empty(t, s.Token())

	require.NoError(t, s.SetToken("tok-1"))
	assert.Equal(t, "tok-1", s.Token())

	require.NoError(t, s.SetToken("tok-2"))
	assert.Equal(t, "tok-2", s.Token())

	require.NoError(t, s.ClearToken())
	assert.Empty(t, s.Token())
}

func TestStore_TokenSurvivesReload(t *testing.T) {
	db := newTestDB(t)

	s := NewStore(db)
	require.NoError(t, s.SetToken("persisted"))

	reloaded := NewStore(db)
	assert.Equal(t, "persisted", reloaded.Token())
}
