package db

import (
	"errors"
	"testing"

	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(config.Config{DBType: "oracle"})
	require.Error(t, err)
}

func TestDialectSupportsConfiguredTypes(t *testing.T) {
	for _, typ := range []string{"postgres", "mysql", "sqlite"} {
		dialect, err := Dialect(config.Config{DBType: typ, DBPath: "test.db"})
		require.NoError(t, err, typ)
		assert.NotNil(t, dialect, typ)
	}
}

func TestNewTestIsolatesDatabases(t *testing.T) {
	type widget struct {
		ID   int64 `gorm:"primaryKey"`
		Name string
	}

	first, err := NewTest()
	require.NoError(t, err)
	second, err := NewTest()
	require.NoError(t, err)

	require.NoError(t, first.AutoMigrate(&widget{}))
	require.NoError(t, first.Create(&widget{ID: 1, Name: "a"}).Error)

	assert.False(t, second.Migrator().HasTable(&widget{}))
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_users_email"`)))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))
}
