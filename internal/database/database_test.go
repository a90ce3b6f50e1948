package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/periodical/internal/config"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMigrate_SQLite(t *testing.T) {
	dialector, err := Dialector(&config.DatabaseConfig{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)

	db, err := gorm.Open(dialector, GormConfig(logger.Silent))
	require.NoError(t, err)
	SetDB(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, Migrate())
	// Second run must skip existing indexes
	require.NoError(t, MigrateDatabase(db))

	assert.True(t, db.Migrator().HasIndex("topics", "idx_topics_gist_order"))
	assert.True(t, db.Migrator().HasIndex("users", "idx_users_org_role_status"))
	assert.True(t, db.Migrator().HasTable("invitations"))
}

func TestDialector_UnknownDriver(t *testing.T) {
	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, parseLogLevel("silent"))
	assert.Equal(t, logger.Info, parseLogLevel("info"))
	assert.Equal(t, logger.Warn, parseLogLevel(""))
}
