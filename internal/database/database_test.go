package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type probe struct {
	ID   int64  `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex"`
}

func TestConnect_SQLiteInMemory(t *testing.T) {
	dsn := fmt.Sprintf("file:database_test_%s?mode=memory&cache=shared", t.Name())
	db, err := ConnectWithConfig(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, Migrate(db, &probe{}))

	require.NoError(t, db.Create(&probe{Code: "A"}).Error)
	err = db.Create(&probe{Code: "A"}).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503", Message: "fk"}))
}

func TestWithSQLitePragmas(t *testing.T) {
	assert.Equal(t, "a.db?"+sqlitePragmas, withSQLitePragmas("a.db"))
	assert.Equal(t, "file:x?mode=memory&"+sqlitePragmas, withSQLitePragmas("file:x?mode=memory"))
	assert.Equal(t, "a.db?_pragma=journal_mode(WAL)", withSQLitePragmas("a.db?_pragma=journal_mode(WAL)"))
}

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@h/db"))
	assert.True(t, IsPostgres("postgresql://h/db"))
	assert.False(t, IsPostgres("tourbooking.db"))
}
