// Package testdb points the global database handle at a fresh in-memory
// sqlite database for the duration of a test.
package testdb

import (
	"testing"

	"github.com/taskmind-dev/taskmind/db"
	"github.com/taskmind-dev/taskmind/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Setup(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// A single connection keeps every query on the same :memory: database.
	sqlDB.SetMaxOpenConns(1)

	err = gdb.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.Task{},
		&models.Subscription{},
		&models.Invitation{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	db.DB = gdb

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return gdb
}
