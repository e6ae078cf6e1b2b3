// Package testutil provides an isolated SQLite database and fixtures for
// package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"studyhub/logger"
	"studyhub/models"
	"studyhub/seeds"
)

var dbSeq atomic.Int64

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// DB opens a fresh in-memory database, migrated and seeded with reference
// data. It is closed when the test ends.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:studyhub_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("test db handle: %v", err)
	}
	// A single connection keeps the shared in-memory database alive and
	// serializes writers.
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	if err := seeds.EnsureReferenceData(db); err != nil {
		tb.Fatalf("seed test db: %v", err)
	}
	return db
}
