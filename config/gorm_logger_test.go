package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"studyhub/logger"
)

func observed(level zapcore.Level) (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func trace(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 1 }
}

func TestGormLoggerKeepsLevelsAtProductionVerbosity(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)
	gl := newGormLogger(log, gormlogger.Warn, 100*time.Millisecond)
	ctx := context.Background()

	gl.Trace(ctx, time.Now(), trace("SELECT 1"), nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), trace("SELECT slow"), nil)
	gl.Trace(ctx, time.Now(), trace("INSERT bad"), errors.New("constraint failed"))
	gl.Trace(ctx, time.Now(), trace("SELECT missing"), gorm.ErrRecordNotFound)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "slow query", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "query failed", entries[1].Message)
}

func TestGormLoggerTracesSQLAtDebug(t *testing.T) {
	log, logs := observed(zapcore.DebugLevel)
	gl := newGormLogger(log, gormlogger.Info, 0)

	gl.Trace(context.Background(), time.Now(), trace("SELECT 1"), nil)
	gl.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), trace("SELECT 2"), nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "SELECT 1", entries[0].ContextMap()["sql"])
}
