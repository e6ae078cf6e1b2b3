package config

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"studyhub/logger"
)

// gormLogger sends gorm output to the service logger, keeping gorm's levels:
// failed queries log as errors, slow queries as warnings and the SQL trace
// as debug.
type gormLogger struct {
	log   *logger.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newGormLogger(log *logger.Logger, level gormlogger.LogLevel, slow time.Duration) *gormLogger {
	return &gormLogger{log: log.With("component", "gorm"), level: level, slow: slow}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.log.SugaredLogger.Infof(msg, args...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.log.SugaredLogger.Warnf(msg, args...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.log.SugaredLogger.Errorf(msg, args...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.log.Error("query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.log.Warn("slow query", "sql", sql, "rows", rows, "elapsed", elapsed, "threshold", l.slow)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.log.Debug("query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
