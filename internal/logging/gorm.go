package logging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger routes GORM output through slog. Only failed and slow
// statements are logged above debug.
type GormLogger struct {
	LogLevel logger.LogLevel
}

func NewGormLogger(level logger.LogLevel) *GormLogger {
	return &GormLogger{LogLevel: level}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &GormLogger{LogLevel: level}
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Info {
		slog.InfoContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Warn {
		slog.WarnContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Error {
		slog.ErrorContext(ctx, msg, "data", data)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []any{
		slog.String("sql", sql),
		slog.Duration("latency", elapsed),
		slog.Int64("rows", rows),
	}

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound) && l.LogLevel >= logger.Error:
		// Unique violations are an expected outcome of engagement dedup.
		if isExpectedConflict(err) {
			slog.DebugContext(ctx, "query conflict", fields...)
			return
		}
		slog.ErrorContext(ctx, "query failed", append(fields, slog.Any("error", err))...)
	case elapsed > slowQueryThreshold && l.LogLevel >= logger.Warn:
		slog.WarnContext(ctx, "slow query", fields...)
	case l.LogLevel >= logger.Info:
		slog.DebugContext(ctx, "query", fields...)
	}
}

func isExpectedConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
