package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold is the elapsed time above which a successful query is
// logged at Warn instead of Debug.
const slowQueryThreshold = 200 * time.Millisecond

// sqlLogLimit caps how much SQL lands in a log line.
const sqlLogLimit = 200

// slogGormLogger adapts the default slog logger to GORM's logger.Interface.
type slogGormLogger struct{}

// LogMode is a no-op; filtering is delegated to the slog level.
func (l slogGormLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l slogGormLogger) Info(_ context.Context, msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...))
}

func (l slogGormLogger) Warn(_ context.Context, msg string, args ...any) {
	slog.Warn(fmt.Sprintf(msg, args...))
}

func (l slogGormLogger) Error(_ context.Context, msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
}

// Trace runs after every SQL operation. ErrRecordNotFound is the normal
// "no rows" outcome and is treated like a successful query; slow queries
// are raised to Warn.
func (l slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		slog.Error("sql failed",
			slog.String("sql", clipSQL(sql)),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.Any("error", err),
		)
	case elapsed >= slowQueryThreshold:
		sql, rows := fc()
		slog.Warn("slow sql",
			slog.String("sql", clipSQL(sql)),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	case slog.Default().Enabled(ctx, slog.LevelDebug):
		sql, rows := fc()
		slog.Debug("sql",
			slog.String("sql", clipSQL(sql)),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}

func clipSQL(sql string) string {
	if len(sql) <= sqlLogLimit {
		return sql
	}
	return sql[:sqlLogLimit-3] + "..."
}
