package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// New builds the service logger. debug mode switches to the console encoder.
func New(level, ginMode string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	cfg := zap.NewProductionConfig()
	if ginMode == "debug" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.InitialFields = map[string]interface{}{"service": "dispatchsvc"}

	return cfg.Build()
}

type gormWriter struct{ s *zap.SugaredLogger }

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.s.Warnf(format, args...)
}

// GormLogger routes slow queries and errors from gorm into zap
func GormLogger(l *zap.Logger) gormlogger.Interface {
	return gormlogger.New(gormWriter{s: l.Named("gorm").Sugar()}, gormlogger.Config{
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
