package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mehmetcc/todox/migrations"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Migrate applies the embedded migrations and logs the resulting schema
// version. goose output is routed through logger.
func Migrate(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	goose.SetLogger(gooseZapLogger{s: logger.Sugar()})
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("database migrated", zap.Int64("version", version))
	return nil
}

// gooseZapLogger keeps goose from calling os.Exit through Fatalf.
type gooseZapLogger struct{ s *zap.SugaredLogger }

func (l gooseZapLogger) Printf(format string, v ...interface{}) {
	l.s.Infof(format, v...)
}

func (l gooseZapLogger) Fatalf(format string, v ...interface{}) {
	l.s.Errorf(format, v...)
}
