package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// logger is satisfied by *slog.Logger.
type logger interface {
	InfoContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MigrateOption configures Migrate.
type MigrateOption func(*migrateOptions)

type migrateOptions struct {
	fsys fs.FS
}

// WithMigrationsFS reads migrations from fsys instead of the local disk,
// typically an embed.FS compiled into the binary. Config.MigrationsPath is
// then a path inside fsys.
func WithMigrationsFS(fsys fs.FS) MigrateOption {
	return func(o *migrateOptions) {
		o.fsys = fsys
	}
}

// Migrate applies pending goose migrations through the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log logger, opts ...MigrateOption) error {
	if cfg.MigrationsPath == "" {
		return errors.Join(ErrFailedToApplyMigrations, ErrMigrationPathNotProvided)
	}

	var o migrateOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := checkMigrationsDir(o.fsys, cfg.MigrationsPath); err != nil {
		return err
	}

	// goose works on database/sql; the wrapper shares the pool's connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "failed to close migration connection", "error", err)
		}
	}()

	goose.SetLogger(gooseLogger{log: log})
	goose.SetTableName(cfg.MigrationsTable)
	goose.SetBaseFS(o.fsys)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, cfg.MigrationsPath); err != nil {
		return errors.Join(ErrFailedToApplyMigrations, err)
	}

	return nil
}

func checkMigrationsDir(fsys fs.FS, path string) error {
	var err error
	if fsys != nil {
		_, err = fs.Stat(fsys, path)
	} else {
		_, err = os.Stat(path)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return errors.Join(ErrMigrationsDirNotFound, err)
	default:
		return errors.Join(ErrFailedToApplyMigrations, err)
	}
}

// gooseLogger routes goose output to the application logger.
type gooseLogger struct {
	log logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.ErrorContext(context.Background(), fmt.Sprintf(format, v...))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.InfoContext(context.Background(), fmt.Sprintf(format, v...))
}
