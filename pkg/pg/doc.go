// Package pg connects to PostgreSQL with pgx/v5 and applies goose
// migrations.
//
// Connect opens a *pgxpool.Pool from Config, retrying while the database
// comes up. Migrate brings the schema up to date, reading the SQL files
// either from disk or from an embedded filesystem:
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log, pg.WithMigrationsFS(db.Migrations)); err != nil {
//		return err
//	}
//
// Healthcheck returns a func(context.Context) error suitable for readiness
// probes.
//
// The Is*Error helpers classify pgx errors so stores can turn them into
// their own sentinels: IsNotFoundError for pgx.ErrNoRows, IsDuplicateKeyError
// for unique violations and IsCheckViolationError for CHECK constraints.
package pg
