// Package pg manages the PostgreSQL connection pool backing the audit store:
// environment-driven configuration, connection with retry, goose schema
// migrations, and a health check suitable for readiness probes.
//
//	var cfg pg.Config
//	_ = config.Load(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil { ... }
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil { ... }
package pg
