package pg

import "time"

// Config holds connection pool settings for the audit database. The audit
// pipeline shares the platform's database but runs on its own small pool so
// a drain burst cannot starve request-path connections.
type Config struct {
	ConnectionString string        `env:"AUDIT_DB_URL,required"`
	MaxOpenConns     int32         `env:"AUDIT_DB_MAX_OPEN_CONNS" envDefault:"5"`
	MinIdleConns     int32         `env:"AUDIT_DB_MIN_IDLE_CONNS" envDefault:"1"`
	MaxConnIdleTime  time.Duration `env:"AUDIT_DB_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime  time.Duration `env:"AUDIT_DB_MAX_CONN_LIFETIME" envDefault:"30m"`

	ConnectAttempts int           `env:"AUDIT_DB_CONNECT_ATTEMPTS" envDefault:"3"`
	ConnectBackoff  time.Duration `env:"AUDIT_DB_CONNECT_BACKOFF" envDefault:"2s"`

	MigrationsPath  string `env:"AUDIT_DB_MIGRATIONS_PATH" envDefault:"migrations"`
	MigrationsTable string `env:"AUDIT_DB_MIGRATIONS_TABLE" envDefault:"audit_schema_migrations"`
}
