// Package config loads environment-backed configuration structs. A .env file
// is read once per process if present; after that, env-tagged struct fields
// are parsed with caarlos0/env.
//
//	type Settings struct {
//	    QueueSize int `env:"AUDIT_QUEUE_SIZE" envDefault:"2000"`
//	}
//
//	var s Settings
//	if err := config.Load(&s); err != nil { ... }
package config
