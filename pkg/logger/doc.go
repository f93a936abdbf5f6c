// Package logger builds the process's slog.Logger from environment
// configuration: JSON output for production aggregation, text for local
// development.
//
//	var cfg logger.Config
//	_ = config.Load(&cfg)
//	log := logger.New(cfg)
//	slog.SetDefault(log)
package logger
