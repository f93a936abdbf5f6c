package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer indicates Load was called with a nil destination.
	ErrNilPointer = errors.New("config: destination cannot be nil")

	// ErrParse wraps env parsing failures.
	ErrParse = errors.New("config: failed to parse environment")
)

var loadDotEnv sync.Once

// Load parses environment variables into the env-tagged struct v. The
// default .env file is loaded on first call; its absence is not an error.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	loadDotEnv.Do(func() {
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParse, err)
	}
	return nil
}
