package audit

import "time"

// Floors protect the pipeline from misconfiguration: a queue too small to
// absorb a burst or a TTL too short to be useful degrade silently, so
// out-of-range values clamp instead of erroring.
const (
	MinQueueSize = 200
	MinCacheTTL  = 30 * time.Second
)

// Config holds the pipeline's tunables. All fields are optional; zero values
// take the documented defaults.
type Config struct {
	// QueueSize bounds the in-memory backlog; enqueues beyond it are
	// rejected, triggering the interceptor's synchronous fallback.
	QueueSize int `env:"AUDIT_QUEUE_SIZE" envDefault:"2000"`

	// MaxRetries bounds re-enqueues of a job whose persistence fails. A job
	// is attempted MaxRetries+1 times in total. Negative disables retries.
	MaxRetries int `env:"AUDIT_MAX_RETRIES" envDefault:"2"`

	// CacheTTL bounds how long resolved event ids are served from cache.
	CacheTTL time.Duration `env:"AUDIT_CACHE_TTL" envDefault:"2m"`

	// ShutdownTimeout bounds how long Close waits for the queue to drain
	// before releasing storage regardless.
	ShutdownTimeout time.Duration `env:"AUDIT_SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// normalized returns a copy with defaults applied to zero values and floors
// applied to out-of-range ones.
func (c Config) normalized() Config {
	if c.QueueSize == 0 {
		c.QueueSize = 2000
	}
	if c.QueueSize < MinQueueSize {
		c.QueueSize = MinQueueSize
	}
	switch {
	case c.MaxRetries < 0:
		// Negative disables retries entirely.
		c.MaxRetries = 0
	case c.MaxRetries == 0:
		c.MaxRetries = 2
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 2 * time.Minute
	}
	if c.CacheTTL < MinCacheTTL {
		c.CacheTTL = MinCacheTTL
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}
