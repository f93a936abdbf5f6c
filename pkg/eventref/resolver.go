package eventref

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventregistry/audittrail/pkg/cache"
)

// ErrNotFound signals that a relation chase found no owning record. Sources
// return it to distinguish a clean miss from a backend failure; the resolver
// treats both as "no event id" but only logs the latter.
var ErrNotFound = errors.New("eventref: related record not found")

const (
	// DefaultTTL bounds how long a resolved event id is trusted. Relations
	// from application to event never change in practice, so the TTL exists
	// to bound staleness after data repairs, not for correctness.
	DefaultTTL = 2 * time.Minute

	// MinTTL is the floor applied to configured TTLs.
	MinTTL = 30 * time.Second

	// DefaultCacheCap and DefaultCacheLowWater bound each cache's size.
	DefaultCacheCap      = 20_000
	DefaultCacheLowWater = 10_000
)

// Keys checked on mutation payloads, in resolution priority order.
const (
	eventIDKey             = "event_id"
	applicationIDKey       = "application_id"
	submissionVersionIDKey = "submission_version_id"
)

// RelationSource chases foreign-key relations in the underlying store.
type RelationSource interface {
	// ApplicationEventID returns the event owning the given application.
	ApplicationEventID(ctx context.Context, applicationID string) (string, error)

	// SubmissionVersionApplicationID returns the application owning the
	// given submission version.
	SubmissionVersionApplicationID(ctx context.Context, submissionVersionID string) (string, error)
}

// Resolver determines the owning event id for a mutation.
type Resolver struct {
	source       RelationSource
	byApp        *cache.TTL[string, string]
	bySubmission *cache.TTL[string, string]
	logger       *slog.Logger
}

// Option configures a Resolver.
type Option func(*resolverConfig)

type resolverConfig struct {
	ttl      time.Duration
	capacity int
	lowWater int
	logger   *slog.Logger
}

// WithTTL overrides the cache TTL. Values below MinTTL are clamped to MinTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *resolverConfig) {
		if ttl < MinTTL {
			ttl = MinTTL
		}
		c.ttl = ttl
	}
}

// WithCacheBounds overrides the per-cache capacity and low-water mark.
func WithCacheBounds(capacity, lowWater int) Option {
	return func(c *resolverConfig) {
		c.capacity = capacity
		c.lowWater = lowWater
	}
}

// WithLogger sets the logger used for lookup failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *resolverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Resolver backed by the given relation source.
func New(source RelationSource, opts ...Option) *Resolver {
	if source == nil {
		panic("eventref: relation source cannot be nil")
	}

	cfg := resolverConfig{
		ttl:      DefaultTTL,
		capacity: DefaultCacheCap,
		lowWater: DefaultCacheLowWater,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Resolver{
		source:       source,
		byApp:        cache.NewTTL[string, string](cfg.ttl, cfg.capacity, cfg.lowWater),
		bySubmission: cache.NewTTL[string, string](cfg.ttl, cfg.capacity, cfg.lowWater),
		logger:       cfg.logger,
	}
}

// Resolve returns the event id a mutation should be attributed to. The four
// candidate maps are checked in priority order: the operation's data, its
// filter, the after-snapshot, then the before-snapshot. Each resolution step
// is an independent source of truth; the first key that matches decides.
func (r *Resolver) Resolve(ctx context.Context, data, where, after, before map[string]any) (string, bool) {
	candidates := []map[string]any{data, where, after, before}

	if id := firstID(eventIDKey, candidates); id != "" {
		return id, true
	}

	if appID := firstID(applicationIDKey, candidates); appID != "" {
		return r.resolveByApplication(ctx, appID)
	}

	if svID := firstID(submissionVersionIDKey, candidates); svID != "" {
		return r.resolveBySubmissionVersion(ctx, svID)
	}

	return "", false
}

func (r *Resolver) resolveByApplication(ctx context.Context, appID string) (string, bool) {
	if eventID, ok := r.byApp.Get(appID); ok {
		return eventID, true
	}

	eventID, err := r.source.ApplicationEventID(ctx, appID)
	if err != nil {
		r.logLookupFailure(ctx, "application", appID, err)
		return "", false
	}
	if eventID == "" {
		return "", false
	}

	r.byApp.Put(appID, eventID)
	return eventID, true
}

// resolveBySubmissionVersion chases two hops and primes both caches, so the
// discovered application id is answered from cache on the next mutation.
func (r *Resolver) resolveBySubmissionVersion(ctx context.Context, svID string) (string, bool) {
	if eventID, ok := r.bySubmission.Get(svID); ok {
		return eventID, true
	}

	appID, err := r.source.SubmissionVersionApplicationID(ctx, svID)
	if err != nil {
		r.logLookupFailure(ctx, "submission_version", svID, err)
		return "", false
	}
	if appID == "" {
		return "", false
	}

	eventID, ok := r.resolveByApplication(ctx, appID)
	if !ok {
		return "", false
	}

	r.bySubmission.Put(svID, eventID)
	return eventID, true
}

func (r *Resolver) logLookupFailure(ctx context.Context, relation, id string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	r.logger.WarnContext(ctx, "event id lookup failed",
		slog.String("relation", relation),
		slog.String("id", id),
		slog.Any("error", err),
	)
}

// firstID returns the first non-empty value of key across the candidate
// maps, coerced to a string id.
func firstID(key string, candidates []map[string]any) string {
	for _, m := range candidates {
		if m == nil {
			continue
		}
		if id := asID(m[key]); id != "" {
			return id
		}
	}
	return ""
}

// asID coerces the id representations that show up in mutation payloads:
// strings, decoded JSON numbers, and native integers.
func asID(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return ""
	case fmt.Stringer:
		return val.String()
	default:
		return ""
	}
}
