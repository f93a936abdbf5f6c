package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventregistry/audittrail/pkg/eventref"
	"github.com/eventregistry/audittrail/pkg/redact"
)

// Storage persists durable audit entries.
type Storage interface {
	Insert(ctx context.Context, entry Entry) error
}

// EventResolver attributes a mutation to its owning event. Implemented by
// eventref.Resolver; optional, entries without an event id are valid.
type EventResolver interface {
	Resolve(ctx context.Context, data, where, after, before map[string]any) (string, bool)
}

// Pipeline owns the audit queue, its drain worker, and the processing of
// each job into a durable entry.
type Pipeline struct {
	storage     Storage
	resolver    EventResolver
	relationSrc eventref.RelationSource
	queue       *queue
	cfg         Config
	logger      *slog.Logger
	metrics     *metrics
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithConfig applies pipeline tunables. Zero fields take defaults,
// out-of-range ones are clamped.
func WithConfig(cfg Config) PipelineOption {
	return func(p *Pipeline) {
		p.cfg = cfg
	}
}

// WithResolver sets the event-context resolver.
func WithResolver(r EventResolver) PipelineOption {
	return func(p *Pipeline) {
		p.resolver = r
	}
}

// WithRelationSource builds the event-context resolver from a relation
// source, with the resolver caches using the pipeline's CacheTTL. Prefer
// this over WithResolver unless the resolver needs non-default wiring.
func WithRelationSource(src eventref.RelationSource) PipelineOption {
	return func(p *Pipeline) {
		p.relationSrc = src
	}
}

// WithLogger sets the logger for degradation events.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics registers throughput and degradation counters on reg.
func WithMetrics(reg prometheus.Registerer) PipelineOption {
	return func(p *Pipeline) {
		if reg != nil {
			p.metrics = newMetrics(reg)
		}
	}
}

// New creates a started Pipeline persisting to storage.
func New(storage Storage, opts ...PipelineOption) *Pipeline {
	if storage == nil {
		panic(ErrStorageNil)
	}

	p := &Pipeline{
		storage: storage,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cfg = p.cfg.normalized()
	if p.resolver == nil && p.relationSrc != nil {
		p.resolver = eventref.New(p.relationSrc,
			eventref.WithTTL(p.cfg.CacheTTL),
			eventref.WithLogger(p.logger),
		)
	}
	p.queue = newQueue(p.cfg.QueueSize, p.cfg.MaxRetries, p.persist, p.logger, p.metrics)
	return p
}

// Config returns the normalized configuration the pipeline runs with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Enqueue hands a job to the drain worker, reporting false when the queue is
// saturated. Callers then persist inline (see Interceptor).
func (p *Pipeline) Enqueue(job Job) bool {
	return p.queue.Enqueue(job)
}

// Pending returns the number of jobs awaiting final disposition.
func (p *Pipeline) Pending() int64 {
	return p.queue.Pending()
}

// persist turns a job into a durable entry. It is the queue's process
// function and the synchronous fallback path.
func (p *Pipeline) persist(ctx context.Context, job Job) error {
	return p.storage.Insert(ctx, p.buildEntry(ctx, job))
}

// buildEntry redacts the snapshots, computes the update diff, and resolves
// the owning event. Everything here degrades rather than fails: a missing
// pre-image, an unresolvable event id or an unserializable subtree all yield
// a thinner entry, never an error.
func (p *Pipeline) buildEntry(ctx context.Context, job Job) Entry {
	beforeSafe, beforeRedacted := redact.Apply(job.Before)
	afterSafe, afterRedacted := redact.Apply(job.After)

	entry := Entry{
		ID:               uuid.New().String(),
		Action:           job.Mutation.Action,
		EntityType:       job.Mutation.Entity,
		EntityID:         entityID(job),
		ActorUserID:      job.Request.ActorID,
		RequestID:        job.Request.RequestID,
		IP:               job.Request.IP,
		UserAgent:        job.Request.UserAgent,
		Before:           beforeSafe,
		After:            afterSafe,
		RedactionApplied: beforeRedacted || afterRedacted,
		CreatedAt:        time.Now().UTC(),
	}

	// Updates with both snapshots store a diff instead of two full copies.
	// The diff runs over the redacted forms so a changed secret shows up as
	// marker-to-marker, never as plaintext.
	if job.Mutation.Action == ActionUpdate && job.Before != nil && job.After != nil {
		beforeMap, okB := beforeSafe.(map[string]any)
		afterMap, okA := afterSafe.(map[string]any)
		if okB && okA {
			entry.Before = nil
			entry.After = redact.DiffEnvelope(redact.Diff(beforeMap, afterMap))
		}
	}

	if p.resolver != nil {
		if eventID, ok := p.resolver.Resolve(ctx, job.Mutation.Args.Data, job.Mutation.Args.Where, job.After, job.Before); ok {
			entry.EventID = eventID
		}
	}

	return entry
}

// Close drains the queue within the configured shutdown timeout (unless ctx
// imposes a shorter one) and then releases the underlying storage if it is
// closable. Shutdown never hangs on a stuck backend: after the timeout the
// remaining backlog is abandoned.
func (p *Pipeline) Close(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
	defer cancel()

	err := p.queue.Close(drainCtx)
	if err != nil {
		p.logger.Error("audit queue not fully drained on shutdown",
			slog.Int64("pending", p.queue.Pending()),
			slog.Any("error", err),
		)
	}

	if closer, ok := p.storage.(interface{ Close() error }); ok {
		if cerr := closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// entityID extracts the mutated record's id from the after-snapshot, the
// filter, or the before-snapshot, in that order.
func entityID(job Job) string {
	for _, m := range []map[string]any{job.After, job.Mutation.Args.Where, job.Before} {
		if m == nil {
			continue
		}
		if id := idString(m["id"]); id != "" {
			return id
		}
	}
	return UnknownEntityID
}
