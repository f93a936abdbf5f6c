package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
)

// maxPreImageFilterKeys bounds pre-image capture to cheap primary-key style
// lookups. A broader filter would mean an unbounded scan on the hot path.
const maxPreImageFilterKeys = 3

// PreImageSource fetches a record's state before a mutation touches it.
type PreImageSource interface {
	FetchOne(ctx context.Context, entity string, where map[string]any) (map[string]any, error)
}

// Next is the continuation performing the real write.
type Next func(ctx context.Context) (map[string]any, error)

// Extractor pulls a request-scoped value out of a context.
type Extractor func(ctx context.Context) (string, bool)

// Interceptor wraps every mutating data-layer call. It is transparent: the
// continuation's result and error pass through unchanged, and no audit-side
// failure ever surfaces to the caller.
type Interceptor struct {
	pipeline  *Pipeline
	preImages PreImageSource
	excluded  map[string]struct{}
	logger    *slog.Logger

	actorID   Extractor
	requestID Extractor
	ip        Extractor
	userAgent Extractor
}

// InterceptorOption configures an Interceptor.
type InterceptorOption func(*Interceptor)

// WithPreImageSource enables before-image capture for update and delete
// mutations with a small equality filter.
func WithPreImageSource(src PreImageSource) InterceptorOption {
	return func(i *Interceptor) {
		i.preImages = src
	}
}

// WithExcludedEntities adds entities whose mutations are never audited. The
// audit log table itself is always excluded to avoid recursion.
func WithExcludedEntities(entities ...string) InterceptorOption {
	return func(i *Interceptor) {
		for _, e := range entities {
			i.excluded[e] = struct{}{}
		}
	}
}

func WithActorIDExtractor(fn Extractor) InterceptorOption {
	return func(i *Interceptor) { i.actorID = fn }
}

func WithRequestIDExtractor(fn Extractor) InterceptorOption {
	return func(i *Interceptor) { i.requestID = fn }
}

func WithIPExtractor(fn Extractor) InterceptorOption {
	return func(i *Interceptor) { i.ip = fn }
}

func WithUserAgentExtractor(fn Extractor) InterceptorOption {
	return func(i *Interceptor) { i.userAgent = fn }
}

// NewInterceptor creates an interceptor feeding the given pipeline.
func NewInterceptor(p *Pipeline, opts ...InterceptorOption) *Interceptor {
	if p == nil {
		panic("audit: pipeline cannot be nil")
	}

	i := &Interceptor{
		pipeline: p,
		excluded: map[string]struct{}{"audit_logs": {}},
		logger:   p.logger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Do wraps a mutating call. Non-mutating actions and excluded entities pass
// straight through; everything else is audited after the write completes.
// Auditing a successful write can degrade or be lost, but can never turn the
// write into a failure.
func (i *Interceptor) Do(ctx context.Context, m Mutation, next Next) (map[string]any, error) {
	if !m.Action.Mutating() {
		return next(ctx)
	}
	if _, skip := i.excluded[m.Entity]; skip {
		return next(ctx)
	}

	before := i.fetchPreImage(ctx, m)

	result, err := next(ctx)
	if err != nil {
		// The write failed; there is no state change to record.
		return result, err
	}

	job := Job{
		Mutation: m,
		Before:   before,
		After:    result,
		Request:  i.requestContext(ctx),
	}

	if i.pipeline.Enqueue(job) {
		return result, nil
	}

	// Saturated queue: best-effort inline persist so the entry is not lost.
	i.pipeline.metrics.incFallback()
	if perr := i.pipeline.persist(ctx, job); perr != nil {
		i.logger.ErrorContext(ctx, "synchronous audit fallback failed",
			slog.String("entity", m.Entity),
			slog.String("action", string(m.Action)),
			slog.Any("error", perr),
		)
	}
	return result, nil
}

// fetchPreImage captures the record state ahead of updates and deletes, but
// only when the filter is a small conjunction of scalar equalities. Fetch
// failures degrade the entry to before=null.
func (i *Interceptor) fetchPreImage(ctx context.Context, m Mutation) map[string]any {
	if i.preImages == nil {
		return nil
	}
	if m.Action != ActionUpdate && m.Action != ActionDelete {
		return nil
	}
	if !preImageEligible(m.Args.Where) {
		return nil
	}

	img, err := i.preImages.FetchOne(ctx, m.Entity, m.Args.Where)
	if err != nil {
		i.logger.WarnContext(ctx, "pre-image fetch failed",
			slog.String("entity", m.Entity),
			slog.Any("error", err),
		)
		return nil
	}
	return img
}

func (i *Interceptor) requestContext(ctx context.Context) RequestContext {
	var rc RequestContext
	if i.actorID != nil {
		if v, ok := i.actorID(ctx); ok {
			rc.ActorID = v
		}
	}
	if i.requestID != nil {
		if v, ok := i.requestID(ctx); ok {
			rc.RequestID = v
		}
	}
	if i.ip != nil {
		if v, ok := i.ip(ctx); ok {
			rc.IP = v
		}
	}
	if i.userAgent != nil {
		if v, ok := i.userAgent(ctx); ok {
			rc.UserAgent = v
		}
	}
	return rc
}

// preImageEligible reports whether the filter is a ≤3-key conjunction of
// scalar equality predicates. Anything broader could scan.
func preImageEligible(where map[string]any) bool {
	if len(where) == 0 || len(where) > maxPreImageFilterKeys {
		return false
	}
	for _, v := range where {
		if !isScalar(v) {
			return false
		}
	}
	return true
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	}
	return false
}

// idString coerces a record id field for storage.
func idString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return ""
	case fmt.Stringer:
		return val.String()
	default:
		return ""
	}
}
