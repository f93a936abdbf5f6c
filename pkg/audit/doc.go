// Package audit implements the mutation audit pipeline for the event
// registration platform: every create, update, delete and upsert against the
// data layer produces a durable, tamper-evident audit entry without ever
// slowing down or failing the write that triggered it.
//
// # Architecture
//
// The pipeline sits between the data-access layer and storage:
//
//		mutation ──► Interceptor ──► business write
//		                │
//		                ▼ build Job
//		             Pipeline ──► bounded queue ──► drain worker
//		                │ (queue full)                  │
//		                ▼                               ▼
//		          sync fallback          redact → resolve event → diff → insert
//
//	  - Interceptor – wraps every mutating call, captures an optional
//	    pre-image, builds an immutable Job after the write completes
//
//	  - Pipeline – owns the bounded queue, a single drain worker goroutine,
//	    and the redact/resolve/diff/persist processing of each job
//
//	  - Storage – pluggable interface for persisting entries; pgstore provides
//	    the PostgreSQL implementation, MemoryStorage serves tests
//
// # Usage
//
//	store := pgstore.New(pool)
//	pipeline := audit.New(store,
//	    audit.WithRelationSource(store),
//	    audit.WithConfig(cfg),
//	)
//	interceptor := audit.NewInterceptor(pipeline,
//	    audit.WithPreImageSource(store),
//	    audit.WithActorIDExtractor(extractUserID),
//	    audit.WithRequestIDExtractor(extractRequestID),
//	)
//
//	// In the data-access layer, around every mutating operation:
//	result, err := interceptor.Do(ctx, audit.Mutation{
//	    Entity: "applications",
//	    Action: audit.ActionUpdate,
//	    Args:   audit.Args{Where: where, Data: data},
//	}, func(ctx context.Context) (map[string]any, error) {
//	    return repo.Update(ctx, where, data)
//	})
//
//	// On shutdown: drain within the configured timeout, then release storage.
//	_ = pipeline.Close(ctx)
//
// WithRelationSource builds the event-context resolver on the pipeline's own
// configuration, so Config.CacheTTL governs the resolver caches.
//
// # Failure semantics
//
// No error originating inside the pipeline ever reaches the caller of the
// business mutation. Queue saturation falls back to a synchronous best-effort
// persist; persistence failures are retried a bounded number of times and
// then dropped with a logged error; pre-image fetch failures degrade the
// entry to before=null. Audit loss under sustained backend failure is an
// accepted degradation, never a request-path failure.
//
// # Ordering
//
// Entries for jobs that persist on first attempt are written in enqueue
// order. A retried job re-enters at the back of the queue so a poison job
// cannot stall the pipeline, at the cost of strict ordering for its
// neighbors.
package audit
