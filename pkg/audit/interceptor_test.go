package audit_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventregistry/audittrail/pkg/audit"
)

type fakePreImages struct {
	record map[string]any
	err    error
	calls  atomic.Int64
}

func (f *fakePreImages) FetchOne(_ context.Context, _ string, _ map[string]any) (map[string]any, error) {
	f.calls.Add(1)
	return f.record, f.err
}

type ctxKey string

func ctxExtractor(key ctxKey) audit.Extractor {
	return func(ctx context.Context) (string, bool) {
		v, ok := ctx.Value(key).(string)
		return v, ok
	}
}

func TestInterceptor_Transparency(t *testing.T) {
	t.Parallel()

	t.Run("successful write passes through", func(t *testing.T) {
		t.Parallel()

		p := audit.New(&testStorage{}, audit.WithLogger(quietLogger()))
		defer p.Close(context.Background())
		i := audit.NewInterceptor(p)

		want := map[string]any{"id": "u1", "name": "Alice"}
		got, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.ActionCreate,
		}, func(context.Context) (map[string]any, error) {
			return want, nil
		})

		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("business error passes through and is not audited", func(t *testing.T) {
		t.Parallel()

		store := &testStorage{}
		p := audit.New(store, audit.WithLogger(quietLogger()))
		defer p.Close(context.Background())
		i := audit.NewInterceptor(p)

		wantErr := errors.New("unique constraint violation")
		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.ActionCreate,
		}, func(context.Context) (map[string]any, error) {
			return nil, wantErr
		})

		assert.ErrorIs(t, err, wantErr)
		waitIdle(t, p)
		assert.Empty(t, store.stored())
	})

	t.Run("unreachable audit backend does not fail the write", func(t *testing.T) {
		t.Parallel()

		store := &testStorage{}
		store.failln.Store(1 << 30)
		p := audit.New(store, audit.WithLogger(quietLogger()))
		defer p.Close(context.Background())
		i := audit.NewInterceptor(p)

		got, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.ActionCreate,
		}, func(context.Context) (map[string]any, error) {
			return map[string]any{"id": "u1"}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, "u1", got["id"])
	})
}

func TestInterceptor_Skips(t *testing.T) {
	t.Parallel()

	t.Run("non-mutating action", func(t *testing.T) {
		t.Parallel()

		store := &testStorage{}
		p := audit.New(store, audit.WithLogger(quietLogger()))
		defer p.Close(context.Background())
		i := audit.NewInterceptor(p)

		called := false
		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.Action("find_many"),
		}, func(context.Context) (map[string]any, error) {
			called = true
			return nil, nil
		})

		require.NoError(t, err)
		assert.True(t, called)
		waitIdle(t, p)
		assert.Empty(t, store.stored())
	})

	t.Run("audit log table itself", func(t *testing.T) {
		t.Parallel()

		store := &testStorage{}
		p := audit.New(store, audit.WithLogger(quietLogger()))
		defer p.Close(context.Background())
		i := audit.NewInterceptor(p)

		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "audit_logs",
			Action: audit.ActionCreate,
		}, func(context.Context) (map[string]any, error) {
			return map[string]any{"id": "a1"}, nil
		})

		require.NoError(t, err)
		waitIdle(t, p)
		assert.Empty(t, store.stored(), "auditing the audit log would recurse")
	})

	t.Run("explicitly excluded entity", func(t *testing.T) {
		t.Parallel()

		store := &testStorage{}
		p := audit.New(store, audit.WithLogger(quietLogger()))
		defer p.Close(context.Background())
		i := audit.NewInterceptor(p, audit.WithExcludedEntities("sessions"))

		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "sessions",
			Action: audit.ActionDelete,
		}, func(context.Context) (map[string]any, error) {
			return nil, nil
		})

		require.NoError(t, err)
		waitIdle(t, p)
		assert.Empty(t, store.stored())
	})
}

func TestInterceptor_PreImageCapture(t *testing.T) {
	t.Parallel()

	newIntercepted := func(src *fakePreImages) (*audit.Pipeline, *audit.Interceptor, *testStorage) {
		store := &testStorage{}
		p := audit.New(store, audit.WithLogger(quietLogger()))
		return p, audit.NewInterceptor(p, audit.WithPreImageSource(src)), store
	}

	t.Run("captured for small equality filter", func(t *testing.T) {
		t.Parallel()

		src := &fakePreImages{record: map[string]any{"id": "u1", "name": "Alice"}}
		p, i, store := newIntercepted(src)
		defer p.Close(context.Background())

		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.ActionUpdate,
			Args: audit.Args{
				Where: map[string]any{"id": "u1"},
				Data:  map[string]any{"name": "Alicia"},
			},
		}, func(context.Context) (map[string]any, error) {
			return map[string]any{"id": "u1", "name": "Alicia"}, nil
		})

		require.NoError(t, err)
		assert.Equal(t, int64(1), src.calls.Load())
		waitIdle(t, p)

		entries := store.stored()
		require.Len(t, entries, 1)
		after := entries[0].After.(map[string]any)
		assert.Equal(t, true, after["_diff"], "captured pre-image enables diff storage")
	})

	t.Run("skipped for wide filter", func(t *testing.T) {
		t.Parallel()

		src := &fakePreImages{}
		p, i, _ := newIntercepted(src)
		defer p.Close(context.Background())

		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.ActionUpdate,
			Args: audit.Args{Where: map[string]any{
				"a": "1", "b": "2", "c": "3", "d": "4",
			}},
		}, func(context.Context) (map[string]any, error) { return nil, nil })

		require.NoError(t, err)
		assert.Zero(t, src.calls.Load(), "4-key filter must not trigger a fetch")
	})

	t.Run("skipped for non-scalar predicate", func(t *testing.T) {
		t.Parallel()

		src := &fakePreImages{}
		p, i, _ := newIntercepted(src)
		defer p.Close(context.Background())

		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.ActionUpdate,
			Args: audit.Args{Where: map[string]any{
				"id": map[string]any{"$in": []any{"u1", "u2"}},
			}},
		}, func(context.Context) (map[string]any, error) { return nil, nil })

		require.NoError(t, err)
		assert.Zero(t, src.calls.Load())
	})

	t.Run("skipped for create", func(t *testing.T) {
		t.Parallel()

		src := &fakePreImages{}
		p, i, _ := newIntercepted(src)
		defer p.Close(context.Background())

		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.ActionCreate,
			Args:   audit.Args{Data: map[string]any{"id": "u1"}},
		}, func(context.Context) (map[string]any, error) { return nil, nil })

		require.NoError(t, err)
		assert.Zero(t, src.calls.Load())
	})

	t.Run("fetch failure degrades to null before", func(t *testing.T) {
		t.Parallel()

		src := &fakePreImages{err: errors.New("connection reset")}
		p, i, store := newIntercepted(src)
		defer p.Close(context.Background())

		_, err := i.Do(context.Background(), audit.Mutation{
			Entity: "users",
			Action: audit.ActionDelete,
			Args:   audit.Args{Where: map[string]any{"id": "u1"}},
		}, func(context.Context) (map[string]any, error) { return nil, nil })

		require.NoError(t, err, "pre-image failure must be swallowed")
		waitIdle(t, p)

		entries := store.stored()
		require.Len(t, entries, 1)
		assert.Nil(t, entries[0].Before)
	})
}

func TestInterceptor_RequestContext(t *testing.T) {
	t.Parallel()

	store := &testStorage{}
	p := audit.New(store, audit.WithLogger(quietLogger()))
	defer p.Close(context.Background())

	i := audit.NewInterceptor(p,
		audit.WithActorIDExtractor(ctxExtractor("actor")),
		audit.WithRequestIDExtractor(ctxExtractor("request")),
		audit.WithIPExtractor(ctxExtractor("ip")),
		audit.WithUserAgentExtractor(ctxExtractor("ua")),
	)

	ctx := context.Background()
	ctx = context.WithValue(ctx, ctxKey("actor"), "user-9")
	ctx = context.WithValue(ctx, ctxKey("request"), "req-42")
	ctx = context.WithValue(ctx, ctxKey("ip"), "10.0.0.1")
	ctx = context.WithValue(ctx, ctxKey("ua"), "curl/8")

	_, err := i.Do(ctx, audit.Mutation{
		Entity: "events",
		Action: audit.ActionCreate,
	}, func(context.Context) (map[string]any, error) {
		return map[string]any{"id": "e1"}, nil
	})
	require.NoError(t, err)
	waitIdle(t, p)

	entries := store.stored()
	require.Len(t, entries, 1)
	assert.Equal(t, "user-9", entries[0].ActorUserID)
	assert.Equal(t, "req-42", entries[0].RequestID)
	assert.Equal(t, "10.0.0.1", entries[0].IP)
	assert.Equal(t, "curl/8", entries[0].UserAgent)
}

func TestInterceptor_SaturatedQueueFallback(t *testing.T) {
	t.Parallel()

	store := &testStorage{}
	gate := make(chan struct{})
	store.setGate(gate)

	p := audit.New(store,
		audit.WithLogger(quietLogger()),
		audit.WithConfig(audit.Config{QueueSize: audit.MinQueueSize}),
	)
	i := audit.NewInterceptor(p)

	// Park the worker inside a gated insert before filling, so the fill
	// count is deterministic and nothing drains mid-test.
	p.Enqueue(audit.Job{
		Mutation: audit.Mutation{Entity: "filler", Action: audit.ActionCreate},
	})
	require.Eventually(t, func() bool { return store.started.Load() == 1 },
		time.Second, time.Millisecond)

	for p.Enqueue(audit.Job{
		Mutation: audit.Mutation{Entity: "filler", Action: audit.ActionCreate},
	}) {
	}

	// New inserts pass immediately; only the in-flight worker call stays
	// gated. The next intercepted mutation must persist inline, exactly once.
	store.setGate(nil)
	before := store.inserts.Load()

	got, err := i.Do(context.Background(), audit.Mutation{
		Entity: "registrations",
		Action: audit.ActionCreate,
	}, func(context.Context) (map[string]any, error) {
		return map[string]any{"id": "r1"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "r1", got["id"])
	assert.Equal(t, before+1, store.inserts.Load(), "exactly one synchronous persist")

	entries := store.stored()
	require.Len(t, entries, 1)
	assert.Equal(t, "registrations", entries[0].EntityType)

	close(gate)
	require.NoError(t, p.Close(context.Background()))
}
