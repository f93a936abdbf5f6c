package pgstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/eventregistry/audittrail/pkg/audit"
)

// DB is the slice of pgxpool.Pool the store needs; narrowed for testability.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists audit entries and answers the pipeline's relation and
// pre-image lookups.
type Store struct {
	db DB
}

// New creates a Store on the given connection pool.
func New(db DB) *Store {
	if db == nil {
		panic("pgstore: db cannot be nil")
	}
	return &Store{db: db}
}

const insertEntry = `
INSERT INTO audit_logs (
	id, action, entity_type, entity_id,
	actor_user_id, event_id, request_id, ip, user_agent,
	before, after, redaction_applied, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// Insert implements audit.Storage.
func (s *Store) Insert(ctx context.Context, entry audit.Entry) error {
	before, err := jsonColumn(entry.Before)
	if err != nil {
		return errors.Join(ErrInsertFailed, err)
	}
	after, err := jsonColumn(entry.After)
	if err != nil {
		return errors.Join(ErrInsertFailed, err)
	}

	_, err = s.db.Exec(ctx, insertEntry,
		entry.ID,
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		nullable(entry.ActorUserID),
		nullable(entry.EventID),
		nullable(entry.RequestID),
		nullable(entry.IP),
		nullable(entry.UserAgent),
		before,
		after,
		entry.RedactionApplied,
		entry.CreatedAt,
	)
	if err != nil {
		return errors.Join(ErrInsertFailed, err)
	}
	return nil
}

// Close releases the pool when the store owns one. The pipeline calls this
// after the shutdown drain.
func (s *Store) Close() error {
	if closer, ok := s.db.(interface{ Close() }); ok {
		closer.Close()
	}
	return nil
}

// jsonColumn marshals a snapshot for a JSONB column, mapping Go nil to SQL
// NULL.
func jsonColumn(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
