package pgstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/eventregistry/audittrail/pkg/pg"
)

// identifierPattern accepts plain SQL identifiers only. Entity and column
// names come from the data layer's own descriptors, but the filter builder
// still refuses anything that would need quoting.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// FetchOne implements audit.PreImageSource: a bounded single-row lookup by
// equality filter. A missing row is not an error; the record may already be
// gone, and the audit entry simply proceeds without a before-image.
func (s *Store) FetchOne(ctx context.Context, entity string, where map[string]any) (map[string]any, error) {
	query, args, err := buildPreImageQuery(entity, where)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}

	record, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if pg.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrLookupFailed, err)
	}
	return record, nil
}

// buildPreImageQuery renders "SELECT * FROM e WHERE k1=$1 AND k2=$2 LIMIT 1"
// with keys in sorted order so the query text is stable for the same filter.
func buildPreImageQuery(entity string, where map[string]any) (string, []any, error) {
	if !identifierPattern.MatchString(entity) {
		return "", nil, fmt.Errorf("%w: entity %q", ErrInvalidIdentifier, entity)
	}
	if len(where) == 0 {
		return "", nil, ErrEmptyFilter
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		if !identifierPattern.MatchString(k) {
			return "", nil, fmt.Errorf("%w: column %q", ErrInvalidIdentifier, k)
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	predicates := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		predicates[i] = fmt.Sprintf("%s = $%d", k, i+1)
		args[i] = where[k]
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT 1",
		entity, strings.Join(predicates, " AND "))
	return query, args, nil
}
