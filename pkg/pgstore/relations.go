package pgstore

import (
	"context"
	"errors"

	"github.com/eventregistry/audittrail/pkg/eventref"
	"github.com/eventregistry/audittrail/pkg/pg"
)

// ApplicationEventID implements eventref.RelationSource.
func (s *Store) ApplicationEventID(ctx context.Context, applicationID string) (string, error) {
	var eventID string
	err := s.db.QueryRow(ctx,
		`SELECT event_id FROM applications WHERE id = $1`,
		applicationID,
	).Scan(&eventID)
	if pg.IsNotFound(err) {
		return "", eventref.ErrNotFound
	}
	if err != nil {
		return "", errors.Join(ErrLookupFailed, err)
	}
	return eventID, nil
}

// SubmissionVersionApplicationID implements eventref.RelationSource.
func (s *Store) SubmissionVersionApplicationID(ctx context.Context, submissionVersionID string) (string, error) {
	var applicationID string
	err := s.db.QueryRow(ctx,
		`SELECT application_id FROM submission_versions WHERE id = $1`,
		submissionVersionID,
	).Scan(&applicationID)
	if pg.IsNotFound(err) {
		return "", eventref.ErrNotFound
	}
	if err != nil {
		return "", errors.Join(ErrLookupFailed, err)
	}
	return applicationID, nil
}
