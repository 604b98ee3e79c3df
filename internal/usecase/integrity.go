package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
)

// ReferencingUpdateLimit caps the records reindexed after a sub-template changes.
const ReferencingUpdateLimit = 500

// IntegrityGuard refuses deletions that would leave dangling cross references.
type IntegrityGuard struct {
	refs ReferencingSearch
}

func NewIntegrityGuard(refs ReferencingSearch) *IntegrityGuard {
	return &IntegrityGuard{refs: refs}
}

// CheckDeletable returns ReferencedDeletionBlockedError when record is a
// sub-template still referenced by another record.
func (g *IntegrityGuard) CheckDeletable(ctx context.Context, settings domain.Settings, record *domain.MetadataRecord) error {
	if settings.AllowReferencedDeletion || record.Type != metacatalog.TypeSubTemplate {
		return nil
	}

	found, err := g.Referencing(ctx, record, 1)
	if err != nil {
		return err
	}
	if len(found) > 0 {
		return domain.ReferencedDeletionBlockedError{UUID: record.UUID}
	}
	return nil
}

// Referencing returns up to limit ids of other records referencing record.
func (g *IntegrityGuard) Referencing(ctx context.Context, record *domain.MetadataRecord, limit int) ([]int64, error) {
	// one extra row in case the record links to itself
	ids, err := g.refs.FindReferencing(ctx, record.UUID, limit+1)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search referencing records")
	}
	others := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == record.ID {
			continue
		}
		others = append(others, id)
		if len(others) == limit {
			break
		}
	}
	return others, nil
}
