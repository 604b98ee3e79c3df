package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/totegamma/metacatalog/internal/domain"
)

// PrivilegeAggregator computes what the requester may do on a set of records.
// Results are never cached.
type PrivilegeAggregator struct {
	store  Store
	grants GrantRepository
	access AccessPolicy
}

func NewPrivilegeAggregator(store Store, grants GrantRepository, access AccessPolicy) *PrivilegeAggregator {
	return &PrivilegeAggregator{
		store:  store,
		grants: grants,
		access: access,
	}
}

// Annotate returns one PrivilegeInfo per id. Each lookup is a single batched
// query whatever the number of ids.
func (a *PrivilegeAggregator) Annotate(ctx context.Context, ids []int64) (map[int64]domain.PrivilegeInfo, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.Annotate")
	defer span.End()

	result := make(map[int64]domain.PrivilegeInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	session := domain.SessionFrom(ctx)
	groups, err := a.access.UserGroups(ctx, session)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to resolve user groups")
	}

	granted, err := a.grants.FindByMetadataIDs(ctx, ids, groups)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load grants")
	}

	public, err := a.grants.FindMetadataIDsWith(ctx, ids, domain.GroupAll, domain.OpView)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load public records")
	}

	guest, err := a.grants.FindMetadataIDsWith(ctx, ids, domain.GroupGuest, domain.OpDownload)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load guest downloadable records")
	}

	sources, err := a.store.FindSourceInfo(ctx, ids)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "failed to load source info")
	}

	ops := make(map[int64]map[domain.Operation]bool, len(ids))
	for _, g := range granted {
		if ops[g.MetadataID] == nil {
			ops[g.MetadataID] = make(map[domain.Operation]bool)
		}
		ops[g.MetadataID][g.Operation] = true
	}
	publicSet := toSet(public)
	guestSet := toSet(guest)

	for _, id := range ids {
		owner := false
		if source, ok := sources[id]; ok {
			owner, err = a.access.IsOwner(ctx, session, source)
			if err != nil {
				span.RecordError(err)
				return nil, errors.Wrap(err, "failed to check ownership")
			}
		}

		has := ops[id]
		allowed := func(op domain.Operation) bool {
			return owner || has[op]
		}

		info := domain.PrivilegeInfo{
			Owner:          owner,
			Edit:           allowed(domain.OpEditing),
			PublishedToAll: publicSet[id],
			View:           allowed(domain.OpView),
			Notify:         allowed(domain.OpNotify),
			Download:       allowed(domain.OpDownload),
			Dynamic:        allowed(domain.OpDynamic),
			Featured:       allowed(domain.OpFeatured),
		}
		if !info.Download {
			guestDownload := guestSet[id]
			info.GuestDownload = &guestDownload
		}
		result[id] = info
	}

	return result, nil
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func isAdministrator(session *domain.Session) bool {
	return session.Authenticated() && session.User.Profile == domain.ProfileAdministrator
}

func (a *PrivilegeAggregator) sourceOf(ctx context.Context, id int64) (domain.SourceInfo, error) {
	sources, err := a.store.FindSourceInfo(ctx, []int64{id})
	if err != nil {
		return domain.SourceInfo{}, errors.Wrap(err, "failed to load source info")
	}
	info, ok := sources[id]
	if !ok {
		return domain.SourceInfo{}, domain.NotFoundError{Resource: "metadata"}
	}
	return info, nil
}

// CanView reports whether the requester may read record id.
func (a *PrivilegeAggregator) CanView(ctx context.Context, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.CanView")
	defer span.End()

	if _, err := a.sourceOf(ctx, id); err != nil {
		span.RecordError(err)
		return false, err
	}
	if isAdministrator(domain.SessionFrom(ctx)) {
		return true, nil
	}

	infos, err := a.Annotate(ctx, []int64{id})
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return infos[id].View, nil
}

// CanEdit reports whether the requester may rewrite or delete record id.
// Administrators pass even for missing records so that stale index documents
// can still be purged.
func (a *PrivilegeAggregator) CanEdit(ctx context.Context, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.CanEdit")
	defer span.End()

	session := domain.SessionFrom(ctx)
	if isAdministrator(session) {
		return true, nil
	}
	if _, err := a.sourceOf(ctx, id); err != nil {
		span.RecordError(err)
		return false, err
	}

	allowed, err := a.access.CanEdit(ctx, session, id)
	if err != nil {
		span.RecordError(err)
		return false, errors.Wrap(err, "failed to check edit right")
	}
	return allowed, nil
}

// CanChangeOwner reports whether the requester may hand record id to another
// owner. Only owners qualify.
func (a *PrivilegeAggregator) CanChangeOwner(ctx context.Context, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.CanChangeOwner")
	defer span.End()

	session := domain.SessionFrom(ctx)
	if isAdministrator(session) {
		return true, nil
	}
	info, err := a.sourceOf(ctx, id)
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	owner, err := a.access.IsOwner(ctx, session, info)
	if err != nil {
		span.RecordError(err)
		return false, errors.Wrap(err, "failed to check ownership")
	}
	return owner, nil
}
