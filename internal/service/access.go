package service

import (
	"context"
	"log/slog"
	"net"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/policy"
)

const (
	ActionOwn = "metadata.own"
)

// OwnershipPolicy decides who may act as the owner of a record: administrators,
// the owning user, and reviewers or user administrators of the owning group.
const OwnershipPolicy = `{
	"name": "metadata ownership",
	"versions": {
		"2024-01-01": {
			"statements": {
				"metadata.own": [
					{"emit": "allow", "condition": {"op": "Eq", "args": [{"op": "Load", "args": [{"const": "requester.profile"}]}, {"const": "Administrator"}]}},
					{"emit": "allow", "condition": {"op": "Eq", "args": [{"op": "Load", "args": [{"const": "requester.id"}]}, {"op": "Load", "args": [{"const": "this.owner"}]}]}},
					{"emit": "allow", "condition": {"op": "AtLeast", "args": [{"op": "Load", "args": [{"const": "params.groupRank"}]}, {"const": 3}]}}
				]
			},
			"defaults": {"metadata.own": false}
		}
	}
}`

type membershipFinder interface {
	FindMemberships(ctx context.Context, id domain.UserID) (map[int64]domain.Profile, error)
}

type groupLister interface {
	FindAllIDs(ctx context.Context) ([]int64, error)
}

type grantFinder interface {
	FindByMetadataIDs(ctx context.Context, ids []int64, groups []int64) ([]domain.OperationGrant, error)
}

type sourceInfoFinder interface {
	FindSourceInfo(ctx context.Context, ids []int64) (map[int64]domain.SourceInfo, error)
}

// AccessService answers group and ownership questions for the session of a
// request. Nothing it computes outlives the request.
type AccessService struct {
	users    membershipFinder
	groups   groupLister
	grants   grantFinder
	records  sourceInfoFinder
	intranet []*net.IPNet
	policy   policy.PolicyDocument
}

func NewAccessService(
	users membershipFinder,
	groups groupLister,
	grants grantFinder,
	records sourceInfoFinder,
	intranetNetworks []string,
) *AccessService {
	doc, err := policy.ParseDocument([]byte(OwnershipPolicy))
	if err != nil {
		panic(err)
	}
	return &AccessService{
		users:    users,
		groups:   groups,
		grants:   grants,
		records:  records,
		intranet: parseNetworks(intranetNetworks),
		policy:   doc,
	}
}

func parseNetworks(networks []string) []*net.IPNet {
	var result []*net.IPNet
	for _, n := range networks {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if !strings.Contains(n, "/") {
			if ip := net.ParseIP(n); ip != nil && ip.To4() != nil {
				n += "/32"
			} else {
				n += "/128"
			}
		}
		_, ipnet, err := net.ParseCIDR(n)
		if err != nil {
			slog.Warn(
				"ignoring invalid intranet network",
				slog.String("network", n),
				slog.String("error", err.Error()),
				slog.String("module", "access"),
			)
			continue
		}
		result = append(result, ipnet)
	}
	return result
}

// IsIntranet reports whether ip belongs to one of the configured intranet networks.
func (s *AccessService) IsIntranet(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range s.intranet {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

func (s *AccessService) memberships(ctx context.Context, session *domain.Session) (map[int64]domain.Profile, error) {
	if groups, ok := session.Memberships(); ok {
		return groups, nil
	}
	groups, err := s.users.FindMemberships(ctx, session.User.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load memberships")
	}
	session.SetMemberships(groups)
	return groups, nil
}

func (s *AccessService) UserGroups(ctx context.Context, session *domain.Session) ([]int64, error) {
	ctx, span := tracer.Start(ctx, "Access.Service.UserGroups")
	defer span.End()

	groups := []int64{domain.GroupAll}
	if session != nil && s.IsIntranet(session.IP) {
		groups = append(groups, domain.GroupIntranet)
	}
	if !session.Authenticated() {
		return groups, nil
	}

	var member []int64
	if session.User.Profile == domain.ProfileAdministrator {
		all, err := s.groups.FindAllIDs(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrap(err, "failed to list groups")
		}
		member = all
	} else {
		memberships, err := s.memberships(ctx, session)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for id := range memberships {
			member = append(member, id)
		}
		slices.Sort(member)
	}

	for _, id := range member {
		if !slices.Contains(groups, id) {
			groups = append(groups, id)
		}
	}
	return groups, nil
}

func (s *AccessService) IsOwner(ctx context.Context, session *domain.Session, info domain.SourceInfo) (bool, error) {
	ctx, span := tracer.Start(ctx, "Access.Service.IsOwner")
	defer span.End()

	if !session.Authenticated() {
		return false, nil
	}

	// rank of the requester in the owning group, 0 when not a member
	groupRank := 0
	if session.User.Profile != domain.ProfileAdministrator && info.GroupOwner != nil {
		memberships, err := s.memberships(ctx, session)
		if err != nil {
			span.RecordError(err)
			return false, err
		}
		groupRank = memberships[*info.GroupOwner].Rank()
	}

	var groupOwner any
	if info.GroupOwner != nil {
		groupOwner = *info.GroupOwner
	}

	rc := policy.RequestContext{
		Requester: map[string]any{
			"id":      int64(session.User.ID),
			"profile": string(session.User.Profile),
		},
		This: map[string]any{
			"owner":      int64(info.Owner),
			"groupOwner": groupOwner,
		},
		Params: map[string]any{
			"groupRank": groupRank,
		},
	}

	allowed, err := policy.Decide(s.policy, rc, ActionOwn)
	if err != nil {
		span.RecordError(err)
		return false, errors.Wrap(err, "failed to evaluate ownership policy")
	}
	return allowed, nil
}

// CanEdit is true for owners and for editors of a group holding the editing
// grant on the record. A missing record cannot be edited.
func (s *AccessService) CanEdit(ctx context.Context, session *domain.Session, id int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "Access.Service.CanEdit")
	defer span.End()

	if !session.Authenticated() {
		return false, nil
	}

	sources, err := s.records.FindSourceInfo(ctx, []int64{id})
	if err != nil {
		span.RecordError(err)
		return false, errors.Wrap(err, "failed to load source info")
	}
	info, ok := sources[id]
	if !ok {
		return false, nil
	}

	owner, err := s.IsOwner(ctx, session, info)
	if err != nil {
		return false, err
	}
	if owner {
		return true, nil
	}

	memberships, err := s.memberships(ctx, session)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	var editing []int64
	for group, profile := range memberships {
		if profile.Rank() >= domain.ProfileEditor.Rank() {
			editing = append(editing, group)
		}
	}
	if len(editing) == 0 {
		return false, nil
	}

	grants, err := s.grants.FindByMetadataIDs(ctx, []int64{id}, editing)
	if err != nil {
		span.RecordError(err)
		return false, errors.Wrap(err, "failed to load grants")
	}
	for _, g := range grants {
		if g.Operation == domain.OpEditing {
			return true, nil
		}
	}
	return false, nil
}
