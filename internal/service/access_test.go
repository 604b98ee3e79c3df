package service

import (
	"context"
	"testing"

	"github.com/totegamma/metacatalog/internal/domain"
)

type mockMemberships struct {
	groups map[domain.UserID]map[int64]domain.Profile
	calls  int
}

func (m *mockMemberships) FindMemberships(ctx context.Context, id domain.UserID) (map[int64]domain.Profile, error) {
	m.calls++
	return m.groups[id], nil
}

type mockGroupLister struct{ ids []int64 }

func (m *mockGroupLister) FindAllIDs(ctx context.Context) ([]int64, error) { return m.ids, nil }

type mockGrantFinder struct{ grants []domain.OperationGrant }

func (m *mockGrantFinder) FindByMetadataIDs(ctx context.Context, ids []int64, groups []int64) ([]domain.OperationGrant, error) {
	var result []domain.OperationGrant
	for _, g := range m.grants {
		for _, id := range ids {
			for _, group := range groups {
				if g.MetadataID == id && g.GroupID == group {
					result = append(result, g)
				}
			}
		}
	}
	return result, nil
}

type mockSourceInfo struct{ infos map[int64]domain.SourceInfo }

func (m *mockSourceInfo) FindSourceInfo(ctx context.Context, ids []int64) (map[int64]domain.SourceInfo, error) {
	result := map[int64]domain.SourceInfo{}
	for _, id := range ids {
		if info, ok := m.infos[id]; ok {
			result[id] = info
		}
	}
	return result, nil
}

func ptr[T any](v T) *T { return &v }

func newAccess() (*AccessService, *mockMemberships) {
	users := &mockMemberships{groups: map[domain.UserID]map[int64]domain.Profile{
		10: {2: domain.ProfileEditor, 3: domain.ProfileRegisteredUser},
		11: {2: domain.ProfileReviewer},
		12: {3: domain.ProfileEditor},
		13: {2: domain.ProfileUserAdmin},
		14: {3: domain.ProfileReviewer},
	}}
	grants := &mockGrantFinder{grants: []domain.OperationGrant{
		{MetadataID: 100, GroupID: 2, Operation: domain.OpEditing},
		{MetadataID: 100, GroupID: 3, Operation: domain.OpView},
	}}
	records := &mockSourceInfo{infos: map[int64]domain.SourceInfo{
		100: {Owner: 50, GroupOwner: ptr(int64(2))},
	}}
	access := NewAccessService(users, &mockGroupLister{ids: []int64{1, 2, 3, 4}}, grants, records, []string{"10.0.0.0/8", "192.168.1.5", "bogus"})
	return access, users
}

func session(id domain.UserID, profile domain.Profile) *domain.Session {
	return &domain.Session{User: &domain.User{ID: id, Profile: profile}}
}

func TestUserGroups(t *testing.T) {
	access, users := newAccess()
	ctx := context.Background()

	groups, err := access.UserGroups(ctx, &domain.Session{IP: "10.1.2.3"})
	if err != nil {
		t.Fatalf("user groups failed: %v", err)
	}
	if len(groups) != 2 || groups[0] != domain.GroupAll || groups[1] != domain.GroupIntranet {
		t.Fatalf("anonymous intranet request sees all and intranet, got %v", groups)
	}

	groups, _ = access.UserGroups(ctx, nil)
	if len(groups) != 1 || groups[0] != domain.GroupAll {
		t.Fatalf("no session sees only all, got %v", groups)
	}

	s := session(10, domain.ProfileEditor)
	s.IP = "192.168.1.5"
	groups, _ = access.UserGroups(ctx, s)
	want := []int64{domain.GroupAll, domain.GroupIntranet, 2, 3}
	if len(groups) != len(want) {
		t.Fatalf("expected %v, got %v", want, groups)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, groups)
		}
	}

	access.UserGroups(ctx, s)
	if users.calls != 1 {
		t.Fatalf("memberships should be loaded once per session, got %d", users.calls)
	}

	groups, _ = access.UserGroups(ctx, session(1, domain.ProfileAdministrator))
	if len(groups) != 4 {
		t.Fatalf("administrators see every group, got %v", groups)
	}
}

func TestIsOwner(t *testing.T) {
	access, _ := newAccess()
	ctx := context.Background()
	info := domain.SourceInfo{Owner: 50, GroupOwner: ptr(int64(2))}

	tests := []struct {
		name    string
		session *domain.Session
		owner   bool
	}{
		{name: "anonymous", session: nil},
		{name: "administrator", session: session(1, domain.ProfileAdministrator), owner: true},
		{name: "owning user", session: session(50, domain.ProfileEditor), owner: true},
		{name: "reviewer of owning group", session: session(11, domain.ProfileReviewer), owner: true},
		{name: "user administrator of owning group", session: session(13, domain.ProfileUserAdmin), owner: true},
		{name: "editor of owning group", session: session(10, domain.ProfileEditor)},
		{name: "reviewer of another group", session: session(14, domain.ProfileReviewer)},
		{name: "stranger", session: session(12, domain.ProfileEditor)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			owner, err := access.IsOwner(ctx, tc.session, info)
			if err != nil {
				t.Fatalf("is owner failed: %v", err)
			}
			if owner != tc.owner {
				t.Fatalf("expected %v, got %v", tc.owner, owner)
			}
		})
	}

	owner, _ := access.IsOwner(ctx, session(11, domain.ProfileReviewer), domain.SourceInfo{Owner: 50})
	if owner {
		t.Fatalf("a record without group owner is only owned by its user")
	}
}

func TestCanEdit(t *testing.T) {
	access, _ := newAccess()
	ctx := context.Background()

	tests := []struct {
		name    string
		session *domain.Session
		id      int64
		edit    bool
	}{
		{name: "editor with editing grant", session: session(10, domain.ProfileEditor), id: 100, edit: true},
		{name: "editor without editing grant", session: session(12, domain.ProfileEditor), id: 100},
		{name: "owner", session: session(50, domain.ProfileRegisteredUser), id: 100, edit: true},
		{name: "missing record", session: session(50, domain.ProfileEditor), id: 404},
		{name: "anonymous", session: nil, id: 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			edit, err := access.CanEdit(ctx, tc.session, tc.id)
			if err != nil {
				t.Fatalf("can edit failed: %v", err)
			}
			if edit != tc.edit {
				t.Fatalf("expected %v, got %v", tc.edit, edit)
			}
		})
	}
}

func TestIsIntranet(t *testing.T) {
	access, _ := newAccess()
	if !access.IsIntranet("10.200.0.1") || !access.IsIntranet("192.168.1.5") {
		t.Fatalf("configured networks must match")
	}
	if access.IsIntranet("192.168.1.6") || access.IsIntranet("not an ip") {
		t.Fatalf("other addresses are not intranet")
	}
}
