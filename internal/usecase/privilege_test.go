package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/totegamma/metacatalog/internal/domain"
)

func TestAnnotateOwnerOverride(t *testing.T) {
	store := newMockStore()
	store.put(domain.MetadataRecord{ID: 1, SourceInfo: domain.SourceInfo{Owner: 7}})
	grants := &mockGrants{}
	access := &mockAccess{groups: []int64{domain.GroupAll}}
	aggregator := NewPrivilegeAggregator(store, grants, access)

	ctx := domain.WithSession(context.Background(), &domain.Session{User: &domain.User{ID: 7}})
	infos, err := aggregator.Annotate(ctx, []int64{1})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}

	info := infos[1]
	if !info.Owner || !info.Edit || !info.View || !info.Notify || !info.Download || !info.Dynamic || !info.Featured {
		t.Fatalf("owner holds every operation without grants, got %+v", info)
	}
	if info.PublishedToAll {
		t.Fatalf("record is not published")
	}
	if info.GuestDownload != nil {
		t.Fatalf("guest download is omitted when download is granted")
	}
}

func TestAnnotateFromGrants(t *testing.T) {
	store := newMockStore()
	store.put(domain.MetadataRecord{ID: 1, SourceInfo: domain.SourceInfo{Owner: 99}})
	store.put(domain.MetadataRecord{ID: 2, SourceInfo: domain.SourceInfo{Owner: 99}})
	store.put(domain.MetadataRecord{ID: 3, SourceInfo: domain.SourceInfo{Owner: 99}})
	grants := &mockGrants{grants: []domain.OperationGrant{
		{MetadataID: 1, GroupID: domain.GroupAll, Operation: domain.OpView},
		{MetadataID: 1, GroupID: 12, Operation: domain.OpEditing},
		{MetadataID: 2, GroupID: 12, Operation: domain.OpDownload},
		{MetadataID: 3, GroupID: domain.GroupGuest, Operation: domain.OpDownload},
		{MetadataID: 3, GroupID: 40, Operation: domain.OpView},
	}}
	access := &mockAccess{groups: []int64{domain.GroupAll, 12}}
	aggregator := NewPrivilegeAggregator(store, grants, access)

	ctx := domain.WithSession(context.Background(), &domain.Session{User: &domain.User{ID: 7}})
	infos, err := aggregator.Annotate(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected three entries, got %d", len(infos))
	}

	first := infos[1]
	if first.Owner || !first.View || !first.Edit || !first.PublishedToAll {
		t.Fatalf("unexpected privileges for 1: %+v", first)
	}
	if first.GuestDownload == nil || *first.GuestDownload {
		t.Fatalf("guest download of 1 must be reported as false")
	}

	second := infos[2]
	if !second.Download || second.View || second.GuestDownload != nil {
		t.Fatalf("unexpected privileges for 2: %+v", second)
	}

	third := infos[3]
	if third.View {
		t.Fatalf("grants to groups the user is not in do not count")
	}
	if third.GuestDownload == nil || !*third.GuestDownload {
		t.Fatalf("guest download of 3 must be reported as true")
	}

	if grants.calls != 3 {
		t.Fatalf("one grant query per category, got %d", grants.calls)
	}
	if store.sourceInfoCalls != 1 {
		t.Fatalf("source info is loaded once, got %d", store.sourceInfoCalls)
	}
}

func TestAnnotateEmpty(t *testing.T) {
	aggregator := NewPrivilegeAggregator(newMockStore(), &mockGrants{}, &mockAccess{})
	infos, err := aggregator.Annotate(context.Background(), nil)
	if err != nil || len(infos) != 0 {
		t.Fatalf("expected nothing, got %v %v", infos, err)
	}
}

func TestRecordChecks(t *testing.T) {
	store := newMockStore()
	store.put(domain.MetadataRecord{ID: 1, SourceInfo: domain.SourceInfo{Owner: 8}})
	store.put(domain.MetadataRecord{ID: 2, SourceInfo: domain.SourceInfo{Owner: 7}})
	grants := &mockGrants{grants: []domain.OperationGrant{
		{MetadataID: 1, GroupID: domain.GroupAll, Operation: domain.OpView},
	}}
	access := &mockAccess{groups: []int64{domain.GroupAll}, canEdit: map[int64]bool{2: true}}
	aggregator := NewPrivilegeAggregator(store, grants, access)

	registered := domain.WithSession(context.Background(), &domain.Session{User: &domain.User{ID: 7, Profile: domain.ProfileRegisteredUser}})
	anonymous := domain.WithSession(context.Background(), &domain.Session{})
	admin := domain.WithSession(context.Background(), &domain.Session{User: &domain.User{ID: 1, Profile: domain.ProfileAdministrator}})

	tests := []struct {
		name  string
		ctx   context.Context
		check func(context.Context, int64) (bool, error)
		id    int64
		want  bool
	}{
		{name: "public record is viewable", ctx: anonymous, check: aggregator.CanView, id: 1, want: true},
		{name: "private record is hidden", ctx: anonymous, check: aggregator.CanView, id: 2, want: false},
		{name: "owner views private record", ctx: registered, check: aggregator.CanView, id: 2, want: true},
		{name: "other user's record is not editable", ctx: registered, check: aggregator.CanEdit, id: 1, want: false},
		{name: "editable record", ctx: registered, check: aggregator.CanEdit, id: 2, want: true},
		{name: "anonymous cannot edit", ctx: anonymous, check: aggregator.CanEdit, id: 1, want: false},
		{name: "non owner cannot change owner", ctx: registered, check: aggregator.CanChangeOwner, id: 1, want: false},
		{name: "owner changes owner", ctx: registered, check: aggregator.CanChangeOwner, id: 2, want: true},
		{name: "administrator edits anything", ctx: admin, check: aggregator.CanEdit, id: 1, want: true},
		{name: "administrator changes any owner", ctx: admin, check: aggregator.CanChangeOwner, id: 1, want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.check(tc.ctx, tc.id)
			if err != nil {
				t.Fatalf("check failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestRecordChecksMissingRecord(t *testing.T) {
	aggregator := NewPrivilegeAggregator(newMockStore(), &mockGrants{}, &mockAccess{canEdit: map[int64]bool{}})
	registered := domain.WithSession(context.Background(), &domain.Session{User: &domain.User{ID: 7, Profile: domain.ProfileEditor}})

	if _, err := aggregator.CanView(registered, 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("view of a missing record must be not found, got %v", err)
	}
	if _, err := aggregator.CanEdit(registered, 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("edit of a missing record must be not found, got %v", err)
	}

	admin := domain.WithSession(context.Background(), &domain.Session{User: &domain.User{ID: 1, Profile: domain.ProfileAdministrator}})
	allowed, err := aggregator.CanEdit(admin, 404)
	if err != nil || !allowed {
		t.Fatalf("administrators may purge missing records, got %v %v", allowed, err)
	}
}
