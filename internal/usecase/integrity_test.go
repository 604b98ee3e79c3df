package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
)

type mockRefs struct {
	ids   []int64
	limit int
}

func (m *mockRefs) FindReferencing(ctx context.Context, uuid string, limit int) ([]int64, error) {
	m.limit = limit
	return m.ids, nil
}

func TestCheckDeletable(t *testing.T) {
	sub := &domain.MetadataRecord{ID: 1, UUID: "contact", Type: metacatalog.TypeSubTemplate}
	standard := &domain.MetadataRecord{ID: 1, UUID: "contact", Type: metacatalog.TypeStandard}

	tests := []struct {
		name     string
		record   *domain.MetadataRecord
		refs     []int64
		override bool
		blocked  bool
	}{
		{name: "referenced sub-template", record: sub, refs: []int64{2}, blocked: true},
		{name: "unreferenced sub-template", record: sub, refs: nil},
		{name: "self reference only", record: sub, refs: []int64{1}},
		{name: "override", record: sub, refs: []int64{2}, override: true},
		{name: "standard record", record: standard, refs: []int64{2}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			guard := NewIntegrityGuard(&mockRefs{ids: tc.refs})
			settings := domain.Settings{AllowReferencedDeletion: tc.override}
			err := guard.CheckDeletable(context.Background(), settings, tc.record)
			if tc.blocked != errors.Is(err, domain.ErrReferencedDeletionBlocked) {
				t.Fatalf("blocked=%v, got %v", tc.blocked, err)
			}
			if !tc.blocked && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestReferencingLimit(t *testing.T) {
	refs := &mockRefs{ids: []int64{5, 1, 6, 7}}
	guard := NewIntegrityGuard(refs)

	ids, err := guard.Referencing(context.Background(), &domain.MetadataRecord{ID: 1, UUID: "u"}, 2)
	if err != nil {
		t.Fatalf("referencing failed: %v", err)
	}
	if refs.limit != 3 {
		t.Fatalf("expected one extra row to be requested, got %d", refs.limit)
	}
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 6 {
		t.Fatalf("unexpected ids %v", ids)
	}
}
