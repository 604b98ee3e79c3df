package usecase

import (
	"context"
	"log/slog"
	"slices"

	"github.com/pkg/errors"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/metrics"
)

// DefaultReconcilePageSize is the number of store rows scanned per page.
const DefaultReconcilePageSize = 100000

// BatchIndexer dispatches ids for indexing without waiting for completion.
type BatchIndexer interface {
	IndexInBackground(ctx context.Context, ids []int64)
}

type ReconcileResult struct {
	Scheduled []int64 `json:"scheduled"`
	Deleted   []int64 `json:"deleted"`
}

// IndexReconciler brings the index back in line with the store.
type IndexReconciler struct {
	store    Store
	index    Index
	indexer  BatchIndexer
	metrics  *metrics.Metrics
	pageSize int
}

func NewIndexReconciler(store Store, index Index, indexer BatchIndexer, metrics *metrics.Metrics, pageSize int) *IndexReconciler {
	if pageSize <= 0 {
		pageSize = DefaultReconcilePageSize
	}
	return &IndexReconciler{
		store:    store,
		index:    index,
		indexer:  indexer,
		metrics:  metrics,
		pageSize: pageSize,
	}
}

// Reconcile schedules every record missing from the index or indexed with a
// different change date, and deletes index documents whose record is gone.
// With force every record is scheduled. Indexing runs in the background.
func (r *IndexReconciler) Reconcile(ctx context.Context, force bool) (ReconcileResult, error) {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.Reconcile")
	defer span.End()

	var result ReconcileResult

	indexed, err := r.index.GetAllChangeDates(ctx)
	if err != nil {
		span.RecordError(err)
		return result, errors.Wrap(err, "failed to read index change dates")
	}

	for page := 0; ; page++ {
		rows, err := r.store.FindIDsAndChangeDates(ctx, domain.Page{Number: page, Size: r.pageSize})
		if err != nil {
			span.RecordError(err)
			return result, errors.Wrap(err, "failed to page store change dates")
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			indexedDate, ok := indexed[row.ID]
			if !ok {
				result.Scheduled = append(result.Scheduled, row.ID)
				continue
			}
			delete(indexed, row.ID)
			if force || !metacatalog.SameChangeDate(indexedDate, row.ChangeDate) {
				result.Scheduled = append(result.Scheduled, row.ID)
			}
		}

		if len(rows) < r.pageSize {
			break
		}
	}

	if len(result.Scheduled) > 0 {
		slog.InfoContext(
			ctx, "scheduling records for indexing",
			slog.Int("count", len(result.Scheduled)),
			slog.Bool("force", force),
			slog.String("module", "reconcile"),
		)
		r.indexer.IndexInBackground(ctx, result.Scheduled)
	}

	if len(indexed) > 0 {
		orphans := make([]int64, 0, len(indexed))
		for id := range indexed {
			orphans = append(orphans, id)
		}
		slices.Sort(orphans)

		slog.InfoContext(
			ctx, "removing orphan index documents",
			slog.Int("count", len(orphans)),
			slog.String("module", "reconcile"),
		)
		for _, id := range orphans {
			if err := r.index.Delete(ctx, id); err != nil {
				span.RecordError(err)
				return result, errors.Wrapf(err, "failed to delete index document %d", id)
			}
			result.Deleted = append(result.Deleted, id)
		}
	}

	r.metrics.Reconciled(len(result.Scheduled), len(result.Deleted))
	return result, nil
}
