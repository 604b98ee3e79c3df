package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/totegamma/metacatalog"
	"github.com/totegamma/metacatalog/internal/domain"
	"github.com/totegamma/metacatalog/internal/metrics"
)

const (
	defaultIndexWorkers   = 4
	defaultIndexBatchSize = 200
)

// Indexer turns stored records into index documents.
type Indexer struct {
	store     Store
	index     Index
	schemas   SchemaCatalog
	queue     IndexingQueue
	metrics   *metrics.Metrics
	workers   int
	batchSize int
	wg        sync.WaitGroup
}

func NewIndexer(
	store Store,
	index Index,
	schemas SchemaCatalog,
	queue IndexingQueue,
	metrics *metrics.Metrics,
	workers int,
) *Indexer {
	if workers <= 0 {
		workers = defaultIndexWorkers
	}
	return &Indexer{
		store:     store,
		index:     index,
		schemas:   schemas,
		queue:     queue,
		metrics:   metrics,
		workers:   workers,
		batchSize: defaultIndexBatchSize,
	}
}

// IndexMetadata indexes one record. Without forceRefresh the write is skipped
// when the index already holds the record's change date.
func (i *Indexer) IndexMetadata(ctx context.Context, id int64, forceRefresh bool) error {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.IndexMetadata")
	defer span.End()

	record, err := i.store.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if !forceRefresh {
		existing, err := i.index.Get(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			span.RecordError(err)
			return errors.Wrap(err, "failed to read index document")
		}
		if existing != nil && metacatalog.SameChangeDate(existing.ChangeDate, record.ChangeDate) {
			return nil
		}
	}

	err = i.index.IndexOne(ctx, i.Document(ctx, record))
	i.metrics.Indexed(1, err)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to index record")
	}
	return nil
}

// IndexBatch indexes ids in chunks on a bounded worker pool. Records deleted
// in the meantime are skipped.
func (i *Indexer) IndexBatch(ctx context.Context, ids []int64) error {
	ctx, span := tracer.Start(ctx, "Metadata.Usecase.IndexBatch")
	defer span.End()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for start := 0; start < len(ids); start += i.batchSize {
		end := min(start+i.batchSize, len(ids))
		chunk := ids[start:end]
		g.Go(func() error {
			docs := make([]domain.IndexDocument, 0, len(chunk))
			for _, id := range chunk {
				record, err := i.store.FindByID(ctx, id)
				if errors.Is(err, domain.ErrNotFound) {
					continue
				}
				if err != nil {
					return errors.Wrapf(err, "failed to load record %d", id)
				}
				docs = append(docs, i.Document(ctx, record))
			}
			if len(docs) == 0 {
				return nil
			}
			err := i.index.IndexBatch(ctx, docs)
			i.metrics.Indexed(len(docs), err)
			return errors.Wrap(err, "failed to index batch")
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// IndexInBackground runs IndexBatch detached from the caller's cancellation
// and returns immediately.
func (i *Indexer) IndexInBackground(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	i.wg.Add(1)
	i.metrics.BatchStarted()
	go func() {
		defer i.wg.Done()
		defer i.metrics.BatchFinished()
		if err := i.IndexBatch(ctx, ids); err != nil {
			slog.ErrorContext(
				ctx, "background indexing failed",
				slog.String("error", err.Error()),
				slog.Int("count", len(ids)),
				slog.String("module", "indexer"),
			)
		}
	}()
}

// Wait blocks until every background batch has finished.
func (i *Indexer) Wait() {
	i.wg.Wait()
}

// Enqueue defers reindexing of ids to the next queue drain.
func (i *Indexer) Enqueue(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 || i.queue == nil {
		return nil
	}
	return i.queue.Add(ctx, ids...)
}

// DrainQueue indexes up to max queued ids and reports how many were taken.
func (i *Indexer) DrainQueue(ctx context.Context, max int) (int, error) {
	if i.queue == nil {
		return 0, nil
	}
	ids, err := i.queue.Pop(ctx, max)
	if err != nil {
		return 0, errors.Wrap(err, "failed to pop indexing queue")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := i.IndexBatch(ctx, ids); err != nil {
		if requeueErr := i.queue.Add(ctx, ids...); requeueErr != nil {
			slog.ErrorContext(
				ctx, "failed to requeue ids",
				slog.String("error", requeueErr.Error()),
				slog.String("module", "indexer"),
			)
		}
		return 0, err
	}
	return len(ids), nil
}

// Document builds the index document of a record. A body that does not parse
// still yields a document so the index keeps tracking the change date.
func (i *Indexer) Document(ctx context.Context, record *domain.MetadataRecord) domain.IndexDocument {
	doc := domain.IndexDocument{
		ID:         record.ID,
		UUID:       record.UUID,
		ChangeDate: record.ChangeDate,
		SchemaID:   record.SchemaID,
		Type:       record.Type,
		Title:      record.Title,
		Owner:      record.SourceInfo.Owner,
		GroupOwner: record.SourceInfo.GroupOwner,
	}

	parsed, err := metacatalog.ParseXML(record.Body)
	if err != nil {
		slog.WarnContext(
			ctx, "record body does not parse, indexing header only",
			slog.Int64("id", record.ID),
			slog.String("error", err.Error()),
			slog.String("module", "indexer"),
		)
		return doc
	}

	doc.XLinks = strings.Join(metacatalog.CollectXLinks(parsed), " ")
	doc.AnyText = metacatalog.AnyText(parsed)

	if doc.Title == "" {
		if schema, err := i.schemas.Get(record.SchemaID); err == nil {
			if title, err := schema.ExtractTitle(parsed); err == nil {
				doc.Title = title
			}
		}
	}
	return doc
}
