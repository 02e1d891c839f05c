package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/juju/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TaskError accumulates the per-record failures of a bulk import.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// ImportSummary reports what a bulk import did.
type ImportSummary struct {
	Imported int
	Failed   int
}

// BulkImporter creates folders from seed records on a bounded worker pool.
type BulkImporter struct {
	service *FolderService
	workers int
	logger  *zap.Logger
}

// NewBulkImporter creates a BulkImporter with the provided concurrency.
func NewBulkImporter(service *FolderService, workers int, logger *zap.Logger) *BulkImporter {
	if workers <= 0 {
		workers = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkImporter{service: service, workers: workers, logger: logger}
}

// Import creates every record. Invalid records are collected into a
// *TaskError and do not stop the others; cancellation stops the pool.
func (bi *BulkImporter) Import(ctx context.Context, records []ImportRecord) (ImportSummary, error) {
	var (
		mu      sync.Mutex
		summary ImportSummary
		taskErr TaskError
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bi.workers)

	for i, rec := range records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			f, err := bi.service.Create(gctx, rec.Owner, rec.Folder)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				summary.Failed++
				taskErr.Errors = append(taskErr.Errors, errors.Annotatef(err, "record %d", i))
				bi.logger.Warn("folder import failed", zap.Int("record", i), zap.String("owner", rec.Owner), zap.Error(err))
				return nil
			}
			summary.Imported++
			bi.logger.Debug("folder imported", zap.Int("record", i), zap.String("folder", f.ID))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	if len(taskErr.Errors) > 0 {
		return summary, &taskErr
	}
	return summary, nil
}
