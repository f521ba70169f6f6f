package hush

import (
	"context"
	"fmt"
	"sync"

	hushrt "github.com/jward/hush/internal/runtime"
	"github.com/jward/hush/internal/store"
)

// workItem holds everything an extraction worker needs.
type workItem struct {
	path   string
	lang   string
	fileID int64
	src    []byte
	batch  *store.BatchedStore
}

// IndexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):  Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse and extract via worker pool (each with own Runtime).
//	Phase C (serial):  Commit batches to SQLite, mark files dirty.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	if e.dirty == nil {
		e.dirty = make(map[int64]bool)
	}

	// ---- Phase A: Serial file preparation ----
	var (
		items []workItem
		errs  []error
	)
	for _, path := range paths {
		item, skip, err := e.prepareFile(ctx, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		item.batch = store.NewBatchedStore()
		items = append(items, item)
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := max(1, min(e.workers, len(items)))

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item  workItem
		stats hushrt.ExtractStats
		err   error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				stats, err := e.extractFile(ctx, item)
				resultCh <- result{item: item, stats: stats, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("extract %s: %w", res.item.path, e.discard(res.item, res.err)))
			continue
		}
		if err := e.store.CommitBatch(res.item.batch); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, e.discard(res.item, err)))
			continue
		}
		e.markDirty(res.item.fileID)
		e.logger.Debug("indexed", "path", res.item.path,
			"comments", res.stats.Comments, "code_nodes", res.stats.CodeNodes)
	}

	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// extractFile parses one file into its BatchedStore. Each call creates its
// own Runtime so tree-sitter parsing is goroutine-safe.
func (e *Engine) extractFile(ctx context.Context, item workItem) (hushrt.ExtractStats, error) {
	rt := hushrt.NewRuntime(item.batch, hushrt.WithRuntimeLogger(e.logger))
	return rt.Extract(ctx, item.fileID, item.lang, item.src)
}
