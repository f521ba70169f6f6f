package hush

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jward/hush/internal/directive"
	"github.com/jward/hush/internal/index"
	"github.com/jward/hush/internal/scope"
	"github.com/jward/hush/internal/store"
)

// Record is one emitted suppression: a comment that carries a directive and
// sits on a line where code starts.
type Record struct {
	CommentID  int64
	Comment    index.Location
	Text       string
	Annotation string
	Kind       directive.Kind
	Scope      scope.Scope
}

// Metadata keys stamped by Suppress.
const (
	MetaLastRunID = "last_run_id"
	MetaLastRunAt = "last_run_at"
)

// Emit classifies and resolves every comment in idx and returns one Record
// per comment for which both succeed. Files are processed concurrently.
// Records are ordered by file, line and column.
func Emit(ctx context.Context, idx index.ProgramIndex) ([]Record, error) {
	return emit(ctx, idx, runtime.GOMAXPROCS(0))
}

// EmitFile returns the records of a single file in comment order.
func EmitFile(idx index.ProgramIndex, file string) []Record {
	var out []Record
	for _, c := range idx.CommentsOf(file) {
		d, ok := directive.Classify(c.Text)
		if !ok {
			continue
		}
		s, ok := scope.Resolve(c, idx)
		if !ok {
			continue
		}
		out = append(out, Record{
			CommentID:  c.ID,
			Comment:    c.Location,
			Text:       c.Text,
			Annotation: d.Annotation,
			Kind:       d.Kind,
			Scope:      s,
		})
	}
	return out
}

func emit(ctx context.Context, idx index.ProgramIndex, workers int) ([]Record, error) {
	files := idx.Files()
	if len(files) == 0 {
		return nil, ctx.Err()
	}

	perFile := make([][]Record, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(workers, len(files))))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFile[i] = EmitFile(idx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Record
	for _, recs := range perFile {
		out = append(out, recs...)
	}
	slices.SortFunc(out, compareRecords)
	return out, nil
}

func compareRecords(a, b Record) int {
	return cmp.Or(
		cmp.Compare(a.Comment.File, b.Comment.File),
		cmp.Compare(a.Comment.StartLine, b.Comment.StartLine),
		cmp.Compare(a.Comment.StartCol, b.Comment.StartCol),
	)
}

// Suppress emits records for the files indexed since their records were
// last stored (every file when the dirty set is nil) and replaces their
// stored suppressions. Files still pending from an interrupted or failed
// earlier run are included, so a partial run never leaves files without
// records. With nothing pending Suppress returns immediately.
func (e *Engine) Suppress(ctx context.Context) error {
	defer func() { e.dirty = nil }()

	var fileIDs []int64
	if e.dirty != nil {
		pending, err := e.store.PendingFiles()
		if err != nil {
			return err
		}
		seen := make(map[int64]bool, len(e.dirty)+len(pending))
		for fid := range e.dirty {
			seen[fid] = true
			fileIDs = append(fileIDs, fid)
		}
		for _, fid := range pending {
			if !seen[fid] {
				fileIDs = append(fileIDs, fid)
			}
		}
		if len(fileIDs) == 0 {
			e.logger.Debug("no changed files, skipping emission")
			return nil
		}
	} else {
		files, err := e.store.Files()
		if err != nil {
			return fmt.Errorf("list files: %w", err)
		}
		for _, f := range files {
			fileIDs = append(fileIDs, f.ID)
		}
	}
	slices.Sort(fileIDs)

	idx, err := e.store.LoadIndex(fileIDs)
	if err != nil {
		return err
	}
	recs, err := emit(ctx, idx, e.workers)
	if err != nil {
		return fmt.Errorf("emit: %w", err)
	}

	pathToID := make(map[string]int64, len(fileIDs))
	for _, fid := range fileIDs {
		f, err := e.store.FileByID(fid)
		if err != nil {
			return fmt.Errorf("lookup file %d: %w", fid, err)
		}
		if f != nil {
			pathToID[f.Path] = f.ID
		}
	}

	rows := make([]*store.Suppression, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, &store.Suppression{
			CommentID:  r.CommentID,
			FileID:     pathToID[r.Comment.File],
			File:       r.Comment.File,
			Text:       r.Text,
			Annotation: r.Annotation,
			Kind:       string(r.Kind),
			StartLine:  r.Scope.StartLine,
			StartCol:   r.Scope.StartCol,
			EndLine:    r.Scope.EndLine,
			EndCol:     r.Scope.EndCol,
		})
	}
	if err := e.store.ReplaceSuppressions(fileIDs, rows); err != nil {
		return err
	}

	runID := uuid.New().String()
	if err := e.store.SetMetadata(MetaLastRunID, runID); err != nil {
		return err
	}
	if err := e.store.SetMetadata(MetaLastRunAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	e.logger.Info("suppressions emitted", "run_id", runID, "files", len(fileIDs), "records", len(rows))
	return nil
}
