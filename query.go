package hush

import (
	"context"
	"fmt"

	hushrt "github.com/jward/hush/internal/runtime"
	"github.com/jward/hush/internal/store"
)

// QueryBuilder provides read access to stored files, comments and
// suppression records.
type QueryBuilder struct {
	store   *store.Store
	runtime *hushrt.Runtime
}

// NewQueryBuilder creates a QueryBuilder over an already migrated Store.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s, runtime: hushrt.NewRuntime(nil)}
}

// Suppressions returns every stored record ordered by file and position.
func (q *QueryBuilder) Suppressions() ([]*Suppression, error) {
	return q.store.AllSuppressions()
}

// SuppressionsInFile returns the records of one file. An unknown file yields
// no records and no error.
func (q *QueryBuilder) SuppressionsInFile(path string) ([]*Suppression, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("suppressions in file: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.SuppressionsByFile(f.ID)
}

// SuppressionsAt returns the records of path whose scope covers line.
// Matching an annotation against a particular check is left to the caller.
func (q *QueryBuilder) SuppressionsAt(path string, line int) ([]*Suppression, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("suppressions at: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.SuppressionsCovering(f.ID, line)
}

// Files returns all indexed files ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	return q.store.Files()
}

// CommentsInFile returns the indexed line comments of path in source order.
func (q *QueryBuilder) CommentsInFile(path string) ([]*Comment, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("comments in file: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	return q.store.CommentsByFile(f.ID)
}

// Filter keeps the records for which the Risor expression expr is truthy.
// The expression sees the globals file, line, end_line, col, end_col, text,
// annotation and kind, for example:
//
//	annotation == "codeql" && line > 10
func (q *QueryBuilder) Filter(ctx context.Context, expr string, recs []*Suppression) ([]*Suppression, error) {
	pred, err := q.runtime.CompilePredicate(ctx, expr, filterNames)
	if err != nil {
		return nil, err
	}
	var out []*Suppression
	for _, r := range recs {
		ok, err := pred.Eval(ctx, filterGlobals(r))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// filterNames are the globals filterGlobals binds.
var filterNames = []string{"file", "line", "end_line", "col", "end_col", "text", "annotation", "kind"}

func filterGlobals(r *Suppression) map[string]any {
	return map[string]any{
		"file":       r.File,
		"line":       r.StartLine,
		"end_line":   r.EndLine,
		"col":        r.CommentCol,
		"end_col":    r.EndCol,
		"text":       r.Text,
		"annotation": r.Annotation,
		"kind":       r.Kind,
	}
}

// LastRun returns the id and RFC 3339 timestamp of the most recent Suppress.
// Both are empty before the first run.
func (q *QueryBuilder) LastRun() (id, at string, err error) {
	if id, err = q.store.GetMetadata(MetaLastRunID); err != nil {
		return "", "", err
	}
	if at, err = q.store.GetMetadata(MetaLastRunAt); err != nil {
		return "", "", err
	}
	return id, at, nil
}
