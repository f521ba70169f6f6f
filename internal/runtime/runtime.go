// Package runtime is the front end that turns source files into Program
// Index rows. It parses with tree-sitter, records line comments and code
// nodes through a store.DataStore, and evaluates Risor filter expressions
// over emitted records.
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/parser"

	"github.com/jward/hush/internal/store"
)

// Runtime owns extraction into a DataStore and Risor evaluation.
type Runtime struct {
	store  store.DataStore
	logger *slog.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeLogger sets the logger used for per-file extraction events.
func WithRuntimeLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime writing to ds. ds may be nil when the
// Runtime is only used for filter evaluation.
func NewRuntime(ds store.DataStore, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:  ds,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Predicate is a Risor filter expression compiled once and evaluated per
// record.
type Predicate struct {
	expr string
	code *compiler.Code
}

// CompilePredicate parses and compiles expr. names lists the globals the
// expression may reference besides Risor's builtins; Eval must bind them.
func (r *Runtime) CompilePredicate(ctx context.Context, expr string, names []string) (*Predicate, error) {
	opts := make([]risor.Option, 0, len(names))
	for _, name := range names {
		opts = append(opts, risor.WithGlobal(name, nil))
	}
	cfg := risor.NewConfig(opts...)

	prog, err := parser.Parse(ctx, expr)
	if err != nil {
		return nil, fmt.Errorf("runtime: filter %q: %w", expr, err)
	}
	code, err := compiler.Compile(prog, cfg.CompilerOpts()...)
	if err != nil {
		return nil, fmt.Errorf("runtime: filter %q: %w", expr, err)
	}
	return &Predicate{expr: expr, code: code}, nil
}

// Eval runs the compiled expression with globals bound and reports whether
// the result is truthy.
func (p *Predicate) Eval(ctx context.Context, globals map[string]any) (bool, error) {
	opts := make([]risor.Option, 0, len(globals))
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	result, err := risor.EvalCode(ctx, p.code, opts...)
	if err != nil {
		return false, fmt.Errorf("runtime: filter %q: %w", p.expr, err)
	}
	return result.IsTruthy(), nil
}

// EvalPredicate compiles expr and evaluates it once with globals bound.
func (r *Runtime) EvalPredicate(ctx context.Context, expr string, globals map[string]any) (bool, error) {
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	p, err := r.CompilePredicate(ctx, expr, names)
	if err != nil {
		return false, err
	}
	return p.Eval(ctx, globals)
}
