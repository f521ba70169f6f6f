package hush

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/viant/afs"

	hushrt "github.com/jward/hush/internal/runtime"
	"github.com/jward/hush/internal/store"
)

// Engine orchestrates the hush pipeline: file discovery, change detection,
// extraction into the Program Index tables, suppression emission and query
// access.
type Engine struct {
	store     *store.Store
	runtime   *hushrt.Runtime
	languages map[string]bool // nil means all languages
	fs        afs.Service
	logger    *slog.Logger

	// dirty accumulates file IDs whose index rows changed since the last
	// Suppress. nil means "emit everything" (first run or full reindex).
	dirty map[int64]bool

	// useParallel enables the parallel extraction pipeline.
	useParallel bool
	workers     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLanguages restricts which languages the Engine will process.
func WithLanguages(languages ...string) Option {
	return func(e *Engine) {
		e.languages = make(map[string]bool, len(languages))
		for _, lang := range languages {
			e.languages[lang] = true
		}
	}
}

// WithParallel controls parallel extraction. When true (default), IndexFiles
// uses a worker pool for parsing, with a single writer committing batches to
// SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers bounds the number of extraction and emission workers. Values
// below 1 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("hush: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("hush: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		fs:          afs.New(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}
	e.runtime = hushrt.NewRuntime(s, hushrt.WithRuntimeLogger(e.logger))
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store, runtime: e.runtime}
}

// markDirty records fileID for the next Suppress.
func (e *Engine) markDirty(fileID int64) {
	if e.dirty == nil {
		e.dirty = make(map[int64]bool)
	}
	e.dirty[fileID] = true
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// uses a worker pool for concurrent extraction with batched SQLite writes.
// Otherwise falls back to the serial path.
//
// For each file:
// 1. Detect language from extension
// 2. Skip unsupported or filtered-out languages
// 3. Skip unchanged files (same content hash)
// 4. Delete stale data, insert the file record
// 5. Extract comments and code nodes
// 6. Mark the file dirty for the next Suppress
//
// Errors on individual files are collected; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	// Non-nil empty dirty set lets Suppress tell "no changes" from "first run".
	if e.dirty == nil {
		e.dirty = make(map[int64]bool)
	}
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(ctx, path); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(ctx context.Context, path string) error {
	item, skip, err := e.prepareFile(ctx, path)
	if err != nil || skip {
		return err
	}
	stats, err := e.runtime.Extract(ctx, item.fileID, item.lang, item.src)
	if err != nil {
		return fmt.Errorf("extract: %w", e.discard(item, err))
	}
	e.markDirty(item.fileID)
	e.logger.Debug("indexed", "path", path, "comments", stats.Comments, "code_nodes", stats.CodeNodes)
	return nil
}

// discard drops the file record of a failed extraction so the next run
// retries it instead of treating the file as unchanged.
func (e *Engine) discard(item workItem, cause error) error {
	if err := e.store.DeleteFile(item.fileID); err != nil {
		e.logger.Warn("discard failed file", "path", item.path, "err", err)
	}
	return cause
}

// readFile loads path through the afs storage abstraction.
func (e *Engine) readFile(ctx context.Context, path string) ([]byte, error) {
	content, err := e.fs.DownloadWithURL(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return content, nil
}

// prepareFile does the serial part of indexing one file: hash check, cleanup
// and file record. skip=true means the file is unchanged or unsupported.
func (e *Engine) prepareFile(ctx context.Context, path string) (workItem, bool, error) {
	lang, ok := hushrt.LanguageForFile(path)
	if !ok {
		return workItem{}, true, nil
	}
	if e.languages != nil && !e.languages[lang] {
		return workItem{}, true, nil
	}

	content, err := e.readFile(ctx, path)
	if err != nil {
		return workItem{}, false, err
	}
	hash, err := store.ContentHash(content)
	if err != nil {
		return workItem{}, false, err
	}

	existing, err := e.store.FileByPath(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return workItem{}, true, nil // unchanged
	}
	if existing != nil {
		if err := e.store.DeleteFile(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	fileID, err := e.store.InsertFile(&store.File{
		Path:        path,
		Language:    lang,
		Hash:        hash,
		LineCount:   bytes.Count(content, []byte{'\n'}) + 1,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}
	return workItem{path: path, lang: lang, fileID: fileID, src: content}, false, nil
}

// skipDirs lists directories excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// IndexDirectory walks root and indexes all files with supported extensions.
// If root is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to filesystem walk (skipping hidden dirs, node_modules, vendor,
// __pycache__) if git is unavailable.
//
// Files under root that were indexed before but no longer exist are removed
// together with their records.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := e.gitListFiles(root)
	if err != nil {
		e.logger.Debug("git ls-files unavailable, walking directory", "root", root, "err", err)
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	if err := e.pruneMissing(root, paths); err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// pruneMissing deletes stored files under root that are not in present.
func (e *Engine) pruneMissing(root string, present []string) error {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}
	prefix := filepath.Clean(root) + string(filepath.Separator)
	for _, f := range files {
		if keep[f.Path] || !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if err := e.store.DeleteFile(f.ID); err != nil {
			return fmt.Errorf("prune %s: %w", f.Path, err)
		}
		e.logger.Debug("pruned", "path", f.Path)
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported languages.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := hushrt.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := hushrt.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
