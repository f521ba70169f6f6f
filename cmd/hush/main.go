package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/hush"
	"github.com/jward/hush/internal/config"
	"github.com/jward/hush/internal/store"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// cfg is the resolved configuration, loaded before every command runs.
var cfg = config.Default()

// logger is the structured logger handed to the Engine.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "hush",
	Short:         "Index alert-suppression comments in source code",
	Long:          "Hush finds codeql and noqa suppression comments with tree-sitter, normalizes their annotations, and stores the source range each one covers in a SQLite database.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting cwd: %w", err)
		}
		loaded, err := config.Load(flagConfig, findRepoRoot(cwd), cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		logger = newLogger(os.Stderr, cfg.Verbose)
		return validateFormat(cfg.Format)
	},
	// No Run: prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .hush/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text|yaml|msgpack")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .hush.yaml at the repo root)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the stderr logger. verbose selects debug level; otherwise
// only warnings and errors are shown.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

var flagForce bool

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a repository and emit suppression records",
	Long:  "Parses source files with tree-sitter, records line comments and code lines, then classifies every comment and stores the suppressions it finds.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringSlice("languages", nil, "comma-separated language filter (e.g. python,go)")
	indexCmd.Flags().Bool("parallel", true, "extract files with a worker pool")
	indexCmd.Flags().Int("workers", 0, "worker count (default: number of CPUs)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}

	repoRoot := findRepoRoot(targetDir)
	dbPath := resolveDBPath(repoRoot)

	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dbDir, err)
	}

	// Handle --force: delete the DB file entirely.
	if flagForce {
		for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing database for --force: %w", err)
			}
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	opts := []hush.Option{
		hush.WithParallel(cfg.Parallel),
		hush.WithWorkers(cfg.Workers),
		hush.WithLogger(logger),
	}
	if len(cfg.Languages) > 0 {
		opts = append(opts, hush.WithLanguages(cfg.Languages...))
	}

	engine, err := hush.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Per-file failures don't stop emission for the files that indexed.
	extractStart := time.Now()
	indexErr := engine.IndexDirectory(ctx, targetDir)
	extractDuration := time.Since(extractStart)
	if indexErr != nil && ctx.Err() != nil {
		return fmt.Errorf("indexing: %w", indexErr)
	}

	emitStart := time.Now()
	if err := engine.Suppress(ctx); err != nil {
		return fmt.Errorf("emitting suppressions: %w", err)
	}
	emitDuration := time.Since(emitStart)

	count, err := engine.Store().CountSuppressions()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (extract: %s, emit: %s)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		extractDuration.Round(time.Millisecond),
		emitDuration.Round(time.Millisecond),
	)
	fmt.Fprintf(os.Stderr, "Suppressions: %d\n", count)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	if indexErr != nil {
		return fmt.Errorf("indexing: %w", indexErr)
	}
	return nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from --db (or config) or the
// default under repoRoot.
func resolveDBPath(repoRoot string) string {
	if cfg.DB != "" {
		if filepath.IsAbs(cfg.DB) {
			return cfg.DB
		}
		return filepath.Join(repoRoot, cfg.DB)
	}
	return filepath.Join(repoRoot, ".hush", "index.db")
}

// openStore opens the Store for the repository containing the cwd.
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'hush index' first)", dbPath)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
