package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jward/hush"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored suppression records over HTTP",
	Long: `Start a read-only JSON API over the index database:

  GET /health                          database status and last run
  GET /suppressions?file=F&line=N      records, optionally by file and line
                                       (relative F is taken from the repo root)
  GET /files                           indexed files`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(hush.NewQueryBuilder(s), findRepoRoot(cwd), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "Serving on %s\n", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newRouter builds the HTTP API over q. Relative file parameters are
// resolved against root.
func newRouter(q *hush.QueryBuilder, root string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		files, err := q.Files()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "health", err)
			return
		}
		recs, err := q.Suppressions()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "health", err)
			return
		}
		id, at, err := q.LastRun()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "health", err)
			return
		}
		writeJSON(w, http.StatusOK, CLIResult{
			Command: "health",
			Results: CLIHealth{
				Status:       "ok",
				Files:        len(files),
				Suppressions: len(recs),
				LastRunID:    id,
				LastRunAt:    at,
			},
		})
	})

	r.Get("/suppressions", func(w http.ResponseWriter, req *http.Request) {
		file := req.URL.Query().Get("file")
		if file != "" && !filepath.IsAbs(file) {
			file = filepath.Join(root, file)
		}
		lineStr := req.URL.Query().Get("line")

		var (
			recs []*hush.Suppression
			err  error
		)
		switch {
		case lineStr != "" && file == "":
			writeError(w, http.StatusBadRequest, "suppressions", errors.New("line requires file"))
			return
		case lineStr != "":
			line, convErr := strconv.Atoi(lineStr)
			if convErr != nil || line < 1 {
				writeError(w, http.StatusBadRequest, "suppressions",
					fmt.Errorf("invalid line %q: must be a positive integer", lineStr))
				return
			}
			recs, err = q.SuppressionsAt(file, line)
		case file != "":
			recs, err = q.SuppressionsInFile(file)
		default:
			recs, err = q.Suppressions()
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "suppressions", err)
			return
		}

		out := suppressionsToCLI(recs)
		total := len(out)
		writeJSON(w, http.StatusOK, CLIResult{Command: "suppressions", Results: out, TotalCount: &total})
	})

	r.Get("/files", func(w http.ResponseWriter, req *http.Request) {
		files, err := q.Files()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "files", err)
			return
		}
		out := make([]CLIFile, 0, len(files))
		for _, f := range files {
			out = append(out, CLIFile{ID: f.ID, Path: f.Path, Language: f.Language, LineCount: f.LineCount})
		}
		total := len(out)
		writeJSON(w, http.StatusOK, CLIResult{Command: "files", Results: out, TotalCount: &total})
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request", "method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "duration", time.Since(start))
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, result CLIResult) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(result)
}

func writeError(w http.ResponseWriter, status int, command string, err error) {
	writeJSON(w, status, CLIResult{Command: command, Error: err.Error()})
}
