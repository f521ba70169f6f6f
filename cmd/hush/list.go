package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/hush"
)

var (
	flagFile  string
	flagLine  int
	flagWhere string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored suppression records",
	Long: `List the suppression records of the last index run.

--file restricts output to one file, --line to records whose scope covers
that 1-based line. --where keeps records for which a Risor expression is
truthy; it sees file, line, end_line, col, end_col, text, annotation and
kind, e.g. --where 'annotation != "codeql"'.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&flagFile, "file", "", "only records in this file")
	listCmd.Flags().IntVar(&flagLine, "line", 0, "only records whose scope covers this line (requires --file)")
	listCmd.Flags().StringVar(&flagWhere, "where", "", "Risor filter expression")
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

func init() {
	listCmd.AddCommand(filesCmd)
}

// resolveFilePath converts a file argument to an absolute path.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

func runList(cmd *cobra.Command, args []string) error {
	if flagLine != 0 && flagFile == "" {
		return outputError("list", fmt.Errorf("--line requires --file"))
	}
	if flagLine < 0 {
		return outputError("list", fmt.Errorf("invalid line %d: must be positive", flagLine))
	}

	s, err := openStore()
	if err != nil {
		return outputError("list", err)
	}
	defer s.Close()

	qb := hush.NewQueryBuilder(s)
	var recs []*hush.Suppression
	switch {
	case flagFile != "":
		file, err := resolveFilePath(flagFile)
		if err != nil {
			return outputError("list", err)
		}
		if flagLine > 0 {
			recs, err = qb.SuppressionsAt(file, flagLine)
		} else {
			recs, err = qb.SuppressionsInFile(file)
		}
		if err != nil {
			return outputError("list", err)
		}
	default:
		if recs, err = qb.Suppressions(); err != nil {
			return outputError("list", err)
		}
	}

	if flagWhere != "" {
		if recs, err = qb.Filter(cmd.Context(), flagWhere, recs); err != nil {
			return outputError("list", err)
		}
	}

	out := suppressionsToCLI(recs)
	total := len(out)
	return outputResult(CLIResult{
		Command:    "list",
		Results:    out,
		TotalCount: &total,
	})
}

func runFiles(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("files", err)
	}
	defer s.Close()

	files, err := hush.NewQueryBuilder(s).Files()
	if err != nil {
		return outputError("files", err)
	}
	out := make([]CLIFile, 0, len(files))
	for _, f := range files {
		out = append(out, CLIFile{ID: f.ID, Path: f.Path, Language: f.Language, LineCount: f.LineCount})
	}
	total := len(out)
	return outputResult(CLIResult{
		Command:    "files",
		Results:    out,
		TotalCount: &total,
	})
}
