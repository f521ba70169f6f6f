package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/jward/hush"
)

var (
	annotationColor = color.New(color.FgYellow)
	missColor       = color.New(color.FgHiBlack)
)

// suppressionToCLI converts a stored record to its serializable form.
func suppressionToCLI(s *hush.Suppression) CLISuppression {
	return CLISuppression{
		File:       s.File,
		Line:       s.StartLine,
		Col:        s.CommentCol,
		Text:       s.Text,
		Annotation: s.Annotation,
		Kind:       s.Kind,
		Scope: CLIScope{
			StartLine: s.StartLine,
			StartCol:  s.StartCol,
			EndLine:   s.EndLine,
			EndCol:    s.EndCol,
		},
	}
}

func suppressionsToCLI(recs []*hush.Suppression) []CLISuppression {
	out := make([]CLISuppression, 0, len(recs))
	for _, r := range recs {
		out = append(out, suppressionToCLI(r))
	}
	return out
}

// formatSuppressionsText formats suppressions as aligned columns.
func formatSuppressionsText(w io.Writer, sups []CLISuppression) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOCATION\tANNOTATION\tSCOPE\tTEXT")
	for _, s := range sups {
		fmt.Fprintf(tw, "%s:%d:%d\t%s\t%d:%d-%d:%d\t%s\n",
			s.File, s.Line, s.Col,
			annotationColor.Sprint(s.Annotation),
			s.Scope.StartLine, s.Scope.StartCol, s.Scope.EndLine, s.Scope.EndCol,
			strings.TrimSpace(s.Text))
	}
	tw.Flush()
}

// formatClassificationsText formats classifier results as aligned columns.
func formatClassificationsText(w io.Writer, cls []CLIClassification) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TEXT\tANNOTATION\tKIND")
	for _, c := range cls {
		if !c.Matched {
			fmt.Fprintf(tw, "%q\t%s\t\n", c.Text, missColor.Sprint("-"))
			continue
		}
		fmt.Fprintf(tw, "%q\t%s\t%s\n", c.Text, annotationColor.Sprint(c.Annotation), c.Kind)
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATH\tLANGUAGE\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", f.ID, f.Path, f.Language, f.LineCount)
	}
	tw.Flush()
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLISuppression:
		formatSuppressionsText(w, v)
	case []CLIClassification:
		formatClassificationsText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// writeResult encodes result to w in format.
func writeResult(w io.Writer, format string, result CLIResult) error {
	switch format {
	case "text":
		return outputResultText(w, result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	case "msgpack":
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(result)
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
}

// outputResult writes a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	return writeResult(os.Stdout, cfg.Format, result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. Structured formats carry the error in a
// CLIResult envelope on stdout. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if cfg.Format == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	_ = writeResult(os.Stdout, cfg.Format, CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml", "msgpack"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}
