package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/hush/internal/directive"
)

var classifyCmd = &cobra.Command{
	Use:   "classify TEXT...",
	Short: "Classify comment texts without indexing",
	Long: `Run only the directive classifier over each argument. Pass the comment
text without its delimiter, e.g. hush classify ' codeql[py/x]' ' noqa: E501'.
Scope qualification needs source code and is not checked.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func classifyTexts(texts []string) []CLIClassification {
	out := make([]CLIClassification, 0, len(texts))
	for _, text := range texts {
		c := CLIClassification{Text: text}
		if d, ok := directive.Classify(text); ok {
			c.Matched = true
			c.Annotation = d.Annotation
			c.Kind = string(d.Kind)
		}
		out = append(out, c)
	}
	return out
}

func runClassify(cmd *cobra.Command, args []string) error {
	out := classifyTexts(args)
	total := len(out)
	return outputResult(CLIResult{
		Command:    "classify",
		Results:    out,
		TotalCount: &total,
	})
}
