package main

// CLIResult is the top-level envelope for all commands that print results.
type CLIResult struct {
	Command    string `json:"command" yaml:"command"`
	Results    any    `json:"results" yaml:"results"`
	TotalCount *int   `json:"total_count,omitempty" yaml:"total_count,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CLIScope is the source range a suppression covers.
type CLIScope struct {
	StartLine int `json:"start_line" yaml:"start_line"`
	StartCol  int `json:"start_col" yaml:"start_col"`
	EndLine   int `json:"end_line" yaml:"end_line"`
	EndCol    int `json:"end_col" yaml:"end_col"`
}

// CLISuppression is a serializable suppression record. Line and Col give
// the comment's own start; its end matches the scope's end.
type CLISuppression struct {
	File       string   `json:"file" yaml:"file"`
	Line       int      `json:"line" yaml:"line"`
	Col        int      `json:"col" yaml:"col"`
	Text       string   `json:"text" yaml:"text"`
	Annotation string   `json:"annotation" yaml:"annotation"`
	Kind       string   `json:"kind" yaml:"kind"`
	Scope      CLIScope `json:"scope" yaml:"scope"`
}

// CLIClassification reports what the classifier made of one comment text.
type CLIClassification struct {
	Text       string `json:"text" yaml:"text"`
	Matched    bool   `json:"matched" yaml:"matched"`
	Annotation string `json:"annotation,omitempty" yaml:"annotation,omitempty"`
	Kind       string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// CLIFile is a serializable file representation.
type CLIFile struct {
	ID        int64  `json:"id" yaml:"id"`
	Path      string `json:"path" yaml:"path"`
	Language  string `json:"language" yaml:"language"`
	LineCount int    `json:"line_count" yaml:"line_count"`
}

// CLIHealth is the body of GET /health.
type CLIHealth struct {
	Status       string `json:"status" yaml:"status"`
	Files        int    `json:"files" yaml:"files"`
	Suppressions int    `json:"suppressions" yaml:"suppressions"`
	LastRunID    string `json:"last_run_id,omitempty" yaml:"last_run_id,omitempty"`
	LastRunAt    string `json:"last_run_at,omitempty" yaml:"last_run_at,omitempty"`
}
