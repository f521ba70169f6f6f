// Package scope computes the source range a suppression comment covers.
package scope

import "github.com/jward/hush/internal/index"

// Scope is the covered range of a suppression comment. StartCol is always 1
// so that code preceding the comment on its first line is covered.
type Scope struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Resolve returns the scope of c when c starts on a line that also holds the
// start of a code node in the same file. Comments on otherwise blank lines
// never qualify.
//
// Resolve does not look at the comment text; classification is a separate,
// independent test.
func Resolve(c index.Comment, idx index.ProgramIndex) (Scope, bool) {
	loc := c.Location
	if !idx.LinesWithCode(loc.File).Has(loc.StartLine) {
		return Scope{}, false
	}
	return Scope{
		File:      loc.File,
		StartLine: loc.StartLine,
		StartCol:  1,
		EndLine:   loc.EndLine,
		EndCol:    loc.EndCol,
	}, true
}

// Covers reports whether line falls inside the scope's line span.
func (s Scope) Covers(line int) bool {
	return s.StartLine <= line && line <= s.EndLine
}
