// Package index holds the read-only Program Index consumed by suppression
// classification: per-file comments and the set of lines on which a
// code-structure node starts.
package index

import "sort"

// Location is a 1-based source span. EndCol is inclusive.
type Location struct {
	File      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Comment is a source comment with its delimiter stripped from Text.
type Comment struct {
	ID       int64
	Text     string
	Location Location
}

// CodeNode is a parsed program construct. Only its file and start line
// matter for suppression qualification.
type CodeNode struct {
	ID        int64
	Kind      string
	File      string
	StartLine int
	EndLine   int
}

// LineSet is a set of 1-based line numbers.
type LineSet map[int]struct{}

// Has reports whether line is in the set. A nil set contains nothing.
func (s LineSet) Has(line int) bool {
	_, ok := s[line]
	return ok
}

// Sorted returns the lines in ascending order.
func (s LineSet) Sorted() []int {
	lines := make([]int, 0, len(s))
	for l := range s {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}

// ProgramIndex is the read-only view of comments and code lines per file.
type ProgramIndex interface {
	Files() []string
	CommentsOf(file string) []Comment
	LinesWithCode(file string) LineSet
}

type fileEntry struct {
	comments []Comment
	lines    LineSet
}

// Index is an immutable in-memory ProgramIndex. Build one with a Builder.
// Safe for concurrent reads.
type Index struct {
	files map[string]*fileEntry
	order []string
}

// Compile-time check: *Index satisfies ProgramIndex.
var _ ProgramIndex = (*Index)(nil)

// Files returns the indexed file paths in sorted order.
func (x *Index) Files() []string {
	out := make([]string, len(x.order))
	copy(out, x.order)
	return out
}

// CommentsOf returns the comments of file ordered by position.
func (x *Index) CommentsOf(file string) []Comment {
	e, ok := x.files[file]
	if !ok {
		return nil
	}
	out := make([]Comment, len(e.comments))
	copy(out, e.comments)
	return out
}

// LinesWithCode returns the lines of file on which a code node starts.
// The returned set must not be modified.
func (x *Index) LinesWithCode(file string) LineSet {
	e, ok := x.files[file]
	if !ok {
		return nil
	}
	return e.lines
}

// Builder accumulates comments and code nodes. It is not safe for
// concurrent use.
type Builder struct {
	files map[string]*fileEntry
}

func NewBuilder() *Builder {
	return &Builder{files: make(map[string]*fileEntry)}
}

func (b *Builder) entry(file string) *fileEntry {
	e, ok := b.files[file]
	if !ok {
		e = &fileEntry{lines: make(LineSet)}
		b.files[file] = e
	}
	return e
}

// AddFile registers a file even if it has no comments or code.
func (b *Builder) AddFile(file string) {
	b.entry(file)
}

func (b *Builder) AddComment(c Comment) {
	e := b.entry(c.Location.File)
	e.comments = append(e.comments, c)
}

func (b *Builder) AddCodeNode(n CodeNode) {
	b.entry(n.File).lines[n.StartLine] = struct{}{}
}

// Build freezes the accumulated data. The Builder must not be used after.
func (b *Builder) Build() *Index {
	x := &Index{files: b.files}
	for file, e := range b.files {
		sort.SliceStable(e.comments, func(i, j int) bool {
			li, lj := e.comments[i].Location, e.comments[j].Location
			if li.StartLine != lj.StartLine {
				return li.StartLine < lj.StartLine
			}
			return li.StartCol < lj.StartCol
		})
		x.order = append(x.order, file)
	}
	sort.Strings(x.order)
	b.files = nil
	return x
}
