package runtime

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/hush/internal/store"
)

// ExtractStats counts the rows written for one file.
type ExtractStats struct {
	Comments  int
	CodeNodes int
}

// Extract parses src as lang and writes its line comments and code nodes
// for fileID to the Runtime's DataStore.
//
// Positions are 1-based; columns count characters and end columns are
// inclusive. A code node's start line is the line of its first non-comment
// token.
func (r *Runtime) Extract(ctx context.Context, fileID int64, lang string, src []byte) (ExtractStats, error) {
	if r.store == nil {
		return ExtractStats{}, fmt.Errorf("runtime: extract: no data store")
	}
	grammar, ok := ParserForLanguage(lang)
	if !ok {
		return ExtractStats{}, fmt.Errorf("runtime: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return ExtractStats{}, fmt.Errorf("runtime: tree-sitter parse: %w", err)
	}
	defer tree.Close()

	w := &walker{
		ds:     r.store,
		fileID: fileID,
		lang:   lang,
		src:    src,
		lines:  newLineTable(src),
	}
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		w.visit(root.Child(i))
		if w.err != nil {
			return w.stats, w.err
		}
	}

	r.logger.Debug("extracted", "file_id", fileID, "language", lang,
		"comments", w.stats.Comments, "code_nodes", w.stats.CodeNodes)
	return w.stats, nil
}

type walker struct {
	ds     store.DataStore
	fileID int64
	lang   string
	src    []byte
	lines  lineTable
	stats  ExtractStats
	err    error
}

func isComment(n *sitter.Node) bool {
	return strings.Contains(n.Type(), "comment")
}

func (w *walker) visit(n *sitter.Node) {
	if w.err != nil {
		return
	}
	if isComment(n) {
		w.err = w.comment(n)
		return
	}
	if n.IsNamed() {
		if w.err = w.codeNode(n); w.err != nil {
			return
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		w.visit(n.Child(i))
	}
}

func (w *walker) comment(n *sitter.Node) error {
	start, err := safecast.Conv[int](n.StartByte())
	if err != nil {
		return fmt.Errorf("runtime: comment offset: %w", err)
	}
	end, err := safecast.Conv[int](n.EndByte())
	if err != nil {
		return fmt.Errorf("runtime: comment offset: %w", err)
	}

	raw := strings.TrimRight(string(w.src[start:end]), "\r\n")
	text, ok := stripLineComment(w.lang, raw)
	if !ok {
		return nil
	}
	startLine, startCol := w.lines.position(w.src, start)
	endLine, endCol := w.lines.endPosition(w.src, start+len(raw))
	c := &store.Comment{
		FileID:    w.fileID,
		Text:      text,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   endLine,
		EndCol:    endCol,
	}
	if _, err := w.ds.InsertComment(c); err != nil {
		return fmt.Errorf("runtime: insert comment at line %d: %w", startLine, err)
	}
	w.stats.Comments++
	return nil
}

func (w *walker) codeNode(n *sitter.Node) error {
	startRow, err := safecast.Conv[int](firstCodeRow(n))
	if err != nil {
		return fmt.Errorf("runtime: node row: %w", err)
	}
	endRow, err := safecast.Conv[int](n.EndPoint().Row)
	if err != nil {
		return fmt.Errorf("runtime: node row: %w", err)
	}
	node := &store.CodeNode{
		FileID:    w.fileID,
		Kind:      n.Type(),
		StartLine: startRow + 1,
		EndLine:   endRow + 1,
	}
	if _, err := w.ds.InsertCodeNode(node); err != nil {
		return fmt.Errorf("runtime: insert code node %q: %w", node.Kind, err)
	}
	w.stats.CodeNodes++
	return nil
}

// firstCodeRow returns the row of n's first non-comment token. A node whose
// children are all comments keeps its own start row.
func firstCodeRow(n *sitter.Node) uint32 {
	for {
		var next *sitter.Node
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); !isComment(c) {
				next = c
				break
			}
		}
		if next == nil {
			return n.StartPoint().Row
		}
		n = next
	}
}

// lineTable holds the byte offset at which each line starts.
type lineTable []int

func newLineTable(src []byte) lineTable {
	t := lineTable{0}
	for i, b := range src {
		if b == '\n' {
			t = append(t, i+1)
		}
	}
	return t
}

// position converts a byte offset into a 1-based line and a 1-based
// character column.
func (t lineTable) position(src []byte, offset int) (line, col int) {
	i := t.lineIndex(offset)
	return i + 1, utf8.RuneCount(src[t[i]:offset]) + 1
}

// endPosition returns the 1-based line and inclusive character column of
// the last character before the exclusive byte offset end.
func (t lineTable) endPosition(src []byte, end int) (line, col int) {
	last := end - 1
	if last < 0 {
		last = 0
	}
	i := t.lineIndex(last)
	return i + 1, utf8.RuneCount(src[t[i]:end])
}

func (t lineTable) lineIndex(offset int) int {
	return sort.Search(len(t), func(i int) bool { return t[i] > offset }) - 1
}
