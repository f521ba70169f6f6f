package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/hush/internal/store"
)

const pythonTestSource = `import os  # noqa
x = 1

# codeql
def f():
    # noqa
    return os.path  # codeql[py/x]
`

// extractSource runs extraction into a BatchedStore and returns it.
func extractSource(t *testing.T, lang, src string) (*store.BatchedStore, ExtractStats) {
	t.Helper()
	batch := store.NewBatchedStore()
	rt := NewRuntime(batch)
	stats, err := rt.Extract(context.Background(), 7, lang, []byte(src))
	require.NoError(t, err)
	return batch, stats
}

func codeLines(batch *store.BatchedStore) map[int]bool {
	lines := make(map[int]bool)
	for _, n := range batch.CodeNodes {
		lines[n.StartLine] = true
	}
	return lines
}

// --- Language detection tests ---

func TestLanguageForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"script.py", "python", true},
		{"stubs.pyi", "python", true},
		{"main.go", "go", true},
		{"app.ts", "typescript", true},
		{"app.JSX", "javascript", true},
		{"lib.rs", "rust", true},
		{"main.c", "c", true},
		{"main.cc", "cpp", true},
		{"Main.java", "java", true},
		{"index.php", "php", true},
		{"app.rb", "ruby", true},
		{"README.md", "", false},
		{"Makefile", "", false},
	}
	for _, tt := range tests {
		got, ok := LanguageForFile(tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestParserForLanguage_AllLanguagesHaveGrammars(t *testing.T) {
	t.Parallel()
	for _, lang := range extToLanguage {
		_, ok := ParserForLanguage(lang)
		assert.True(t, ok, "missing grammar for %s", lang)
		_, ok = lineCommentPrefixes[lang]
		assert.True(t, ok, "missing comment prefixes for %s", lang)
	}
	assert.Len(t, Languages(), 10)
}

func TestStripLineComment(t *testing.T) {
	t.Parallel()

	text, ok := stripLineComment("python", "# noqa")
	require.True(t, ok)
	assert.Equal(t, " noqa", text)

	text, ok = stripLineComment("php", "# codeql")
	require.True(t, ok)
	assert.Equal(t, " codeql", text)

	text, ok = stripLineComment("go", "// codeql")
	require.True(t, ok)
	assert.Equal(t, " codeql", text)

	_, ok = stripLineComment("go", "/* codeql */")
	assert.False(t, ok)
}

// --- Extraction tests ---

func TestExtract_PythonComments(t *testing.T) {
	t.Parallel()
	batch, stats := extractSource(t, "python", pythonTestSource)

	require.Len(t, batch.Comments, 4)
	assert.Equal(t, 4, stats.Comments)

	first := batch.Comments[0]
	assert.Equal(t, int64(7), first.FileID)
	assert.Equal(t, " noqa", first.Text)
	assert.Equal(t, 1, first.StartLine)
	assert.Equal(t, 12, first.StartCol)
	assert.Equal(t, 1, first.EndLine)
	assert.Equal(t, 17, first.EndCol)

	texts := make([]string, 0, len(batch.Comments))
	for _, c := range batch.Comments {
		texts = append(texts, c.Text)
	}
	assert.Equal(t, []string{" noqa", " codeql", " noqa", " codeql[py/x]"}, texts)

	last := batch.Comments[3]
	assert.Equal(t, 7, last.StartLine)
	assert.Equal(t, 21, last.StartCol)
	assert.Equal(t, 34, last.EndCol)
}

func TestExtract_PythonCodeLines(t *testing.T) {
	t.Parallel()
	batch, stats := extractSource(t, "python", pythonTestSource)

	assert.Equal(t, len(batch.CodeNodes), stats.CodeNodes)
	lines := codeLines(batch)
	assert.True(t, lines[1], "import statement")
	assert.True(t, lines[2], "assignment")
	assert.True(t, lines[5], "function definition")
	assert.True(t, lines[7], "return statement")
	assert.False(t, lines[3], "blank line")
	assert.False(t, lines[4], "comment-only line at module level")
	assert.False(t, lines[6], "comment-only line leading a block")

	for _, n := range batch.CodeNodes {
		assert.NotContains(t, n.Kind, "comment")
		assert.NotEqual(t, "module", n.Kind, "root node is not a code node")
	}
}

func TestExtract_UnicodeColumnsCountCharacters(t *testing.T) {
	t.Parallel()
	batch, _ := extractSource(t, "python", "s = 'é'  # noqa\n")

	require.Len(t, batch.Comments, 1)
	c := batch.Comments[0]
	assert.Equal(t, 10, c.StartCol)
	assert.Equal(t, 15, c.EndCol)
}

func TestExtract_GoSkipsBlockComments(t *testing.T) {
	t.Parallel()
	src := `package main

/* codeql */
func main() { // codeql
}
`
	batch, _ := extractSource(t, "go", src)

	require.Len(t, batch.Comments, 1)
	assert.Equal(t, " codeql", batch.Comments[0].Text)
	assert.Equal(t, 4, batch.Comments[0].StartLine)
	assert.True(t, codeLines(batch)[4])
	assert.False(t, codeLines(batch)[3])
}

func TestExtract_UnsupportedLanguage(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(store.NewBatchedStore())
	_, err := rt.Extract(context.Background(), 1, "cobol", []byte("x"))
	require.Error(t, err)
}

func TestExtract_NoDataStore(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil)
	_, err := rt.Extract(context.Background(), 1, "python", []byte("x = 1"))
	require.Error(t, err)
}

func TestExtract_EmptySource(t *testing.T) {
	t.Parallel()
	batch, stats := extractSource(t, "python", "")
	assert.Zero(t, stats.Comments)
	assert.Empty(t, batch.Comments)
}

// --- Line table tests ---

func TestLineTable(t *testing.T) {
	t.Parallel()
	src := []byte("ab\ncd\n")
	lt := newLineTable(src)
	assert.Equal(t, lineTable{0, 3, 6}, lt)

	line, col := lt.position(src, 3)
	assert.Equal(t, 2, line)
	assert.Equal(t, 1, col)

	line, col = lt.endPosition(src, 5)
	assert.Equal(t, 2, line)
	assert.Equal(t, 2, col)
}

// --- Filter tests ---

func TestEvalPredicate(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil)
	ctx := context.Background()
	globals := map[string]any{
		"annotation": "codeql",
		"line":       3,
		"file":       "/src/app.py",
	}

	ok, err := rt.EvalPredicate(ctx, `annotation == "codeql"`, globals)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = rt.EvalPredicate(ctx, `line > 5`, globals)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rt.EvalPredicate(ctx, `annotation == "codeql" && line == 3`, globals)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalPredicate_SyntaxError(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil)
	_, err := rt.EvalPredicate(context.Background(), `annotation ==`, map[string]any{"annotation": "x"})
	require.Error(t, err)
}

func TestCompilePredicate_ReusedAcrossRecords(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil)
	ctx := context.Background()

	pred, err := rt.CompilePredicate(ctx, `line > 2 && strings.has_prefix(annotation, "lgtm")`, []string{"line", "annotation"})
	require.NoError(t, err)

	tests := []struct {
		line       int
		annotation string
		want       bool
	}{
		{1, "lgtm", false},
		{3, "lgtm[py/x]", true},
		{4, "codeql", false},
		{9, "lgtm", true},
	}
	for _, tt := range tests {
		ok, err := pred.Eval(ctx, map[string]any{"line": tt.line, "annotation": tt.annotation})
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "line=%d annotation=%q", tt.line, tt.annotation)
	}
}

func TestCompilePredicate_Errors(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil)
	ctx := context.Background()

	_, err := rt.CompilePredicate(ctx, `line >`, []string{"line"})
	require.Error(t, err)

	_, err = rt.CompilePredicate(ctx, `nosuchname == 1`, []string{"line"})
	require.Error(t, err, "unknown globals fail at compile time")
}
