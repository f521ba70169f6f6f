package hush

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const querySource = `import os  # noqa
x = 1  # codeql[py/unused-local-variable]
y = 2  # noqa: E501


def f():  # codeql
    return os.path
`

// newIndexedEngine indexes querySource and runs Suppress.
func newIndexedEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "app.py", querySource)
	ctx := context.Background()
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	require.NoError(t, e.Suppress(ctx))
	return e, path
}

func TestSuppressions_All(t *testing.T) {
	e, path := newIndexedEngine(t)

	recs, err := e.Query().Suppressions()
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, path, recs[0].File)
	assert.Equal(t, "codeql", recs[0].Annotation)
	assert.Equal(t, "NoqaBare", recs[0].Kind)
	assert.Equal(t, " noqa", recs[0].Text)
	assert.Equal(t, 1, recs[0].StartLine)
	assert.Equal(t, 1, recs[0].StartCol)
	assert.Equal(t, 12, recs[0].CommentCol)
	assert.Equal(t, 17, recs[0].EndCol)

	assert.Equal(t, "lgtm[py/unused-local-variable]", recs[1].Annotation)
	assert.Equal(t, "BracketedOrBareCodeQL", recs[1].Kind)
	assert.Equal(t, 2, recs[1].StartLine)

	assert.Equal(t, "lgtm", recs[2].Annotation)
	assert.Equal(t, 6, recs[2].StartLine)
}

func TestSuppressionsInFile(t *testing.T) {
	e, path := newIndexedEngine(t)
	q := e.Query()

	recs, err := q.SuppressionsInFile(path)
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	recs, err = q.SuppressionsInFile("/no/such/file.py")
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestSuppressionsAt(t *testing.T) {
	e, path := newIndexedEngine(t)
	q := e.Query()

	recs, err := q.SuppressionsAt(path, 2)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "lgtm[py/unused-local-variable]", recs[0].Annotation)

	recs, err = q.SuppressionsAt(path, 3)
	require.NoError(t, err)
	assert.Empty(t, recs, "noqa with a colon is not a directive")

	recs, err = q.SuppressionsAt(path, 7)
	require.NoError(t, err)
	assert.Empty(t, recs, "a scope covers only the comment's lines")

	recs, err = q.SuppressionsAt("/no/such/file.py", 1)
	require.NoError(t, err)
	assert.Nil(t, recs)
}

func TestCommentsInFile(t *testing.T) {
	e, path := newIndexedEngine(t)

	comments, err := e.Query().CommentsInFile(path)
	require.NoError(t, err)
	require.Len(t, comments, 4)
	assert.Equal(t, " noqa: E501", comments[2].Text)

	comments, err = e.Query().CommentsInFile("/no/such/file.py")
	require.NoError(t, err)
	assert.Nil(t, comments)
}

func TestFilter(t *testing.T) {
	e, _ := newIndexedEngine(t)
	q := e.Query()
	ctx := context.Background()

	all, err := q.Suppressions()
	require.NoError(t, err)

	got, err := q.Filter(ctx, `annotation == "codeql"`, all)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].StartLine)

	got, err = q.Filter(ctx, `kind == "BracketedOrBareCodeQL" && line > 1`, all)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = q.Filter(ctx, `col > 100`, all)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = q.Filter(ctx, `line >`, all)
	require.Error(t, err)
}

func TestFilter_InvalidExpressionWithoutRecords(t *testing.T) {
	e := newTestEngine(t)
	q := e.Query()

	_, err := q.Filter(context.Background(), `line >`, nil)
	require.Error(t, err)

	got, err := q.Filter(context.Background(), `line > 0`, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLastRun_BeforeSuppress(t *testing.T) {
	e := newTestEngine(t)
	id, at, err := e.Query().LastRun()
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, at)
}
