package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		want   Directive
		wantOk bool
	}{
		{
			name:   "bracketed rule",
			text:   " codeql[py/unused-import]",
			want:   Directive{Annotation: "lgtm[py/unused-import]", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bracketed mixed case",
			text:   " CodeQL[R1]",
			want:   Directive{Annotation: "lgtm[R1]", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bracketed after prose",
			text:   " this is fine, codeql[py/a,py/b] see ticket",
			want:   Directive{Annotation: "lgtm[py/a,py/b]", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bracketed whitespace before bracket",
			text:   " codeql [py/x]",
			want:   Directive{Annotation: "lgtm [py/x]", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bracketed empty payload",
			text:   "codeql[]",
			want:   Directive{Annotation: "lgtm[]", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "first bracketed occurrence wins",
			text:   " codeql[a] codeql[b]",
			want:   Directive{Annotation: "lgtm[a]", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bracketed needs word boundary",
			text:   " mycodeql[x]",
			wantOk: false,
		},
		{
			name:   "bare exact",
			text:   "codeql",
			want:   Directive{Annotation: "lgtm", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bare leading space",
			text:   " codeql",
			want:   Directive{Annotation: "lgtm", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bare upper case",
			text:   " CODEQL",
			want:   Directive{Annotation: "lgtm", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bare followed by prose",
			text:   " codeql because the input is trusted",
			want:   Directive{Annotation: "lgtm", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bare after semicolon",
			text:   " pylint: disable=foo; codeql",
			want:   Directive{Annotation: "lgtm", Kind: BracketedOrBareCodeQL},
			wantOk: true,
		},
		{
			name:   "bare in middle of prose",
			text:   " we trust codeql here",
			wantOk: false,
		},
		{
			name:   "bare followed by identifier char",
			text:   " codeqlish",
			wantOk: false,
		},
		{
			name:   "bare followed by underscore",
			text:   " codeql_x",
			wantOk: false,
		},
		{
			name:   "unterminated bracket",
			text:   " codeql[py/x",
			wantOk: false,
		},
		{
			name:   "unterminated bracket after whitespace",
			text:   " codeql  [py/x",
			wantOk: false,
		},
		{
			name:   "noqa bare",
			text:   " noqa",
			want:   Directive{Annotation: "codeql", Kind: NoqaBare},
			wantOk: true,
		},
		{
			name:   "noqa upper case",
			text:   "NOQA",
			want:   Directive{Annotation: "codeql", Kind: NoqaBare},
			wantOk: true,
		},
		{
			name:   "noqa trailing text",
			text:   " noqa because reasons",
			want:   Directive{Annotation: "codeql", Kind: NoqaBare},
			wantOk: true,
		},
		{
			name:   "noqa with code list",
			text:   " noqa: E501",
			wantOk: false,
		},
		{
			name:   "noqa colon no space",
			text:   " noqa:E501",
			wantOk: false,
		},
		{
			name:   "noqa not at start",
			text:   " type: ignore # noqa",
			wantOk: false,
		},
		{
			name:   "plain comment",
			text:   " regular comment",
			wantOk: false,
		},
		{
			name:   "empty",
			text:   "",
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Classify(tt.text)
			require.Equal(t, tt.wantOk, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassify_CodeQLTakesPriorityOverNoqa(t *testing.T) {
	t.Parallel()

	text := " noqa; codeql"
	_, noqaOk := matchNoqa(text)
	require.True(t, noqaOk, "text should satisfy the noqa matcher on its own")

	got, ok := Classify(text)
	require.True(t, ok)
	assert.Equal(t, Directive{Annotation: "lgtm", Kind: BracketedOrBareCodeQL}, got)
}

func TestClassify_CaseInsensitiveAnnotationsEqual(t *testing.T) {
	t.Parallel()

	lower, ok := Classify(" codeql[R1]")
	require.True(t, ok)
	upper, ok := Classify(" CodeQL[R1]")
	require.True(t, ok)
	assert.Equal(t, lower.Annotation, upper.Annotation)
	assert.Equal(t, "lgtm[R1]", upper.Annotation)
}

func TestMatchers_Order(t *testing.T) {
	t.Parallel()

	ms := Matchers()
	require.Len(t, ms, 2)
	assert.Equal(t, BracketedOrBareCodeQL, ms[0].Kind)
	assert.Equal(t, NoqaBare, ms[1].Kind)

	// The returned slice is a copy.
	ms[0] = Matcher{}
	assert.Equal(t, "codeql", Matchers()[0].Name)
}
