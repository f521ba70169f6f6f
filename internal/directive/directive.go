// Package directive recognizes alert-suppression directives in comment text.
//
// Two conventions are supported, each implemented as an independent
// [Matcher]:
//
//   - CodeQL style: "codeql[rule/id]" anywhere in the comment, or a bare
//     "codeql" token at the start of the comment or after a semicolon.
//     Annotations are normalized to the legacy "lgtm" token.
//   - noqa style: a comment consisting of "noqa" with optional trailing text
//     that does not begin with a colon. The annotation is always "codeql".
//
// Matchers are tried in the order returned by [Matchers]; the first match
// wins.
package directive

import (
	"regexp"
	"strings"
)

// Kind tags the convention a directive was recognized under.
type Kind string

const (
	BracketedOrBareCodeQL Kind = "BracketedOrBareCodeQL"
	NoqaBare              Kind = "NoqaBare"
)

// Directive is a recognized suppression directive.
type Directive struct {
	Annotation string
	Kind       Kind
}

// Matcher attempts to recognize one convention in a comment's text.
type Matcher struct {
	Name  string
	Kind  Kind
	Match func(text string) (annotation string, ok bool)
}

const (
	codeqlToken = "codeql"
	lgtmToken   = "lgtm"
)

var (
	bracketedRe = regexp.MustCompile(`(?i)\bcodeql\s*\[[^\]]*\]`)
	bareRe      = regexp.MustCompile(`(?i)(?:^|;)(\s*codeql)`)
	noqaRe      = regexp.MustCompile(`(?i)^\s*noqa\s*(?:[^:].*)?$`)
)

var matchers = []Matcher{
	{Name: "codeql", Kind: BracketedOrBareCodeQL, Match: matchCodeQL},
	{Name: "noqa", Kind: NoqaBare, Match: matchNoqa},
}

// Matchers returns the ordered matcher list used by Classify.
func Matchers() []Matcher {
	out := make([]Matcher, len(matchers))
	copy(out, matchers)
	return out
}

// Classify returns the directive encoded in text, if any. When more than one
// convention matches, the earlier matcher in Matchers wins, so CodeQL style
// takes priority over noqa.
func Classify(text string) (Directive, bool) {
	for _, m := range matchers {
		if ann, ok := m.Match(text); ok {
			return Directive{Annotation: ann, Kind: m.Kind}, true
		}
	}
	return Directive{}, false
}

func matchCodeQL(text string) (string, bool) {
	if m := bracketedRe.FindString(text); m != "" {
		return toLgtm(m), true
	}
	for _, loc := range bareRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if !bareTokenEnds(text[end:]) {
			continue
		}
		return toLgtm(strings.TrimSpace(text[start:end])), true
	}
	return "", false
}

// bareTokenEnds reports whether rest, the text after a bare "codeql", ends
// the token: no identifier character follows, and no bracket follows after
// optional whitespace.
func bareTokenEnds(rest string) bool {
	if rest == "" {
		return true
	}
	if isWordByte(rest[0]) {
		return false
	}
	return !strings.HasPrefix(strings.TrimLeft(rest, " \t\n\v\f\r"), "[")
}

func isWordByte(b byte) bool {
	return b == '_' ||
		('0' <= b && b <= '9') ||
		('a' <= b && b <= 'z') ||
		('A' <= b && b <= 'Z')
}

// toLgtm replaces the leading codeql token (any case) with lgtm.
func toLgtm(s string) string {
	if len(s) >= len(codeqlToken) && strings.EqualFold(s[:len(codeqlToken)], codeqlToken) {
		return lgtmToken + s[len(codeqlToken):]
	}
	return s
}

func matchNoqa(text string) (string, bool) {
	if noqaRe.MatchString(text) {
		return codeqlToken, true
	}
	return "", false
}
