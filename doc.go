// Package hush indexes alert-suppression comments in source code.
//
// A suppression comment is a line comment that carries a CodeQL-style
// directive (`codeql`, `codeql[rule-id]`) or a bare `noqa` marker and sits on
// a line where program code starts. Such comments tell a static-analysis tool
// to omit findings in a range of source. Hush finds them, normalizes their
// annotation (`lgtm`, `lgtm[...]`, or `codeql`), and records the covered
// range.
//
// # Pipeline
//
// Hush operates in two phases:
//
//  1. Index: For each source file, parse with tree-sitter and write its line
//     comments and the start lines of its code nodes to SQLite.
//
//  2. Suppress: Build a read-only Program Index for the changed files, run
//     the directive classifier and scope resolver over every comment, and
//     replace the stored suppression records.
//
// # Usage
//
//	e, err := hush.New("hush.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//	err = e.Suppress(ctx)
//
//	q := e.Query()
//	recs, err := q.SuppressionsAt("/abs/path/app.py", 12)
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.Suppressions]: every stored record.
//   - [QueryBuilder.SuppressionsInFile]: records of one file.
//   - [QueryBuilder.SuppressionsAt]: records whose scope covers a line.
//   - [QueryBuilder.Files] and [QueryBuilder.CommentsInFile]: the raw index.
//   - [QueryBuilder.Filter]: narrow records with a Risor expression.
//
// # Incremental Indexing
//
// [Engine.IndexFiles] skips files whose content hash is unchanged. Only files
// that were re-extracted are re-emitted by the next [Engine.Suppress] call.
// Use [WithLanguages] to restrict which languages the Engine processes.
//
// The pure core is also usable without a database: [Emit] runs the classifier
// and resolver over any index.ProgramIndex.
package hush
