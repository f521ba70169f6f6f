package store

import "time"

// Extraction domain types

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LineCount   int
	LastIndexed time.Time
}

// Comment is a line comment with its delimiter stripped.
type Comment struct {
	ID        int64
	FileID    int64
	Text      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

type CodeNode struct {
	ID        int64
	FileID    int64
	Kind      string
	StartLine int
	EndLine   int
}

// Emission domain types

// Suppression is a persisted suppression record: the originating comment,
// its raw text, the normalized annotation and the covered range. The
// comment shares the scope's lines; CommentCol is where it starts.
type Suppression struct {
	ID         int64
	CommentID  int64
	FileID     int64
	File       string
	CommentCol int // read-only, joined from comments
	Text       string
	Annotation string
	Kind       string
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
}
