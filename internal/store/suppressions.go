package store

import (
	"fmt"

	"github.com/jward/hush/internal/index"
)

// LoadIndex builds an immutable Program Index for the given files from the
// comments and code_nodes tables. Unknown file IDs are skipped.
func (s *Store) LoadIndex(fileIDs []int64) (*index.Index, error) {
	b := index.NewBuilder()
	for _, fid := range fileIDs {
		f, err := s.FileByID(fid)
		if err != nil {
			return nil, fmt.Errorf("load index: %w", err)
		}
		if f == nil {
			continue
		}
		b.AddFile(f.Path)

		comments, err := s.CommentsByFile(fid)
		if err != nil {
			return nil, fmt.Errorf("load index: %s: %w", f.Path, err)
		}
		for _, c := range comments {
			b.AddComment(index.Comment{
				ID:   c.ID,
				Text: c.Text,
				Location: index.Location{
					File:      f.Path,
					StartLine: c.StartLine,
					StartCol:  c.StartCol,
					EndLine:   c.EndLine,
					EndCol:    c.EndCol,
				},
			})
		}

		lines, err := s.CodeLinesByFile(fid)
		if err != nil {
			return nil, fmt.Errorf("load index: %s: %w", f.Path, err)
		}
		for _, l := range lines {
			b.AddCodeNode(index.CodeNode{File: f.Path, StartLine: l, EndLine: l})
		}
	}
	return b.Build(), nil
}

// ReplaceSuppressions deletes the stored suppressions of fileIDs, inserts
// recs and marks the files emitted, all in one transaction. Each record's
// FileID must be among fileIDs.
func (s *Store) ReplaceSuppressions(fileIDs []int64, recs []*Suppression) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace suppressions: begin: %w", err)
	}
	defer tx.Rollback()

	if len(fileIDs) > 0 {
		if _, err := tx.Exec(
			"DELETE FROM suppressions WHERE file_id IN ("+placeholderList(len(fileIDs))+")",
			int64sToArgs(fileIDs)...,
		); err != nil {
			return fmt.Errorf("replace suppressions: delete: %w", err)
		}
	}

	stmt, err := tx.Prepare(
		`INSERT INTO suppressions (comment_id, file_id, text, annotation, kind,
			start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("replace suppressions: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		res, err := stmt.Exec(r.CommentID, r.FileID, r.Text, r.Annotation, r.Kind,
			r.StartLine, r.StartCol, r.EndLine, r.EndCol)
		if err != nil {
			return fmt.Errorf("replace suppressions: insert comment %d: %w", r.CommentID, err)
		}
		if r.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("replace suppressions: last insert id: %w", err)
		}
	}

	if len(fileIDs) > 0 {
		if _, err := tx.Exec(
			"UPDATE files SET emitted = 1 WHERE id IN ("+placeholderList(len(fileIDs))+")",
			int64sToArgs(fileIDs)...,
		); err != nil {
			return fmt.Errorf("replace suppressions: mark emitted: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace suppressions: commit: %w", err)
	}
	return nil
}

// PendingFiles returns the IDs of files indexed since their suppressions
// were last replaced, in ascending order. A file inserted by InsertFile
// stays pending until ReplaceSuppressions covers it.
func (s *Store) PendingFiles() ([]int64, error) {
	rows, err := s.db.Query("SELECT id FROM files WHERE emitted = 0 ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("pending files: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pending files: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const suppressionSelect = `SELECT s.id, s.comment_id, s.file_id, f.path, c.start_col, s.text, s.annotation, s.kind,
	s.start_line, s.start_col, s.end_line, s.end_col
	FROM suppressions s
	JOIN files f ON f.id = s.file_id
	JOIN comments c ON c.id = s.comment_id`

const suppressionOrder = " ORDER BY f.path, s.start_line, c.start_col"

func (s *Store) querySuppressions(query string, args ...any) ([]*Suppression, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Suppression
	for rows.Next() {
		r := &Suppression{}
		if err := rows.Scan(&r.ID, &r.CommentID, &r.FileID, &r.File, &r.CommentCol, &r.Text, &r.Annotation, &r.Kind,
			&r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, fmt.Errorf("scan suppression: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AllSuppressions returns every stored suppression ordered by file and position.
func (s *Store) AllSuppressions() ([]*Suppression, error) {
	out, err := s.querySuppressions(suppressionSelect + suppressionOrder)
	if err != nil {
		return nil, fmt.Errorf("all suppressions: %w", err)
	}
	return out, nil
}

func (s *Store) SuppressionsByFile(fileID int64) ([]*Suppression, error) {
	out, err := s.querySuppressions(suppressionSelect+" WHERE s.file_id = ?"+suppressionOrder, fileID)
	if err != nil {
		return nil, fmt.Errorf("suppressions by file: %w", err)
	}
	return out, nil
}

// SuppressionsCovering returns the suppressions of a file whose line span
// contains line.
func (s *Store) SuppressionsCovering(fileID int64, line int) ([]*Suppression, error) {
	out, err := s.querySuppressions(
		suppressionSelect+" WHERE s.file_id = ? AND s.start_line <= ? AND s.end_line >= ?"+suppressionOrder,
		fileID, line, line,
	)
	if err != nil {
		return nil, fmt.Errorf("suppressions covering: %w", err)
	}
	return out, nil
}

// CountSuppressions returns the number of stored suppressions.
func (s *Store) CountSuppressions() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM suppressions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count suppressions: %w", err)
	}
	return n, nil
}
