package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, language, hash, line_count, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Language, f.Hash, f.LineCount, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileCols = "id, path, language, hash, line_count, last_indexed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	if err := scanner.Scan(&f.ID, &f.Path, &f.Language, &f.Hash, &f.LineCount, &f.LastIndexed); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE path = ?", path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) FileByID(id int64) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileCols+" FROM files WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by id: %w", err)
	}
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	files, err := s.queryFiles("SELECT " + fileCols + " FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

func (s *Store) FilesByLanguage(language string) ([]*File, error) {
	files, err := s.queryFiles("SELECT "+fileCols+" FROM files WHERE language = ? ORDER BY path", language)
	if err != nil {
		return nil, fmt.Errorf("files by language: %w", err)
	}
	return files, nil
}

// --- Comment operations ---

func (s *Store) InsertComment(c *Comment) (int64, error) {
	res, err := s.db.Exec(insertCommentSQL, c.FileID, c.Text, c.StartLine, c.StartCol, c.EndLine, c.EndCol)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return id, nil
}

func (s *Store) CommentsByFile(fileID int64) ([]*Comment, error) {
	rows, err := s.db.Query(
		`SELECT id, file_id, text, start_line, start_col, end_line, end_col
		 FROM comments WHERE file_id = ? ORDER BY start_line, start_col`, fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("comments by file: %w", err)
	}
	defer rows.Close()
	var comments []*Comment
	for rows.Next() {
		c := &Comment{}
		if err := rows.Scan(&c.ID, &c.FileID, &c.Text, &c.StartLine, &c.StartCol, &c.EndLine, &c.EndCol); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// --- Code node operations ---

func (s *Store) InsertCodeNode(n *CodeNode) (int64, error) {
	res, err := s.db.Exec(insertCodeNodeSQL, n.FileID, n.Kind, n.StartLine, n.EndLine)
	if err != nil {
		return 0, fmt.Errorf("insert code node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	n.ID = id
	return id, nil
}

func (s *Store) CodeNodesByFile(fileID int64) ([]*CodeNode, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, kind, start_line, end_line FROM code_nodes WHERE file_id = ? ORDER BY start_line", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("code nodes by file: %w", err)
	}
	defer rows.Close()
	var nodes []*CodeNode
	for rows.Next() {
		n := &CodeNode{}
		if err := rows.Scan(&n.ID, &n.FileID, &n.Kind, &n.StartLine, &n.EndLine); err != nil {
			return nil, fmt.Errorf("scan code node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// CodeLinesByFile returns the distinct start lines of a file's code nodes.
func (s *Store) CodeLinesByFile(fileID int64) ([]int, error) {
	rows, err := s.db.Query(
		"SELECT DISTINCT start_line FROM code_nodes WHERE file_id = ? ORDER BY start_line", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("code lines by file: %w", err)
	}
	defer rows.Close()
	var lines []int
	for rows.Next() {
		var l int
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan code line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
