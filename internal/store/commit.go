package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are replaced by the
// real AUTOINCREMENT IDs; the batch's slices are updated in place so
// callers can read the committed IDs afterwards.
//
// Nothing in a batch references another batch row, so insert order only
// follows the table order: comments, then code nodes.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	commentStmt, err := tx.Prepare(insertCommentSQL)
	if err != nil {
		return fmt.Errorf("commit batch: prepare comment: %w", err)
	}
	defer commentStmt.Close()

	for i := range batch.Comments {
		realID, err := insertCommentTx(commentStmt, &batch.Comments[i])
		if err != nil {
			return fmt.Errorf("commit batch: comment at line %d: %w", batch.Comments[i].StartLine, err)
		}
		batch.Comments[i].ID = realID
	}

	nodeStmt, err := tx.Prepare(insertCodeNodeSQL)
	if err != nil {
		return fmt.Errorf("commit batch: prepare code node: %w", err)
	}
	defer nodeStmt.Close()

	for i := range batch.CodeNodes {
		realID, err := insertCodeNodeTx(nodeStmt, &batch.CodeNodes[i])
		if err != nil {
			return fmt.Errorf("commit batch: code node %q: %w", batch.CodeNodes[i].Kind, err)
		}
		batch.CodeNodes[i].ID = realID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}
	return nil
}

const insertCommentSQL = `INSERT INTO comments (file_id, text, start_line, start_col, end_line, end_col)
	VALUES (?, ?, ?, ?, ?, ?)`

const insertCodeNodeSQL = `INSERT INTO code_nodes (file_id, kind, start_line, end_line)
	VALUES (?, ?, ?, ?)`

func insertCommentTx(stmt *sql.Stmt, c *Comment) (int64, error) {
	res, err := stmt.Exec(c.FileID, c.Text, c.StartLine, c.StartCol, c.EndLine, c.EndCol)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertCodeNodeTx(stmt *sql.Stmt, n *CodeNode) (int64, error) {
	res, err := stmt.Exec(n.FileID, n.Kind, n.StartLine, n.EndLine)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
