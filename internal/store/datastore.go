package store

// DataStore is the interface for extraction-phase writes. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering for parallel
// extraction) implement this interface.
type DataStore interface {
	// Extraction inserts. Each returns the assigned ID.
	InsertComment(c *Comment) (int64, error)
	InsertCodeNode(n *CodeNode) (int64, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
