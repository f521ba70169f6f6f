package store

import "sync"

// BatchedStore buffers extraction inserts in memory using fake (negative)
// IDs. It implements DataStore so the extractor can write to it without
// knowing whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	// Buffered extraction data.
	Comments  []Comment
	CodeNodes []CodeNode

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertComment(c *Comment) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Comments = append(b.Comments, *c)
	return fakeID, nil
}

func (b *BatchedStore) InsertCodeNode(n *CodeNode) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	n.ID = fakeID
	b.CodeNodes = append(b.CodeNodes, *n)
	return fakeID, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Comments) + len(b.CodeNodes)
}
