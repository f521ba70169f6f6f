package hush

import "github.com/jward/hush/internal/store"

// Public type aliases for internal store types used in the QueryBuilder API.

type Store = store.Store
type File = store.File
type Comment = store.Comment
type Suppression = store.Suppression
