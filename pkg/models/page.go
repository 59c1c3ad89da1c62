package models

import "github.com/google/uuid"

// DefaultPageSize is the number of records returned per list request.
const DefaultPageSize = 10

// ListQuery selects one page of a tenant's records, newest first.
type ListQuery struct {
	CustomerID string
	// Search is matched case-insensitively as a substring of name, email
	// and phone. Empty means no filter.
	Search string
	// Cursor is the id of the last record of the previous page.
	Cursor *uuid.UUID
	Limit  int
}

// Page is one slice of a cursor-paginated listing. NextCursor is nil on the
// last page.
type Page[T any] struct {
	Items      []T
	NextCursor *uuid.UUID
}
