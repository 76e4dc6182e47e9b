package repository

import (
	"context"
	"time"

	"docvault/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic here — strictly persistence operations.
//
// Every read and mutation is scoped by owner: callers pass the owning user's
// ID and the implementation must make it the first predicate of each query.
// A row owned by someone else is indistinguishable from an absent row.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row
	// (may include values set by the DB).
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns the document with the given ID if it is owned by ownerID.
	FindByID(ctx context.Context, ownerID, id string) (*model.Document, error)

	// List returns the owner's documents matching the filter, newest first,
	// plus the total row count for the filter.
	List(ctx context.Context, ownerID string, f DocumentFilter) (*PageResult[model.Document], error)

	// Update replaces the mutable metadata fields (title, description, tags)
	// of an owned document and returns the updated row.
	// Owner and uploaded_at are never modified.
	Update(ctx context.Context, ownerID string, doc *model.Document) (*model.Document, error)

	// Delete removes an owned document row. Returns sql.ErrNoRows if no
	// owned row matched.
	Delete(ctx context.Context, ownerID, id string) error
}

// DocumentFilter narrows a listing. The owner predicate is always applied
// first by the implementation; these are additional, caller-supplied filters.
type DocumentFilter struct {
	// Search is a case-insensitive substring matched against title,
	// description and tags. Empty means no text filter.
	Search string
	// UploadedAt filters on the exact upload timestamp when non-nil.
	UploadedAt *time.Time

	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
