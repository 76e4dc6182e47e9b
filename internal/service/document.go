package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

var (
	ErrIDRequired    = errors.New("id is required")
	ErrOwnerRequired = errors.New("owner is required")
	ErrNotFound      = errors.New("document not found")
	// ErrNoFile means the document exists but has no stored file bound to it.
	ErrNoFile = errors.New("no file associated with this document")
	// ErrFileMissing means the document references a file that is gone from
	// the storage backend. The metadata row is left untouched.
	ErrFileMissing = errors.New("file not found on server")
)

// ValidationError carries field-level errors for a rejected write.
// Nothing is persisted when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// UploadInput carries a new document's metadata and file content.
type UploadInput struct {
	Title       string
	Description string
	Tags        string
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// CreateInput carries metadata for a document created without a file.
type CreateInput struct {
	Title       string
	Description string
	Tags        string
}

// UpdateInput holds partial metadata changes. Nil fields are left as-is.
// Owner and upload timestamp are not updatable by design.
type UpdateInput struct {
	Title       *string
	Description *string
	Tags        *string
}

// ListFilter narrows a listing without exposing repository types.
type ListFilter struct {
	Search     string
	UploadedAt *time.Time
	Limit      int
	Offset     int
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentService defines the use cases for handling documents. Every
// operation takes the caller's user ID explicitly and only ever touches
// that user's documents; a document owned by someone else behaves exactly
// like a missing one.
type DocumentService interface {
	// Upload validates metadata and file, streams the content to storage,
	// saves metadata to DB, and rolls back storage if the DB save fails.
	// The stored filename is a UUID plus the original extension.
	Upload(ctx context.Context, ownerID string, in UploadInput) (*model.Document, error)

	// Create persists a metadata-only document with no file bound.
	Create(ctx context.Context, ownerID string, in CreateInput) (*model.Document, error)

	// List returns the caller's documents matching the filter, newest first.
	List(ctx context.Context, ownerID string, f ListFilter) (*DocumentListResult, error)

	// Search returns the caller's documents whose title, description or
	// tags contain the query, case-insensitively. An empty query returns
	// no results.
	Search(ctx context.Context, ownerID, query string) ([]model.Document, error)

	// Get returns a single owned document.
	Get(ctx context.Context, ownerID, id string) (*model.Document, error)

	// Update changes title/description/tags of an owned document.
	Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.Document, error)

	// Delete removes an owned document from both storage and repository.
	Delete(ctx context.Context, ownerID, id string) error

	// Download opens the stored file of an owned document for streaming.
	// Returns ErrNoFile when no file is bound and ErrFileMissing when the
	// blob is gone from the backend.
	Download(ctx context.Context, ownerID, id string) (io.ReadCloser, *model.Document, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store storage.Storage
	repo  repository.DocumentRepository
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository) DocumentService {
	return &documentService{store: store, repo: repo}
}

func (s *documentService) Upload(ctx context.Context, ownerID string, in UploadInput) (*model.Document, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	fields := map[string]string{}
	if strings.TrimSpace(in.Title) == "" {
		fields["title"] = "this field is required"
	}
	if in.Reader == nil {
		fields["file"] = "this field is required"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	// Generate storage key using UUID + original extension
	ext := filepath.Ext(in.Filename)
	genName := uuid.New().String() + ext
	key := filepath.ToSlash(filepath.Join("documents", genName))

	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objInfo, err := s.store.Put(ctx, key, in.Reader, storage.PutObjectOptions{
		Size:        in.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": in.Filename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Filename:    in.Filename,
		StoragePath: objInfo.Key,
		Size:        objInfo.Size,
		ContentType: contentType,
		UploadedAt:  time.Now().UTC(),
		OwnerID:     ownerID,
		Tags:        in.Tags,
	}
	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage so no partial write survives
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *documentService) Create(ctx context.Context, ownerID string, in CreateInput) (*model.Document, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, &ValidationError{Fields: map[string]string{"title": "this field is required"}}
	}

	doc := &model.Document{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		UploadedAt:  time.Now().UTC(),
		OwnerID:     ownerID,
		Tags:        in.Tags,
	}
	return s.repo.Create(ctx, doc)
}

// List returns paginated, owner-scoped documents without exposing repository types.
func (s *documentService) List(ctx context.Context, ownerID string, f ListFilter) (*DocumentListResult, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	res, err := s.repo.List(ctx, ownerID, repository.DocumentFilter{
		Search:     f.Search,
		UploadedAt: f.UploadedAt,
		Limit:      f.Limit,
		Offset:     f.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Search returns matches for a non-empty query. The empty query is defined
// to match nothing, unlike an unfiltered List.
func (s *documentService) Search(ctx context.Context, ownerID, query string) ([]model.Document, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Document{}, nil
	}

	res, err := s.repo.List(ctx, ownerID, repository.DocumentFilter{
		Search: query,
		Limit:  100,
	})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Get returns a document by ID, scoped to its owner.
func (s *documentService) Get(ctx context.Context, ownerID, id string) (*model.Document, error) {
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, &ValidationError{Fields: map[string]string{"title": "this field is required"}}
		}
		doc.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		doc.Description = *in.Description
	}
	if in.Tags != nil {
		doc.Tags = *in.Tags
	}

	updated, err := s.repo.Update(ctx, ownerID, doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes a document from storage, then deletes its record.
func (s *documentService) Delete(ctx context.Context, ownerID, id string) error {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	// Delete the blob first; if this fails, keep the DB row so the storage
	// reference is not lost.
	if doc.HasFile() {
		if err := s.store.Delete(ctx, doc.StoragePath); err != nil {
			return fmt.Errorf("delete storage: %w", err)
		}
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *documentService) Download(ctx context.Context, ownerID, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	if !doc.HasFile() {
		return nil, doc, ErrNoFile
	}
	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, doc, ErrFileMissing
		}
		return nil, doc, fmt.Errorf("open storage object: %w", err)
	}
	return rc, doc, nil
}
