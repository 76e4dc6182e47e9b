package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const documentColumns = "id, title, description, filename, storage_path, size, content_type, uploaded_at, owner_id, tags"

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// The owner predicate is always the first condition of every statement.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		&d.Filename,
		&d.StoragePath,
		&d.Size,
		&d.ContentType,
		&d.UploadedAt,
		&d.OwnerID,
		&d.Tags,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, title, description, filename, storage_path, size, content_type, uploaded_at, owner_id, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		doc.Filename,
		doc.StoragePath,
		doc.Size,
		doc.ContentType,
		doc.UploadedAt,
		doc.OwnerID,
		doc.Tags,
	)
	return scanDocument(row)
}

// FindByID fetches a single document owned by ownerID.
func (r *DocumentPostgres) FindByID(ctx context.Context, ownerID, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1 AND id = $2
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, ownerID, id))
}

// List returns the owner's documents matching the filter, newest first, and a total count.
func (r *DocumentPostgres) List(ctx context.Context, ownerID string, f repository.DocumentFilter) (*repository.PageResult[model.Document], error) {
	conds := []string{"owner_id = $1"}
	args := []any{ownerID}

	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		p := len(args)
		conds = append(conds, fmt.Sprintf(
			`(title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\' OR tags ILIKE $%d ESCAPE '\')`,
			p, p, p))
	}
	if f.UploadedAt != nil {
		args = append(args, *f.UploadedAt)
		conds = append(conds, fmt.Sprintf("uploaded_at = $%d", len(args)))
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE "+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, f.Limit, f.Offset)
	qList := fmt.Sprintf(
		"SELECT %s FROM documents WHERE %s ORDER BY uploaded_at DESC, id DESC LIMIT $%d OFFSET $%d",
		documentColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, qList, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Update replaces title, description and tags of an owned row. Owner and
// uploaded_at are deliberately absent from the SET list.
func (r *DocumentPostgres) Update(ctx context.Context, ownerID string, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET title = $3, description = $4, tags = $5
		WHERE owner_id = $1 AND id = $2
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q, ownerID, doc.ID, doc.Title, doc.Description, doc.Tags)
	return scanDocument(row)
}

// Delete removes an owned document row. An unowned or absent row yields
// sql.ErrNoRows so callers cannot distinguish the two cases.
func (r *DocumentPostgres) Delete(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM documents WHERE owner_id = $1 AND id = $2`
	res, err := r.db.ExecContext(ctx, q, ownerID, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// escapeLike neutralizes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
