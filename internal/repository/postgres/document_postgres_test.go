package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"docvault/internal/model"
	"docvault/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

var docCols = []string{"id", "title", "description", "filename", "storage_path", "size", "content_type", "uploaded_at", "owner_id", "tags"}

func docRow(id, ownerID string, uploadedAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(docCols).
		AddRow(id, "Title", "Desc", "file.txt", "documents/file.txt", 100, "text/plain", uploadedAt, ownerID, "a,b")
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.Document{
		ID:          "test-uuid",
		Title:       "Title",
		Description: "Desc",
		Filename:    "file.txt",
		StoragePath: "documents/file.txt",
		Size:        100,
		ContentType: "text/plain",
		UploadedAt:  now,
		OwnerID:     "owner-1",
		Tags:        "a,b",
	}

	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(doc.ID, doc.Title, doc.Description, doc.Filename, doc.StoragePath, doc.Size, doc.ContentType, doc.UploadedAt, doc.OwnerID, doc.Tags).
		WillReturnRows(docRow(doc.ID, doc.OwnerID, now))

	result, err := repo.Create(ctx, doc)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, doc.ID, result.ID)
	assert.Equal(t, doc.OwnerID, result.OwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE owner_id = \\$1 AND id = \\$2").
			WithArgs("owner-1", "test-id").
			WillReturnRows(docRow("test-id", "owner-1", time.Now()))

		doc, err := repo.FindByID(ctx, "owner-1", "test-id")

		assert.NoError(t, err)
		assert.NotNil(t, doc)
		assert.Equal(t, "test-id", doc.ID)
	})

	t.Run("another owner's document is not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE owner_id = \\$1 AND id = \\$2").
			WithArgs("owner-2", "test-id").
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, "owner-2", "test-id")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, doc)
	})
}

func TestDocumentPostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("unfiltered", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE owner_id = \\$1").
			WithArgs("owner-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		mock.ExpectQuery("SELECT (.+) FROM documents WHERE owner_id = \\$1 ORDER BY uploaded_at DESC, id DESC").
			WithArgs("owner-1", 10, 0).
			WillReturnRows(docRow("test-id", "owner-1", time.Now()))

		res, err := repo.List(ctx, "owner-1", repository.DocumentFilter{Limit: 10, Offset: 0})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
	})

	t.Run("search matches title, description and tags", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE owner_id = \\$1 AND \\(title ILIKE \\$2").
			WithArgs("owner-1", "%tax%").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		mock.ExpectQuery("SELECT (.+) FROM documents WHERE owner_id = \\$1 AND \\(title ILIKE \\$2").
			WithArgs("owner-1", "%tax%", 10, 0).
			WillReturnRows(docRow("test-id", "owner-1", time.Now()))

		res, err := repo.List(ctx, "owner-1", repository.DocumentFilter{Search: "tax", Limit: 10})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
	})

	t.Run("like metacharacters are escaped", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents").
			WithArgs("owner-1", `%100\%%`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		mock.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs("owner-1", `%100\%%`, 10, 0).
			WillReturnRows(sqlmock.NewRows(docCols))

		res, err := repo.List(ctx, "owner-1", repository.DocumentFilter{Search: "100%", Limit: 10})

		assert.NoError(t, err)
		assert.Equal(t, 0, res.Total)
		assert.Empty(t, res.Items)
	})

	t.Run("uploaded_at filter", func(t *testing.T) {
		ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM documents WHERE owner_id = \\$1 AND uploaded_at = \\$2").
			WithArgs("owner-1", ts).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		mock.ExpectQuery("SELECT (.+) FROM documents WHERE owner_id = \\$1 AND uploaded_at = \\$2").
			WithArgs("owner-1", ts, 10, 0).
			WillReturnRows(docRow("test-id", "owner-1", ts))

		res, err := repo.List(ctx, "owner-1", repository.DocumentFilter{UploadedAt: &ts, Limit: 10})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
	})
}

func TestDocumentPostgres_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	doc := &model.Document{ID: "test-id", Title: "Title", Description: "Desc", Tags: "a,b"}

	mock.ExpectQuery("UPDATE documents SET title = \\$3, description = \\$4, tags = \\$5 WHERE owner_id = \\$1 AND id = \\$2").
		WithArgs("owner-1", doc.ID, doc.Title, doc.Description, doc.Tags).
		WillReturnRows(docRow(doc.ID, "owner-1", time.Now()))

	result, err := repo.Update(ctx, "owner-1", doc)

	assert.NoError(t, err)
	assert.Equal(t, doc.ID, result.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE owner_id = \\$1 AND id = \\$2").
			WithArgs("owner-1", "test-id").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(ctx, "owner-1", "test-id")

		assert.NoError(t, err)
	})

	t.Run("zero rows means not found", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM documents WHERE owner_id = \\$1 AND id = \\$2").
			WithArgs("owner-1", "missing").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(ctx, "owner-1", "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
