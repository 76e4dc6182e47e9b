package model

import (
	"strings"
	"time"
)

// Document represents an uploaded file and its metadata, owned by a single user.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at"`
	OwnerID     string    `json:"owner"`
	Tags        string    `json:"tags"`
}

// HasFile reports whether a stored blob is bound to this document.
func (d Document) HasFile() bool {
	return d.StoragePath != ""
}

// TagList splits the comma-separated tags field into trimmed, non-empty values.
func (d Document) TagList() []string {
	if d.Tags == "" {
		return nil
	}
	parts := strings.Split(d.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
