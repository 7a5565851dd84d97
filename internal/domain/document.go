package domain

import "time"

// DocumentKind classifies an uploaded file and decides its limits.
type DocumentKind string

const (
	DocumentCV          DocumentKind = "cv"
	DocumentCoverLetter DocumentKind = "cover_letter"
	DocumentCertificate DocumentKind = "certificate"
	DocumentVideo       DocumentKind = "video"
	DocumentAvatar      DocumentKind = "avatar"
	DocumentLogo        DocumentKind = "logo"
	DocumentOther       DocumentKind = "other"
)

const mb = 1 << 20

var (
	textDocumentTypes = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/rtf",
		"application/vnd.oasis.opendocument.text",
		"text/plain",
	}
	imageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	videoTypes = []string{"video/mp4", "video/webm", "video/quicktime"}
)

type kindLimits struct {
	maxSize int64
	types   []string
}

var documentLimits = map[DocumentKind]kindLimits{
	DocumentCV:          {10 * mb, textDocumentTypes},
	DocumentCoverLetter: {10 * mb, textDocumentTypes},
	DocumentCertificate: {10 * mb, []string{"application/pdf", "image/jpeg", "image/png"}},
	DocumentVideo:       {100 * mb, videoTypes},
	DocumentAvatar:      {5 * mb, imageTypes},
	DocumentLogo:        {5 * mb, imageTypes},
	DocumentOther:       {10 * mb, []string{"application/pdf", "image/jpeg", "image/png", "text/plain"}},
}

// Valid reports whether k is a known document kind.
func (k DocumentKind) Valid() bool {
	_, ok := documentLimits[k]
	return ok
}

// MaxSize is the upload limit in bytes for the kind.
func (k DocumentKind) MaxSize() int64 {
	return documentLimits[k].maxSize
}

// AllowedTypes lists the accepted MIME types for the kind.
func (k DocumentKind) AllowedTypes() []string {
	return documentLimits[k].types
}

// Accepts reports whether contentType (without parameters) may be stored
// under the kind.
func (k DocumentKind) Accepts(contentType string) bool {
	for _, t := range documentLimits[k].types {
		if t == contentType {
			return true
		}
	}
	return false
}

// Searchable reports whether text is extracted from the kind for search.
func (k DocumentKind) Searchable() bool {
	return k == DocumentCV || k == DocumentCoverLetter
}

// IsImage reports whether the kind gets a thumbnail.
func (k DocumentKind) IsImage() bool {
	return k == DocumentAvatar || k == DocumentLogo
}

// Document is an uploaded file. The bytes live in the blob store under
// StorageKey.
type Document struct {
	ID            string       `json:"id" db:"id"`
	OwnerID       string       `json:"owner_id" db:"owner_id"`
	Kind          DocumentKind `json:"kind" db:"kind"`
	Title         string       `json:"title" db:"title"`
	FileName      string       `json:"file_name" db:"file_name"`
	ContentType   string       `json:"content_type" db:"content_type"`
	Size          int64        `json:"size" db:"size_bytes"`
	Checksum      string       `json:"checksum" db:"checksum"`
	StorageKey    string       `json:"-" db:"storage_key"`
	ThumbnailKey  string       `json:"-" db:"thumbnail_key"`
	HasThumbnail  bool         `json:"has_thumbnail" db:"-"`
	ExtractedText string       `json:"-" db:"extracted_text"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// SharedDocument grants an employer read access to a document.
type SharedDocument struct {
	ID           string     `json:"id" db:"id"`
	DocumentID   string     `json:"document_id" db:"document_id"`
	OwnerID      string     `json:"owner_id" db:"owner_id"`
	SharedWithID string     `json:"shared_with_id" db:"shared_with_id"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`

	DocumentTitle  string       `json:"document_title,omitempty" db:"-"`
	DocumentKind   DocumentKind `json:"document_kind,omitempty" db:"-"`
	OwnerName      string       `json:"owner_name,omitempty" db:"-"`
	SharedWithName string       `json:"shared_with_name,omitempty" db:"-"`
}

// Expired reports whether the share no longer grants access at now.
func (s *SharedDocument) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}
