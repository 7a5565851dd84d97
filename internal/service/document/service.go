package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/media"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

const maxTitleLength = 200

// Service implements document business logic.
type Service struct {
	repo  Repository
	blobs BlobStore
	users UserDirectory
	opts  Options
	now   func() time.Time
}

// NewService creates a document service.
func NewService(repo Repository, blobs BlobStore, users UserDirectory, opts Options) *Service {
	return &Service{repo: repo, blobs: blobs, users: users, opts: opts, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// UploadInput describes an incoming file.
type UploadInput struct {
	Kind     domain.DocumentKind
	Title    string
	FileName string
	Body     io.Reader
}

// Upload stores a new document owned by ownerID.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (*domain.Document, error) {
	if !in.Kind.Valid() {
		return nil, domain.Invalid("kind", "unknown value %q", in.Kind)
	}
	fileName := media.SanitizeFilename(in.FileName)
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = fileName
	}
	if len([]rune(title)) > maxTitleLength {
		return nil, domain.Invalid("title", "must be at most %d characters", maxTitleLength)
	}

	spool, err := os.CreateTemp(s.opts.TempDir, "pmo-upload-*")
	if err != nil {
		return nil, fmt.Errorf("create spool file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(spool, hash), &limitReader{r: in.Body, n: in.Kind.MaxSize()})
	if err != nil {
		if errors.Is(err, ErrTooLarge) {
			return nil, ErrTooLarge
		}
		return nil, fmt.Errorf("spool upload: %w", err)
	}
	if size == 0 {
		return nil, ErrEmptyFile
	}

	head := make([]byte, media.SniffLen)
	n, err := spool.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read upload head: %w", err)
	}
	contentType := media.DetectContentType(head[:n])
	if !in.Kind.Accepts(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	id := uuid.New().String()
	prefix := fmt.Sprintf("documents/%s/%s/%s", ownerID, in.Kind, id)
	d := &domain.Document{
		ID:          id,
		OwnerID:     ownerID,
		Kind:        in.Kind,
		Title:       title,
		FileName:    fileName,
		ContentType: contentType,
		Size:        size,
		Checksum:    hex.EncodeToString(hash.Sum(nil)),
		StorageKey:  prefix + media.ExtensionFor(contentType),
		CreatedAt:   s.now(),
	}

	if err := s.blobs.Put(ctx, d.StorageKey, io.NewSectionReader(spool, 0, size), size, contentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	if in.Kind.Searchable() && s.opts.Extractor != nil {
		text, err := s.opts.Extractor.Extract(ctx, io.NewSectionReader(spool, 0, size), contentType)
		if err != nil {
			logger.Warn("text extraction failed", "document_id", id, "content_type", contentType, "error", err)
		}
		d.ExtractedText = text
	}

	if in.Kind.IsImage() && s.opts.Thumbnailer != nil {
		thumb, err := s.opts.Thumbnailer.Thumbnail(io.NewSectionReader(spool, 0, size), media.ThumbnailSize)
		if err != nil {
			logger.Warn("thumbnail failed", "document_id", id, "error", err)
		} else {
			key := prefix + "_thumb.jpg"
			if err := s.blobs.Put(ctx, key, bytes.NewReader(thumb), int64(len(thumb)), "image/jpeg"); err != nil {
				logger.Warn("thumbnail not stored", "document_id", id, "error", err)
			} else {
				d.ThumbnailKey = key
				d.HasThumbnail = true
			}
		}
	}

	if err := s.repo.Create(ctx, d); err != nil {
		s.removeBlobs(ctx, d)
		return nil, err
	}
	s.record(ctx, ownerID, "document.uploaded", id, map[string]any{"kind": string(d.Kind), "size": d.Size})
	return d, nil
}

// List returns the owner's documents, optionally of one kind.
func (s *Service) List(ctx context.Context, ownerID string, kind domain.DocumentKind, limit, offset int) ([]domain.Document, int, error) {
	if kind != "" && !kind.Valid() {
		return nil, 0, domain.Invalid("kind", "unknown value %q", kind)
	}
	docs, total, err := s.repo.List(ctx, ownerID, kind, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for i := range docs {
		docs[i].HasThumbnail = docs[i].ThumbnailKey != ""
	}
	return docs, total, nil
}

// Get returns a document the viewer may read.
func (s *Service) Get(ctx context.Context, viewer domain.Actor, id string) (*domain.Document, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.HasThumbnail = d.ThumbnailKey != ""
	if d.OwnerID == viewer.UserID {
		return d, nil
	}
	if viewer.Role != domain.RoleEmployer {
		return nil, ErrNotFound
	}

	share, err := s.repo.GetShare(ctx, id, viewer.UserID)
	switch {
	case err == nil:
		if !share.Expired(s.now()) {
			return d, nil
		}
	case !errors.Is(err, ErrShareNotFound):
		return nil, err
	}

	submitted, serr := s.repo.SubmittedToEmployer(ctx, id, viewer.UserID)
	if serr != nil {
		return nil, serr
	}
	if submitted {
		return d, nil
	}
	if share != nil {
		return nil, ErrShareExpired
	}
	return nil, ErrNotFound
}

// GetDocument reads a document without access checks, for services that
// verify ownership themselves.
func (s *Service) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.repo.Get(ctx, id)
}

// Open returns the document and a reader over its bytes. The caller closes
// the reader.
func (s *Service) Open(ctx context.Context, viewer domain.Actor, id string) (*domain.Document, io.ReadCloser, error) {
	d, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, d.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open document: %w", err)
	}
	return d, rc, nil
}

// Thumbnail returns a reader over the JPEG thumbnail of an image document.
func (s *Service) Thumbnail(ctx context.Context, viewer domain.Actor, id string) (io.ReadCloser, error) {
	d, err := s.Get(ctx, viewer, id)
	if err != nil {
		return nil, err
	}
	if d.ThumbnailKey == "" {
		return nil, ErrNotFound
	}
	rc, err := s.blobs.Open(ctx, d.ThumbnailKey)
	if err != nil {
		return nil, fmt.Errorf("open thumbnail: %w", err)
	}
	return rc, nil
}

// Delete removes the owner's document, its shares and its blobs.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.OwnerID != ownerID {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.removeBlobs(ctx, d)
	s.record(ctx, ownerID, "document.deleted", id, nil)
	return nil
}

// Share grants an employer access to the owner's document until expiresAt
// (nil means no expiry). Sharing again updates the expiry.
func (s *Service) Share(ctx context.Context, ownerID, documentID, targetUserID string, expiresAt *time.Time) (*domain.SharedDocument, error) {
	d, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	if targetUserID == "" || targetUserID == ownerID {
		return nil, ErrInvalidShareTarget
	}
	target, err := s.users.GetUser(ctx, targetUserID)
	if err != nil {
		logger.Debug("share target lookup failed", "user_id", targetUserID, "error", err)
		return nil, ErrInvalidShareTarget
	}
	if target.Role != domain.RoleEmployer {
		return nil, ErrInvalidShareTarget
	}
	now := s.now()
	if expiresAt != nil && !expiresAt.After(now) {
		return nil, domain.Invalid("expires_at", "must be in the future")
	}

	sh := &domain.SharedDocument{
		ID:             uuid.New().String(),
		DocumentID:     d.ID,
		OwnerID:        ownerID,
		SharedWithID:   target.ID,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		DocumentTitle:  d.Title,
		DocumentKind:   d.Kind,
		SharedWithName: target.Name,
	}
	if err := s.repo.UpsertShare(ctx, sh); err != nil {
		return nil, err
	}

	if s.opts.Events != nil {
		e := domain.Event{
			ID:        uuid.New().String(),
			Type:      domain.EventDocumentShared,
			Title:     "Document shared",
			Message:   fmt.Sprintf("A candidate shared %q with you", d.Title),
			Level:     "info",
			Data:      map[string]any{"document_id": d.ID, "share_id": sh.ID},
			CreatedAt: now,
		}
		if err := s.opts.Events.Publish(ctx, target.ID, e); err != nil {
			logger.Warn("event not published", "type", e.Type, "error", err)
		}
	}
	s.record(ctx, ownerID, "document.shared", d.ID, map[string]any{"shared_with": target.ID})
	return sh, nil
}

// Revoke removes a share of the owner's document.
func (s *Service) Revoke(ctx context.Context, ownerID, documentID, shareID string) error {
	d, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if d.OwnerID != ownerID {
		return ErrNotFound
	}
	if err := s.repo.DeleteShare(ctx, documentID, shareID); err != nil {
		return err
	}
	s.record(ctx, ownerID, "document.share_revoked", documentID, map[string]any{"share_id": shareID})
	return nil
}

// ListShares returns every share of the owner's document.
func (s *Service) ListShares(ctx context.Context, ownerID, documentID string) ([]domain.SharedDocument, error) {
	d, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return s.repo.ListShares(ctx, documentID)
}

// SharedWithMe lists the unexpired shares granted to an employer.
func (s *Service) SharedWithMe(ctx context.Context, userID string, limit, offset int) ([]domain.SharedDocument, int, error) {
	return s.repo.SharedWith(ctx, userID, s.now(), limit, offset)
}

// PurgeExpiredShares removes expired shares in batches until none remain or
// ctx is done.
func (s *Service) PurgeExpiredShares(ctx context.Context, batch int) (int64, error) {
	if batch <= 0 {
		batch = 1000
	}
	now := s.now()
	var total int64
	for {
		n, err := s.repo.PurgeExpiredShares(ctx, now, batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(batch) {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (s *Service) removeBlobs(ctx context.Context, d *domain.Document) {
	for _, key := range []string{d.StorageKey, d.ThumbnailKey} {
		if key == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, key); err != nil {
			logger.Warn("blob not deleted", "key", key, "error", err)
		}
	}
}

func (s *Service) record(ctx context.Context, userID, action, id string, meta map[string]any) {
	if s.opts.Activity != nil {
		s.opts.Activity.Record(ctx, userID, action, "document", id, meta)
	}
}
