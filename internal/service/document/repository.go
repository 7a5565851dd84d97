package document

import (
	"context"
	"io"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// Repository defines the data access contract for documents and shares.
type Repository interface {
	Create(ctx context.Context, d *domain.Document) error
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, ownerID string, kind domain.DocumentKind, limit, offset int) ([]domain.Document, int, error)
	Delete(ctx context.Context, ownerID, id string) error

	// UpsertShare creates the share or updates the expiry of an existing
	// share for the same (document, user). s.ID is set to the stored id.
	UpsertShare(ctx context.Context, s *domain.SharedDocument) error
	// GetShare returns ErrShareNotFound when the document is not shared
	// with userID.
	GetShare(ctx context.Context, documentID, userID string) (*domain.SharedDocument, error)
	DeleteShare(ctx context.Context, documentID, shareID string) error
	ListShares(ctx context.Context, documentID string) ([]domain.SharedDocument, error)
	// SharedWith lists unexpired shares granted to userID.
	SharedWith(ctx context.Context, userID string, now time.Time, limit, offset int) ([]domain.SharedDocument, int, error)
	// SubmittedToEmployer reports whether the document is the CV of an
	// application to a job owned by the employer user.
	SubmittedToEmployer(ctx context.Context, documentID, employerUserID string) (bool, error)
	// PurgeExpiredShares deletes at most batch shares that expired before
	// now and returns the number removed.
	PurgeExpiredShares(ctx context.Context, now time.Time, batch int) (int64, error)
}

// BlobStore holds document bytes.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// TextExtractor pulls plain text out of office documents.
type TextExtractor interface {
	Extract(ctx context.Context, r io.Reader, contentType string) (string, error)
}

// Thumbnailer renders a JPEG thumbnail no larger than size pixels.
type Thumbnailer interface {
	Thumbnail(r io.Reader, size int) ([]byte, error)
}

// UserDirectory resolves share targets.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// EventPublisher pushes realtime toasts to a user.
type EventPublisher interface {
	Publish(ctx context.Context, userID string, e domain.Event) error
}

// ActivityRecorder writes the audit trail. It never fails the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, action, entityType, entityID string, meta map[string]any)
}

// Options bundles the optional collaborators. Nil members disable the
// feature.
type Options struct {
	Extractor   TextExtractor
	Thumbnailer Thumbnailer
	Events      EventPublisher
	Activity    ActivityRecorder
	// TempDir holds upload spool files; empty means os.TempDir.
	TempDir string
}
