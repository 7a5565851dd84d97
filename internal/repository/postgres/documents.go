package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/document"
)

// DocumentRepo implements document.Repository against PostgreSQL.
type DocumentRepo struct{ db *sql.DB }

var _ document.Repository = (*DocumentRepo)(nil)

// NewDocumentRepo creates a Postgres-backed document repository.
func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{db: db} }

const documentColumns = `id, owner_id, kind, title, file_name, content_type, size_bytes, checksum,
	storage_key, thumbnail_key, extracted_text, created_at`

func scanDocument(row rowScanner) (*domain.Document, error) {
	d := &domain.Document{}
	err := row.Scan(&d.ID, &d.OwnerID, &d.Kind, &d.Title, &d.FileName, &d.ContentType, &d.Size,
		&d.Checksum, &d.StorageKey, &d.ThumbnailKey, &d.ExtractedText, &d.CreatedAt)
	if isMissing(err) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.HasThumbnail = d.ThumbnailKey != ""
	return d, nil
}

func (r *DocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, d.ID, d.OwnerID, d.Kind, d.Title, d.FileName, d.ContentType, d.Size,
		d.Checksum, d.StorageKey, d.ThumbnailKey, d.ExtractedText, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*domain.Document, error) {
	return scanDocument(r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

func (r *DocumentRepo) List(ctx context.Context, ownerID string, kind domain.DocumentKind, limit, offset int) ([]domain.Document, int, error) {
	f := &filter{}
	f.and("owner_id = " + f.arg(ownerID))
	if kind != "" {
		f.and("kind = " + f.arg(kind))
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	q := `SELECT ` + documentColumns + ` FROM documents` + f.where() + ` ORDER BY created_at DESC, id DESC` + f.page(limit, offset)
	rows, err := r.db.QueryContext(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	out := []domain.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// Delete removes the row; shares cascade and application CV references are
// cleared by the schema.
func (r *DocumentRepo) Delete(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if isInvalidText(err) {
		return document.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return document.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) UpsertShare(ctx context.Context, s *domain.SharedDocument) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO shared_documents (id, document_id, owner_id, shared_with_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id, shared_with_id)
		DO UPDATE SET expires_at = EXCLUDED.expires_at
		RETURNING id, created_at
	`, s.ID, s.DocumentID, s.OwnerID, s.SharedWithID, s.ExpiresAt, s.CreatedAt).Scan(&s.ID, &s.CreatedAt)
	if isDanglingRef(err) {
		return document.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("upsert share: %w", err)
	}
	return nil
}

const shareSelect = `
	SELECT s.id, s.document_id, s.owner_id, s.shared_with_id, s.expires_at, s.created_at,
	       d.title, d.kind, o.name, w.name
	FROM shared_documents s
	JOIN documents d ON d.id = s.document_id
	JOIN users o ON o.id = s.owner_id
	JOIN users w ON w.id = s.shared_with_id`

func scanShare(row rowScanner) (*domain.SharedDocument, error) {
	s := &domain.SharedDocument{}
	err := row.Scan(&s.ID, &s.DocumentID, &s.OwnerID, &s.SharedWithID, &s.ExpiresAt, &s.CreatedAt,
		&s.DocumentTitle, &s.DocumentKind, &s.OwnerName, &s.SharedWithName)
	if isMissing(err) {
		return nil, document.ErrShareNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan share: %w", err)
	}
	return s, nil
}

func (r *DocumentRepo) queryShares(ctx context.Context, q string, args ...interface{}) ([]domain.SharedDocument, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()
	out := []domain.SharedDocument{}
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *DocumentRepo) GetShare(ctx context.Context, documentID, userID string) (*domain.SharedDocument, error) {
	return scanShare(r.db.QueryRowContext(ctx, shareSelect+` WHERE s.document_id = $1 AND s.shared_with_id = $2`, documentID, userID))
}

func (r *DocumentRepo) DeleteShare(ctx context.Context, documentID, shareID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shared_documents WHERE id = $1 AND document_id = $2`, shareID, documentID)
	if isInvalidText(err) {
		return document.ErrShareNotFound
	}
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return document.ErrShareNotFound
	}
	return nil
}

func (r *DocumentRepo) ListShares(ctx context.Context, documentID string) ([]domain.SharedDocument, error) {
	return r.queryShares(ctx, shareSelect+` WHERE s.document_id = $1 ORDER BY s.created_at DESC, s.id DESC`, documentID)
}

func (r *DocumentRepo) SharedWith(ctx context.Context, userID string, now time.Time, limit, offset int) ([]domain.SharedDocument, int, error) {
	f := &filter{}
	f.and("s.shared_with_id = " + f.arg(userID))
	f.and("(s.expires_at IS NULL OR s.expires_at > " + f.arg(now) + ")")
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shared_documents s`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shares: %w", err)
	}
	q := shareSelect + f.where() + ` ORDER BY s.created_at DESC, s.id DESC` + f.page(limit, offset)
	out, err := r.queryShares(ctx, q, f.args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *DocumentRepo) SubmittedToEmployer(ctx context.Context, documentID, employerUserID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications a
			JOIN jobs j ON j.id = a.job_id
			JOIN employer_profiles e ON e.id = j.employer_id
			WHERE a.cv_document_id = $1 AND e.user_id = $2)
	`, documentID, employerUserID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("submitted to employer: %w", err)
	}
	return ok, nil
}

func (r *DocumentRepo) PurgeExpiredShares(ctx context.Context, now time.Time, batch int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM shared_documents WHERE id IN (
			SELECT id FROM shared_documents WHERE expires_at <= $1 LIMIT $2)
	`, now, batch)
	if err != nil {
		return 0, fmt.Errorf("purge expired shares: %w", err)
	}
	return res.RowsAffected()
}
