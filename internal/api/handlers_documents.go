package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
	"github.com/pmonetwork/pmo-network/internal/service/document"
)

// maxUploadBody bounds a whole multipart upload: the largest per-kind
// limit plus room for the form fields.
var maxUploadBody = domain.DocumentVideo.MaxSize() + 1<<20

var errMissingFile = domain.Invalid("file", "is required")

// UploadDocument stores a file from a multipart form with fields kind,
// title and file. kind must precede file; it may also be given as a query
// parameter.
// @Summary Upload document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param kind formData string true "cv, cover_letter, certificate, video, avatar, logo or other"
// @Param title formData string false "Title"
// @Param file formData file true "File"
// @Success 201 {object} domain.Document
// @Failure 400 {object} httputil.ErrorResponse
// @Router /documents [post]
func (h *Handlers) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	mr, err := r.MultipartReader()
	if err != nil {
		respondErr(w, r, domain.Invalid("body", "must be multipart/form-data"))
		return
	}

	in := document.UploadInput{Kind: domain.DocumentKind(r.URL.Query().Get("kind"))}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			respondErr(w, r, errMissingFile)
			return
		}
		if err != nil {
			respondErr(w, r, domain.Invalid("body", "malformed multipart form"))
			return
		}

		switch part.FormName() {
		case "kind", "title":
			v, err := io.ReadAll(io.LimitReader(part, 1024))
			part.Close()
			if err != nil {
				respondErr(w, r, err)
				return
			}
			if part.FormName() == "kind" {
				in.Kind = domain.DocumentKind(v)
			} else {
				in.Title = string(v)
			}
		case "file":
			in.FileName = part.FileName()
			in.Body = part
			d, err := h.svc.Documents.Upload(r.Context(), claims(r).UserID(), in)
			part.Close()
			if err != nil {
				respondErr(w, r, err)
				return
			}
			httputil.Created(w, d)
			return
		default:
			part.Close()
		}
	}
}

// ListDocuments lists the caller's documents, newest first.
// @Summary My documents
// @Tags documents
// @Produce json
// @Param kind query string false "Kind filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} PaginatedResponse
// @Router /documents [get]
func (h *Handlers) ListDocuments(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	kind := domain.DocumentKind(r.URL.Query().Get("kind"))
	items, total, err := h.svc.Documents.List(r.Context(), claims(r).UserID(), kind, p.Limit, p.Offset)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}

// GetDocument returns document metadata the caller may read.
// @Summary Get document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} domain.Document
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 410 {object} httputil.ErrorResponse
// @Router /documents/{id} [get]
func (h *Handlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Documents.Get(r.Context(), viewer(r), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, d)
}

// DownloadDocument streams the document bytes.
func (h *Handlers) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	d, rc, err := h.svc.Documents.Open(r.Context(), viewer(r), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(d.Size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warn("document download interrupted", "document_id", d.ID, "error", err)
	}
}

// DocumentThumbnail streams the JPEG thumbnail of an image document.
func (h *Handlers) DocumentThumbnail(w http.ResponseWriter, r *http.Request) {
	rc, err := h.svc.Documents.Thumbnail(r.Context(), viewer(r), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, rc); err != nil {
		logger.Warn("thumbnail download interrupted", "error", err)
	}
}

// DeleteDocument removes one of the caller's documents.
func (h *Handlers) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Documents.Delete(r.Context(), claims(r).UserID(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.NoContent(w)
}

type shareRequest struct {
	UserID    string     `json:"user_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// ShareDocument grants an employer access to one of the caller's
// documents.
// @Summary Share document
// @Tags documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param body body shareRequest true "Employer user and optional expiry"
// @Success 201 {object} domain.SharedDocument
// @Failure 400 {object} httputil.ErrorResponse
// @Router /documents/{id}/shares [post]
func (h *Handlers) ShareDocument(w http.ResponseWriter, r *http.Request) {
	var in shareRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	s, err := h.svc.Documents.Share(r.Context(), claims(r).UserID(), chi.URLParam(r, "id"), in.UserID, in.ExpiresAt)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.Created(w, s)
}

// ListDocumentShares lists who a document is shared with.
func (h *Handlers) ListDocumentShares(w http.ResponseWriter, r *http.Request) {
	shares, err := h.svc.Documents.ListShares(r.Context(), claims(r).UserID(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"data": shares})
}

// RevokeShare withdraws a share.
func (h *Handlers) RevokeShare(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Documents.Revoke(r.Context(), claims(r).UserID(), chi.URLParam(r, "id"), chi.URLParam(r, "shareId"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.NoContent(w)
}
