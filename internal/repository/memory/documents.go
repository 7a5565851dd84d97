package memory

import (
	"context"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/document"
)

// DocumentRepo implements document.Repository.
type DocumentRepo struct{ s *Store }

var _ document.Repository = (*DocumentRepo)(nil)

func (r *DocumentRepo) Create(_ context.Context, d *domain.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *d
	r.s.documents[d.ID] = &cp
	return nil
}

func (r *DocumentRepo) Get(_ context.Context, id string) (*domain.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	d, ok := r.s.documents[id]
	if !ok {
		return nil, document.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *DocumentRepo) List(_ context.Context, ownerID string, kind domain.DocumentKind, limit, offset int) ([]domain.Document, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Document{}
	for _, d := range r.s.documents {
		if d.OwnerID == ownerID && (kind == "" || d.Kind == kind) {
			out = append(out, *d)
		}
	}
	newestFirst(out, func(d domain.Document) time.Time { return d.CreatedAt }, func(d domain.Document) string { return d.ID })
	return page(out, limit, offset), len(out), nil
}

func (r *DocumentRepo) Delete(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.documents[id]
	if !ok || d.OwnerID != ownerID {
		return document.ErrNotFound
	}
	delete(r.s.documents, id)
	for sid, sh := range r.s.shares {
		if sh.DocumentID == id {
			delete(r.s.shares, sid)
		}
	}
	for _, a := range r.s.applications {
		if a.CVDocumentID != nil && *a.CVDocumentID == id {
			a.CVDocumentID = nil
		}
	}
	return nil
}

func (r *DocumentRepo) UpsertShare(_ context.Context, s *domain.SharedDocument) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.documents[s.DocumentID]; !ok {
		return document.ErrNotFound
	}
	for _, x := range r.s.shares {
		if x.DocumentID == s.DocumentID && x.SharedWithID == s.SharedWithID {
			x.ExpiresAt = s.ExpiresAt
			s.ID = x.ID
			s.CreatedAt = x.CreatedAt
			return nil
		}
	}
	cp := *s
	r.s.shares[s.ID] = &cp
	return nil
}

// joinedShare fills the display fields. The caller holds the lock.
func (s *Store) joinedShare(sh *domain.SharedDocument) domain.SharedDocument {
	cp := *sh
	if d, ok := s.documents[sh.DocumentID]; ok {
		cp.DocumentTitle = d.Title
		cp.DocumentKind = d.Kind
	}
	if u, ok := s.users[sh.OwnerID]; ok {
		cp.OwnerName = u.Name
	}
	if u, ok := s.users[sh.SharedWithID]; ok {
		cp.SharedWithName = u.Name
	}
	return cp
}

func (r *DocumentRepo) GetShare(_ context.Context, documentID, userID string) (*domain.SharedDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, sh := range r.s.shares {
		if sh.DocumentID == documentID && sh.SharedWithID == userID {
			out := r.s.joinedShare(sh)
			return &out, nil
		}
	}
	return nil, document.ErrShareNotFound
}

func (r *DocumentRepo) DeleteShare(_ context.Context, documentID, shareID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sh, ok := r.s.shares[shareID]
	if !ok || sh.DocumentID != documentID {
		return document.ErrShareNotFound
	}
	delete(r.s.shares, shareID)
	return nil
}

func (r *DocumentRepo) ListShares(_ context.Context, documentID string) ([]domain.SharedDocument, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.SharedDocument{}
	for _, sh := range r.s.shares {
		if sh.DocumentID == documentID {
			out = append(out, r.s.joinedShare(sh))
		}
	}
	newestFirst(out, func(s domain.SharedDocument) time.Time { return s.CreatedAt }, func(s domain.SharedDocument) string { return s.ID })
	return out, nil
}

func (r *DocumentRepo) SharedWith(_ context.Context, userID string, now time.Time, limit, offset int) ([]domain.SharedDocument, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.SharedDocument{}
	for _, sh := range r.s.shares {
		if sh.SharedWithID == userID && !sh.Expired(now) {
			out = append(out, r.s.joinedShare(sh))
		}
	}
	newestFirst(out, func(s domain.SharedDocument) time.Time { return s.CreatedAt }, func(s domain.SharedDocument) string { return s.ID })
	return page(out, limit, offset), len(out), nil
}

func (r *DocumentRepo) SubmittedToEmployer(_ context.Context, documentID, employerUserID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.applications {
		if a.CVDocumentID == nil || *a.CVDocumentID != documentID {
			continue
		}
		j, ok := r.s.jobs[a.JobID]
		if !ok {
			continue
		}
		if e, ok := r.s.employers[j.EmployerID]; ok && e.UserID == employerUserID {
			return true, nil
		}
	}
	return false, nil
}

func (r *DocumentRepo) PurgeExpiredShares(_ context.Context, now time.Time, batch int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, sh := range r.s.shares {
		if batch > 0 && n >= int64(batch) {
			break
		}
		if sh.Expired(now) {
			delete(r.s.shares, id)
			n++
		}
	}
	return n, nil
}
