package memory

import (
	"context"
	"sort"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/application"
)

// ApplicationRepo implements application.Repository.
type ApplicationRepo struct{ s *Store }

var _ application.Repository = (*ApplicationRepo)(nil)

func (s *Store) dropHistory(applicationID string) {
	kept := s.history[:0]
	for _, h := range s.history {
		if h.ApplicationID != applicationID {
			kept = append(kept, h)
		}
	}
	s.history = kept
}

// joinedApplication returns a copy of a with job, employer and candidate
// fields filled in. The caller holds the lock.
func (s *Store) joinedApplication(a *domain.Application) domain.Application {
	cp := *a
	if j, ok := s.jobs[a.JobID]; ok {
		cp.JobTitle = j.Title
		cp.EmployerID = j.EmployerID
		if e, ok := s.employers[j.EmployerID]; ok {
			cp.CompanyName = e.CompanyName
			cp.EmployerUserID = e.UserID
		}
	}
	if p, ok := s.candidates[a.CandidateID]; ok {
		cp.CandidateUserID = p.UserID
		if u, ok := s.users[p.UserID]; ok {
			cp.CandidateName = u.Name
		}
	}
	cp.StatusHistory = nil
	return cp
}

func (r *ApplicationRepo) Create(_ context.Context, a *domain.Application, h *domain.ApplicationStatusHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.jobs[a.JobID]; !ok {
		return application.ErrJobNotFound
	}
	for _, x := range r.s.applications {
		if x.JobID == a.JobID && x.CandidateID == a.CandidateID {
			return application.ErrAlreadyApplied
		}
	}
	cp := *a
	cp.StatusHistory = nil
	r.s.applications[a.ID] = &cp
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r *ApplicationRepo) Get(_ context.Context, id string) (*domain.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.applications[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	out := r.s.joinedApplication(a)
	return &out, nil
}

func (r *ApplicationRepo) History(_ context.Context, applicationID string) ([]domain.ApplicationStatusHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.ApplicationStatusHistory{}
	for _, h := range r.s.history {
		if h.ApplicationID == applicationID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ApplicationRepo) ChangeStatus(_ context.Context, h *domain.ApplicationStatusHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.applications[h.ApplicationID]
	if !ok {
		return application.ErrNotFound
	}
	if a.Status != h.FromStatus {
		return application.ErrStaleStatus
	}
	a.Status = h.ToStatus
	a.UpdatedAt = h.CreatedAt
	r.s.history = append(r.s.history, *h)
	return nil
}

func (r *ApplicationRepo) list(match func(*domain.Application) bool, f application.ListFilter) ([]domain.Application, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Application{}
	for _, a := range r.s.applications {
		if !match(a) || (f.Status != "" && a.Status != f.Status) {
			continue
		}
		out = append(out, r.s.joinedApplication(a))
	}
	newestFirst(out, func(a domain.Application) time.Time { return a.CreatedAt }, func(a domain.Application) string { return a.ID })
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *ApplicationRepo) ListForCandidate(_ context.Context, candidateID string, f application.ListFilter) ([]domain.Application, int, error) {
	return r.list(func(a *domain.Application) bool { return a.CandidateID == candidateID }, f)
}

func (r *ApplicationRepo) FindByCandidateUser(_ context.Context, userID, jobID string) (*domain.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.applications {
		if a.JobID != jobID {
			continue
		}
		if out := r.s.joinedApplication(a); out.CandidateUserID == userID {
			return &out, nil
		}
	}
	return nil, application.ErrNotFound
}

func (r *ApplicationRepo) ListForJob(_ context.Context, jobID string, f application.ListFilter) ([]domain.Application, int, error) {
	return r.list(func(a *domain.Application) bool { return a.JobID == jobID }, f)
}
