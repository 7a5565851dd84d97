package memory

import (
	"context"
	"strings"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/job"
)

// JobRepo implements job.Repository.
type JobRepo struct{ s *Store }

var _ job.Repository = (*JobRepo)(nil)

// joinedJob returns a copy of j with the employer fields filled in. The
// caller holds the lock.
func (s *Store) joinedJob(j *domain.Job) domain.Job {
	cp := *j
	cp.Skills = append([]string(nil), j.Skills...)
	if e, ok := s.employers[j.EmployerID]; ok {
		cp.CompanyName = e.CompanyName
		cp.EmployerUserID = e.UserID
	}
	return cp
}

func (r *JobRepo) Create(_ context.Context, j *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if j.ExternalRef != "" {
		for _, x := range r.s.jobs {
			if x.EmployerID == j.EmployerID && x.ExternalRef == j.ExternalRef {
				return job.ErrDuplicate
			}
		}
	}
	cp := *j
	r.s.jobs[j.ID] = &cp
	return nil
}

func (r *JobRepo) Get(_ context.Context, id string) (*domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[id]
	if !ok {
		return nil, job.ErrNotFound
	}
	out := r.s.joinedJob(j)
	return &out, nil
}

func (r *JobRepo) Update(_ context.Context, j *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.jobs[j.ID]
	if !ok || cur.EmployerID != j.EmployerID {
		return job.ErrNotFound
	}
	cur.Title = j.Title
	cur.Description = j.Description
	cur.Location = j.Location
	cur.Remote = j.Remote
	cur.EmploymentType = j.EmploymentType
	cur.SalaryMin = j.SalaryMin
	cur.SalaryMax = j.SalaryMax
	cur.Currency = j.Currency
	cur.Skills = append([]string(nil), j.Skills...)
	cur.ClosesAt = j.ClosesAt
	cur.UpdatedAt = j.UpdatedAt
	return nil
}

func (r *JobRepo) Delete(_ context.Context, employerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok || j.EmployerID != employerID {
		return job.ErrNotFound
	}
	delete(r.s.jobs, id)
	for aid, a := range r.s.applications {
		if a.JobID == id {
			delete(r.s.applications, aid)
			r.s.dropHistory(aid)
		}
	}
	for _, e := range r.s.shortlist {
		if e.JobID != nil && *e.JobID == id {
			e.JobID = nil
		}
	}
	for _, c := range r.s.conversations {
		if c.JobID != nil && *c.JobID == id {
			c.JobID = nil
		}
	}
	return nil
}

func (r *JobRepo) SetStatus(_ context.Context, employerID, id string, status domain.JobStatus, publishedAt *time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	j, ok := r.s.jobs[id]
	if !ok || j.EmployerID != employerID {
		return job.ErrNotFound
	}
	j.Status = status
	j.PublishedAt = publishedAt
	j.UpdatedAt = r.s.Now()
	return nil
}

func (r *JobRepo) ListByEmployer(_ context.Context, employerID string, f job.ListFilter) ([]domain.Job, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Job{}
	for _, j := range r.s.jobs {
		if j.EmployerID != employerID || (f.Status != "" && j.Status != f.Status) {
			continue
		}
		out = append(out, r.s.joinedJob(j))
	}
	newestFirst(out, func(j domain.Job) time.Time { return j.CreatedAt }, func(j domain.Job) string { return j.ID })
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *JobRepo) Search(_ context.Context, f job.SearchFilter) ([]domain.Job, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	now := r.s.Now()
	out := []domain.Job{}
	for _, j := range r.s.jobs {
		if !j.AcceptsApplications(now) {
			continue
		}
		jj := r.s.joinedJob(j)
		if f.Keyword != "" && !containsFold(jj.Title, f.Keyword) && !containsFold(jj.Description, f.Keyword) && !containsFold(jj.CompanyName, f.Keyword) {
			continue
		}
		if f.Location != "" && !containsFold(jj.Location, f.Location) {
			continue
		}
		if f.Remote != nil && jj.Remote != *f.Remote {
			continue
		}
		if f.EmploymentType != "" && jj.EmploymentType != f.EmploymentType {
			continue
		}
		if f.Skill != "" && !hasAllSkills(jj.Skills, []string{f.Skill}) {
			continue
		}
		out = append(out, jj)
	}
	newestFirst(out, func(j domain.Job) time.Time {
		if j.PublishedAt != nil {
			return *j.PublishedAt
		}
		return j.CreatedAt
	}, func(j domain.Job) string { return j.ID })
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *JobRepo) ExternalRefs(_ context.Context, employerID string) (map[string]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	refs := map[string]bool{}
	for _, j := range r.s.jobs {
		if j.EmployerID == employerID && strings.TrimSpace(j.ExternalRef) != "" {
			refs[j.ExternalRef] = true
		}
	}
	return refs, nil
}
