package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
)

// EmployerRepo implements employer.Repository.
type EmployerRepo struct{ s *Store }

var _ employer.Repository = (*EmployerRepo)(nil)

func (r *EmployerRepo) GetProfile(_ context.Context, id string) (*domain.EmployerProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.employers[id]
	if !ok {
		return nil, employer.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *EmployerRepo) GetProfileByUser(_ context.Context, userID string) (*domain.EmployerProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.employers {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, employer.ErrNotFound
}

func (r *EmployerRepo) CreateProfile(_ context.Context, p *domain.EmployerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.employers {
		if x.UserID == p.UserID {
			return employer.ErrDuplicate
		}
	}
	cp := *p
	r.s.employers[p.ID] = &cp
	return nil
}

func (r *EmployerRepo) UpdateProfile(_ context.Context, p *domain.EmployerProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.employers[p.ID]; !ok {
		return employer.ErrNotFound
	}
	cp := *p
	r.s.employers[p.ID] = &cp
	return nil
}

func (r *EmployerRepo) SearchCandidates(_ context.Context, employerID string, f employer.SearchFilter) ([]domain.CandidateSearchResult, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	shortlisted := map[string]bool{}
	for _, e := range r.s.shortlist {
		if e.EmployerID == employerID {
			shortlisted[e.CandidateID] = true
		}
	}

	var profiles []*domain.CandidateProfile
	for _, p := range r.s.candidates {
		if p.Visible {
			profiles = append(profiles, p)
		}
	}
	sort.Slice(profiles, func(i, j int) bool {
		if !profiles[i].UpdatedAt.Equal(profiles[j].UpdatedAt) {
			return profiles[i].UpdatedAt.After(profiles[j].UpdatedAt)
		}
		return profiles[i].ID < profiles[j].ID
	})

	out := []domain.CandidateSearchResult{}
	for _, p := range profiles {
		var name string
		if u, ok := r.s.users[p.UserID]; ok {
			name = u.Name
		}
		var skills []string
		for _, sk := range r.s.skills {
			if sk.CandidateID == p.ID {
				skills = append(skills, sk.Name)
			}
		}
		sort.Strings(skills)

		if f.ShortlistedOnly && !shortlisted[p.ID] {
			continue
		}
		if f.Location != "" && !containsFold(p.Location, f.Location) {
			continue
		}
		if p.YearsExperience < f.MinYears {
			continue
		}
		if f.Availability != "" && p.Availability != f.Availability {
			continue
		}
		if !hasAllSkills(skills, f.Skills) {
			continue
		}
		if f.Keyword != "" && !r.keywordMatch(p, name, skills, f.Keyword) {
			continue
		}
		out = append(out, domain.CandidateSearchResult{
			CandidateID:     p.ID,
			UserID:          p.UserID,
			Name:            name,
			Headline:        p.Headline,
			Location:        p.Location,
			YearsExperience: p.YearsExperience,
			Availability:    p.Availability,
			Skills:          skills,
			Shortlisted:     shortlisted[p.ID],
		})
	}
	return page(out, f.Limit, f.Offset), len(out), nil
}

func (r *EmployerRepo) keywordMatch(p *domain.CandidateProfile, name string, skills []string, kw string) bool {
	if containsFold(p.Headline, kw) || containsFold(p.Summary, kw) || containsFold(name, kw) {
		return true
	}
	for _, sk := range skills {
		if containsFold(sk, kw) {
			return true
		}
	}
	for _, d := range r.s.documents {
		if d.OwnerID == p.UserID && d.Kind == domain.DocumentCV && containsFold(d.ExtractedText, kw) {
			return true
		}
	}
	return false
}

func hasAllSkills(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if strings.EqualFold(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *EmployerRepo) CandidateVisible(_ context.Context, candidateID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.candidates[candidateID]
	return ok && p.Visible, nil
}

func (r *EmployerRepo) JobOwnedBy(_ context.Context, jobID, employerID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	j, ok := r.s.jobs[jobID]
	return ok && j.EmployerID == employerID, nil
}

func (r *EmployerRepo) UpsertShortlist(_ context.Context, e *domain.ShortlistEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.shortlist {
		if x.EmployerID == e.EmployerID && x.CandidateID == e.CandidateID {
			x.Note = e.Note
			x.JobID = e.JobID
			e.ID = x.ID
			e.CreatedAt = x.CreatedAt
			return nil
		}
	}
	cp := *e
	r.s.shortlist[e.ID] = &cp
	return nil
}

func (r *EmployerRepo) DeleteShortlist(_ context.Context, employerID, candidateID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, x := range r.s.shortlist {
		if x.EmployerID == employerID && x.CandidateID == candidateID {
			delete(r.s.shortlist, id)
			return nil
		}
	}
	return employer.ErrNotFound
}

func (r *EmployerRepo) ListShortlist(_ context.Context, employerID string, limit, offset int) ([]domain.ShortlistEntry, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.ShortlistEntry{}
	for _, x := range r.s.shortlist {
		if x.EmployerID != employerID {
			continue
		}
		e := *x
		if p, ok := r.s.candidates[e.CandidateID]; ok {
			e.Headline = p.Headline
			e.Location = p.Location
			if u, ok := r.s.users[p.UserID]; ok {
				e.CandidateName = u.Name
			}
		}
		out = append(out, e)
	}
	newestFirst(out, func(e domain.ShortlistEntry) time.Time { return e.CreatedAt }, func(e domain.ShortlistEntry) string { return e.ID })
	return page(out, limit, offset), len(out), nil
}
