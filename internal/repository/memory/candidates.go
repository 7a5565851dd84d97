package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
)

// CandidateRepo implements candidate.Repository.
type CandidateRepo struct{ s *Store }

var _ candidate.Repository = (*CandidateRepo)(nil)

func (r *CandidateRepo) GetProfile(_ context.Context, id string) (*domain.CandidateProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.candidates[id]
	if !ok {
		return nil, candidate.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *CandidateRepo) GetProfileByUser(_ context.Context, userID string) (*domain.CandidateProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.candidates {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, candidate.ErrNotFound
}

func (r *CandidateRepo) CreateProfile(_ context.Context, p *domain.CandidateProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.candidates {
		if x.UserID == p.UserID {
			return candidate.ErrDuplicate
		}
	}
	cp := *p
	r.s.candidates[p.ID] = &cp
	return nil
}

func (r *CandidateRepo) UpdateProfile(_ context.Context, p *domain.CandidateProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.candidates[p.ID]; !ok {
		return candidate.ErrNotFound
	}
	cp := *p
	r.s.candidates[p.ID] = &cp
	return nil
}

func (r *CandidateRepo) ListSkills(_ context.Context, candidateID string) ([]domain.Skill, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Skill{}
	for _, sk := range r.s.skills {
		if sk.CandidateID == candidateID {
			out = append(out, *sk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out, nil
}

func (r *CandidateRepo) skillTaken(candidateID, name, exceptID string) bool {
	for _, sk := range r.s.skills {
		if sk.CandidateID == candidateID && sk.ID != exceptID && strings.EqualFold(sk.Name, name) {
			return true
		}
	}
	return false
}

func (r *CandidateRepo) AddSkill(_ context.Context, sk *domain.Skill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.skillTaken(sk.CandidateID, sk.Name, "") {
		return candidate.ErrDuplicate
	}
	cp := *sk
	r.s.skills[sk.ID] = &cp
	return nil
}

func (r *CandidateRepo) UpdateSkill(_ context.Context, sk *domain.Skill) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.skills[sk.ID]
	if !ok || cur.CandidateID != sk.CandidateID {
		return candidate.ErrNotFound
	}
	if r.skillTaken(sk.CandidateID, sk.Name, sk.ID) {
		return candidate.ErrDuplicate
	}
	sk.CreatedAt = cur.CreatedAt
	cp := *sk
	r.s.skills[sk.ID] = &cp
	return nil
}

func (r *CandidateRepo) DeleteSkill(_ context.Context, candidateID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sk, ok := r.s.skills[id]; !ok || sk.CandidateID != candidateID {
		return candidate.ErrNotFound
	}
	delete(r.s.skills, id)
	return nil
}

func (r *CandidateRepo) ListEducation(_ context.Context, candidateID string) ([]domain.Education, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Education{}
	for _, e := range r.s.education {
		if e.CandidateID == candidateID {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if less, ok := laterFirst(out[i].StartDate, out[j].StartDate); ok {
			return less
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *CandidateRepo) AddEducation(_ context.Context, e *domain.Education) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *e
	r.s.education[e.ID] = &cp
	return nil
}

func (r *CandidateRepo) UpdateEducation(_ context.Context, e *domain.Education) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.education[e.ID]
	if !ok || cur.CandidateID != e.CandidateID {
		return candidate.ErrNotFound
	}
	e.CreatedAt = cur.CreatedAt
	cp := *e
	r.s.education[e.ID] = &cp
	return nil
}

func (r *CandidateRepo) DeleteEducation(_ context.Context, candidateID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.education[id]; !ok || e.CandidateID != candidateID {
		return candidate.ErrNotFound
	}
	delete(r.s.education, id)
	return nil
}

func (r *CandidateRepo) ListExperience(_ context.Context, candidateID string) ([]domain.Experience, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Experience{}
	for _, e := range r.s.experience {
		if e.CandidateID == candidateID {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *CandidateRepo) AddExperience(_ context.Context, e *domain.Experience) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *e
	r.s.experience[e.ID] = &cp
	return nil
}

func (r *CandidateRepo) UpdateExperience(_ context.Context, e *domain.Experience) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.experience[e.ID]
	if !ok || cur.CandidateID != e.CandidateID {
		return candidate.ErrNotFound
	}
	e.CreatedAt = cur.CreatedAt
	cp := *e
	r.s.experience[e.ID] = &cp
	return nil
}

func (r *CandidateRepo) DeleteExperience(_ context.Context, candidateID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.experience[id]; !ok || e.CandidateID != candidateID {
		return candidate.ErrNotFound
	}
	delete(r.s.experience, id)
	return nil
}

func (r *CandidateRepo) ListCertifications(_ context.Context, candidateID string) ([]domain.Certification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Certification{}
	for _, c := range r.s.certifications {
		if c.CandidateID == candidateID {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if less, ok := laterFirst(out[i].IssuedAt, out[j].IssuedAt); ok {
			return less
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *CandidateRepo) AddCertification(_ context.Context, c *domain.Certification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.certifications[c.ID] = &cp
	return nil
}

func (r *CandidateRepo) UpdateCertification(_ context.Context, c *domain.Certification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.certifications[c.ID]
	if !ok || cur.CandidateID != c.CandidateID {
		return candidate.ErrNotFound
	}
	c.CreatedAt = cur.CreatedAt
	cp := *c
	r.s.certifications[c.ID] = &cp
	return nil
}

func (r *CandidateRepo) DeleteCertification(_ context.Context, candidateID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.certifications[id]; !ok || c.CandidateID != candidateID {
		return candidate.ErrNotFound
	}
	delete(r.s.certifications, id)
	return nil
}
