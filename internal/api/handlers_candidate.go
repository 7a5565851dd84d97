package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
	"github.com/pmonetwork/pmo-network/internal/service/application"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
)

// GetCandidateProfile returns the caller's profile with its collections
// and completeness score.
// @Summary Candidate profile
// @Tags candidate
// @Produce json
// @Success 200 {object} domain.CandidateDetail
// @Router /candidate/profile [get]
func (h *Handlers) GetCandidateProfile(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Candidates.OwnDetail(r.Context(), claims(r).UserID())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, d)
}

// UpdateCandidateProfile applies a partial profile update.
// @Summary Update candidate profile
// @Tags candidate
// @Accept json
// @Produce json
// @Param body body candidate.ProfileUpdate true "Fields to change"
// @Success 200 {object} domain.CandidateProfile
// @Failure 400 {object} httputil.ErrorResponse
// @Router /candidate/profile [put]
func (h *Handlers) UpdateCandidateProfile(w http.ResponseWriter, r *http.Request) {
	var in candidate.ProfileUpdate
	if !httputil.Decode(w, r, &in) {
		return
	}
	userID := claims(r).UserID()
	p, err := h.svc.Candidates.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), userID, "profile.updated", "candidate_profile", p.ID)
	httputil.OK(w, p)
}

// collection serves the CRUD routes of one candidate profile collection.
type collection[T any] struct {
	list   func(ctx context.Context, userID string) ([]T, error)
	add    func(ctx context.Context, userID string, v T) (*T, error)
	update func(ctx context.Context, userID, id string, v T) (*T, error)
	remove func(ctx context.Context, userID, id string) error
}

func (c collection[T]) routes(r chi.Router) {
	r.Get("/", c.handleList)
	r.Post("/", c.handleAdd)
	r.Put("/{id}", c.handleUpdate)
	r.Delete("/{id}", c.handleRemove)
}

func (c collection[T]) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := c.list(r.Context(), claims(r).UserID())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, map[string]any{"data": items})
}

func (c collection[T]) handleAdd(w http.ResponseWriter, r *http.Request) {
	var in T
	if !httputil.Decode(w, r, &in) {
		return
	}
	out, err := c.add(r.Context(), claims(r).UserID(), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.Created(w, out)
}

func (c collection[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in T
	if !httputil.Decode(w, r, &in) {
		return
	}
	out, err := c.update(r.Context(), claims(r).UserID(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, out)
}

func (c collection[T]) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := c.remove(r.Context(), claims(r).UserID(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) skills() collection[domain.Skill] {
	s := h.svc.Candidates
	return collection[domain.Skill]{s.ListSkills, s.AddSkill, s.UpdateSkill, s.DeleteSkill}
}

func (h *Handlers) education() collection[domain.Education] {
	s := h.svc.Candidates
	return collection[domain.Education]{s.ListEducation, s.AddEducation, s.UpdateEducation, s.DeleteEducation}
}

func (h *Handlers) experience() collection[domain.Experience] {
	s := h.svc.Candidates
	return collection[domain.Experience]{s.ListExperience, s.AddExperience, s.UpdateExperience, s.DeleteExperience}
}

func (h *Handlers) certifications() collection[domain.Certification] {
	s := h.svc.Candidates
	return collection[domain.Certification]{s.ListCertifications, s.AddCertification, s.UpdateCertification, s.DeleteCertification}
}

type applyRequest struct {
	CVDocumentID *string `json:"cv_document_id"`
	CoverLetter  string  `json:"cover_letter"`
}

// Apply submits the caller's application to an open job.
// @Summary Apply to a job
// @Tags candidate
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param body body applyRequest true "Application"
// @Success 201 {object} domain.Application
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 409 {object} httputil.ErrorResponse
// @Router /jobs/{id}/apply [post]
func (h *Handlers) Apply(w http.ResponseWriter, r *http.Request) {
	var in applyRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	actor, err := h.candidateActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	a, err := h.svc.Applications.Apply(r.Context(), actor, chi.URLParam(r, "id"), in.CVDocumentID, in.CoverLetter)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.Created(w, a)
}

// ListCandidateApplications lists the caller's applications, newest first.
// @Summary My applications
// @Tags candidate
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} PaginatedResponse
// @Router /candidate/applications [get]
func (h *Handlers) ListCandidateApplications(w http.ResponseWriter, r *http.Request) {
	actor, err := h.candidateActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	p := ParsePagination(r)
	items, total, err := h.svc.Applications.ListForCandidate(r.Context(), actor, application.ListFilter{
		Status: domain.ApplicationStatus(r.URL.Query().Get("status")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}

// GetCandidateApplication returns one of the caller's applications with
// its status history.
func (h *Handlers) GetCandidateApplication(w http.ResponseWriter, r *http.Request) {
	actor, err := h.candidateActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	a, err := h.svc.Applications.GetForCandidate(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, a)
}

// WithdrawApplication pulls the caller out of a job's pipeline.
// @Summary Withdraw application
// @Tags candidate
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} domain.Application
// @Failure 400 {object} httputil.ErrorResponse
// @Router /candidate/applications/{id}/withdraw [post]
func (h *Handlers) WithdrawApplication(w http.ResponseWriter, r *http.Request) {
	actor, err := h.candidateActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	a, err := h.svc.Applications.Withdraw(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, a)
}
