package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
	"github.com/pmonetwork/pmo-network/internal/service/application"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
	"github.com/pmonetwork/pmo-network/internal/service/job"
)

// GetEmployerProfile returns the caller's company profile.
// @Summary Employer profile
// @Tags employer
// @Produce json
// @Success 200 {object} domain.EmployerProfile
// @Router /employer/profile [get]
func (h *Handlers) GetEmployerProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Employers.GetProfile(r.Context(), claims(r).UserID())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, p)
}

// UpdateEmployerProfile applies a partial profile update.
// @Summary Update employer profile
// @Tags employer
// @Accept json
// @Produce json
// @Param body body employer.ProfileUpdate true "Fields to change"
// @Success 200 {object} domain.EmployerProfile
// @Failure 400 {object} httputil.ErrorResponse
// @Router /employer/profile [put]
func (h *Handlers) UpdateEmployerProfile(w http.ResponseWriter, r *http.Request) {
	var in employer.ProfileUpdate
	if !httputil.Decode(w, r, &in) {
		return
	}
	userID := claims(r).UserID()
	p, err := h.svc.Employers.UpdateProfile(r.Context(), userID, in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), userID, "profile.updated", "employer_profile", p.ID)
	httputil.OK(w, p)
}

// splitList reads a query parameter given either repeated or comma
// separated.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// SearchCandidates runs the employer's candidate search over visible
// profiles.
// @Summary Search candidates
// @Tags employer
// @Produce json
// @Param q query string false "Keyword"
// @Param skills query string false "Comma separated skills, all required"
// @Param location query string false "Location"
// @Param min_years query int false "Minimum years of experience"
// @Param availability query string false "Availability"
// @Param shortlisted query bool false "Only shortlisted candidates"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} PaginatedResponse
// @Router /employer/search [get]
func (h *Handlers) SearchCandidates(w http.ResponseWriter, r *http.Request) {
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	q := r.URL.Query()
	p := ParsePagination(r)
	f := employer.SearchFilter{
		Keyword:         q.Get("q"),
		Skills:          splitList(q["skills"]),
		Location:        q.Get("location"),
		Availability:    domain.Availability(q.Get("availability")),
		ShortlistedOnly: q.Get("shortlisted") == "true",
		Limit:           p.Limit,
		Offset:          p.Offset,
	}
	if v := q.Get("min_years"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondErr(w, r, domain.Invalid("min_years", "must be a number"))
			return
		}
		f.MinYears = n
	}
	items, total, err := h.svc.Employers.Search(r.Context(), actor.ProfileID, f)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}

// GetCandidate returns a visible candidate's full profile.
func (h *Handlers) GetCandidate(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Candidates.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), claims(r).UserID(), "candidate.viewed", "candidate_profile", d.Profile.ID)
	httputil.OK(w, d)
}

type shortlistRequest struct {
	CandidateID string  `json:"candidate_id"`
	JobID       *string `json:"job_id"`
	Note        string  `json:"note"`
}

// ListShortlist returns the employer's shortlist, newest first.
func (h *Handlers) ListShortlist(w http.ResponseWriter, r *http.Request) {
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	p := ParsePagination(r)
	items, total, err := h.svc.Employers.ListShortlist(r.Context(), actor.ProfileID, p.Limit, p.Offset)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}

// AddToShortlist saves a candidate to the shortlist. Saving again updates
// the note and job.
// @Summary Shortlist a candidate
// @Tags employer
// @Accept json
// @Produce json
// @Param body body shortlistRequest true "Candidate"
// @Success 201 {object} domain.ShortlistEntry
// @Failure 404 {object} httputil.ErrorResponse
// @Router /employer/shortlist [post]
func (h *Handlers) AddToShortlist(w http.ResponseWriter, r *http.Request) {
	var in shortlistRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	e, err := h.svc.Employers.Shortlist(r.Context(), actor.ProfileID, in.CandidateID, in.JobID, in.Note)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), actor.UserID, "candidate.shortlisted", "candidate_profile", in.CandidateID)
	httputil.Created(w, e)
}

// RemoveFromShortlist drops a candidate from the shortlist.
func (h *Handlers) RemoveFromShortlist(w http.ResponseWriter, r *http.Request) {
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.svc.Employers.RemoveFromShortlist(r.Context(), actor.ProfileID, chi.URLParam(r, "candidateId")); err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// ListEmployerJobs lists the employer's jobs, newest first.
// @Summary My jobs
// @Tags employer
// @Produce json
// @Param status query string false "draft, open or closed"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} PaginatedResponse
// @Router /employer/jobs [get]
func (h *Handlers) ListEmployerJobs(w http.ResponseWriter, r *http.Request) {
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	p := ParsePagination(r)
	items, total, err := h.svc.Jobs.List(r.Context(), actor.ProfileID, job.ListFilter{
		Status: domain.JobStatus(r.URL.Query().Get("status")),
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}

// CreateJob adds a draft job.
// @Summary Create job
// @Tags employer
// @Accept json
// @Produce json
// @Param body body job.Input true "Job"
// @Success 201 {object} domain.Job
// @Failure 400 {object} httputil.ErrorResponse
// @Router /employer/jobs [post]
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var in job.Input
	if !httputil.Decode(w, r, &in) {
		return
	}
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	j, err := h.svc.Jobs.Create(r.Context(), actor.ProfileID, in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), actor.UserID, "job.created", "job", j.ID)
	httputil.Created(w, j)
}

// GetEmployerJob returns one of the employer's jobs, drafts included.
func (h *Handlers) GetEmployerJob(w http.ResponseWriter, r *http.Request) {
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	j, err := h.svc.Jobs.Get(r.Context(), actor.ProfileID, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, j)
}

// UpdateJob replaces a job's editable fields.
func (h *Handlers) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var in job.Input
	if !httputil.Decode(w, r, &in) {
		return
	}
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	j, err := h.svc.Jobs.Update(r.Context(), actor.ProfileID, chi.URLParam(r, "id"), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), actor.UserID, "job.updated", "job", j.ID)
	httputil.OK(w, j)
}

// DeleteJob removes a job and its applications.
func (h *Handlers) DeleteJob(w http.ResponseWriter, r *http.Request) {
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.Jobs.Delete(r.Context(), actor.ProfileID, id); err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), actor.UserID, "job.deleted", "job", id)
	httputil.NoContent(w)
}

type jobStatusRequest struct {
	Status domain.JobStatus `json:"status"`
}

// SetJobStatus publishes, closes or reopens a job.
// @Summary Change job status
// @Tags employer
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param body body jobStatusRequest true "New status"
// @Success 200 {object} domain.Job
// @Failure 400 {object} httputil.ErrorResponse
// @Router /employer/jobs/{id}/status [post]
func (h *Handlers) SetJobStatus(w http.ResponseWriter, r *http.Request) {
	var in jobStatusRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	j, err := h.svc.Jobs.SetStatus(r.Context(), actor.ProfileID, chi.URLParam(r, "id"), in.Status)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), actor.UserID, "job.status_changed", "job", j.ID)
	httputil.OK(w, j)
}

type importRequest struct {
	URL string `json:"url"`
}

// ImportJobs creates draft jobs from an RSS or Atom feed.
// @Summary Import jobs from a feed
// @Tags employer
// @Accept json
// @Produce json
// @Param body body importRequest true "Feed URL"
// @Success 200 {object} job.ImportResult
// @Failure 400 {object} httputil.ErrorResponse
// @Router /employer/jobs/import [post]
func (h *Handlers) ImportJobs(w http.ResponseWriter, r *http.Request) {
	var in importRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	res, err := h.svc.Jobs.ImportFeed(r.Context(), actor.ProfileID, in.URL)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), actor.UserID, "job.imported", "employer_profile", actor.ProfileID)
	httputil.OK(w, res)
}

// ListJobApplications lists the applications to one of the employer's jobs.
func (h *Handlers) ListJobApplications(w http.ResponseWriter, r *http.Request) {
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	p := ParsePagination(r)
	items, total, err := h.svc.Applications.ListForJob(r.Context(), actor, chi.URLParam(r, "id"), application.ListFilter{
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

// GetEmployerApplication returns an application to one of the employer's
// jobs with its status history.
func (h *Handlers) GetEmployerApplication(w http.ResponseWriter, r *http.Request) {
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	a, err := h.svc.Applications.GetForEmployer(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, a)
}

type applicationStatusRequest struct {
	Status domain.ApplicationStatus `json:"status"`
	Note   string                   `json:"note"`
}

// ChangeApplicationStatus moves an application through the pipeline.
// @Summary Change application status
// @Tags employer
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param body body applicationStatusRequest true "Target status"
// @Success 200 {object} domain.Application
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 409 {object} httputil.ErrorResponse
// @Router /employer/applications/{id}/status [put]
func (h *Handlers) ChangeApplicationStatus(w http.ResponseWriter, r *http.Request) {
	var in applicationStatusRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	actor, err := h.employerActor(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	a, err := h.svc.Applications.ChangeStatus(r.Context(), actor, chi.URLParam(r, "id"), in.Status, in.Note)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, a)
}

// ListSharedDocuments lists documents candidates shared with the caller.
func (h *Handlers) ListSharedDocuments(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	items, total, err := h.svc.Documents.SharedWithMe(r.Context(), claims(r).UserID(), p.Limit, p.Offset)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}
