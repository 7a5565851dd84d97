package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
	"github.com/pmonetwork/pmo-network/internal/service/application"
	"github.com/pmonetwork/pmo-network/internal/service/job"
)

// SearchJobs is the public job board: open jobs that have not closed.
// @Summary Search jobs
// @Tags jobs
// @Produce json
// @Param q query string false "Keyword"
// @Param location query string false "Location"
// @Param remote query bool false "Remote only"
// @Param employment_type query string false "full_time, part_time, contract, temporary or internship"
// @Param skill query string false "Required skill"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} PaginatedResponse
// @Router /jobs [get]
func (h *Handlers) SearchJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := ParsePagination(r)
	f := job.SearchFilter{
		Keyword:        q.Get("q"),
		Location:       q.Get("location"),
		EmploymentType: domain.EmploymentType(q.Get("employment_type")),
		Skill:          q.Get("skill"),
		Limit:          p.Limit,
		Offset:         p.Offset,
	}
	if v := q.Get("remote"); v != "" {
		remote, err := strconv.ParseBool(v)
		if err != nil {
			respondErr(w, r, domain.Invalid("remote", "must be true or false"))
			return
		}
		f.Remote = &remote
	}
	items, total, err := h.svc.Jobs.Search(r.Context(), f)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}

// publicJob is a job on the board. Applied and ApplicationStatus are set
// only for a signed-in candidate.
type publicJob struct {
	*domain.Job
	Applied           *bool                    `json:"applied,omitempty"`
	ApplicationStatus domain.ApplicationStatus `json:"application_status,omitempty"`
}

// GetJob returns a published job. A signed-in candidate also sees whether
// they have applied.
// @Summary Get job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} publicJob
// @Failure 404 {object} httputil.ErrorResponse
// @Router /jobs/{id} [get]
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.svc.Jobs.GetPublic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	out := publicJob{Job: j}
	if c := claims(r); c != nil && c.Role == domain.RoleCandidate {
		a, err := h.svc.Applications.ForJob(r.Context(), c.UserID(), j.ID)
		switch {
		case err == nil:
			out.ApplicationStatus = a.Status
		case !errors.Is(err, application.ErrNotFound):
			respondErr(w, r, err)
			return
		}
		applied := err == nil
		out.Applied = &applied
	}
	httputil.OK(w, out)
}
