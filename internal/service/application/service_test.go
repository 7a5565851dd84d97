package application_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/repository/memory"
	"github.com/pmonetwork/pmo-network/internal/service/application"
)

type docLookup struct{ repo *memory.DocumentRepo }

func (d docLookup) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return d.repo.Get(ctx, id)
}

type published struct {
	userID string
	event  domain.Event
}

type recorder struct {
	mu      sync.Mutex
	events  []published
	emails  []string
	actions []string
}

func (r *recorder) Publish(_ context.Context, userID string, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{userID, e})
	return nil
}

func (r *recorder) ApplicationStatusChanged(_ context.Context, a *domain.Application, note string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails = append(r.emails, string(a.Status)+":"+note)
	return nil
}

func (r *recorder) Record(_ context.Context, _, action, _, _ string, _ map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

type fixture struct {
	store     *memory.Store
	svc       *application.Service
	hooks     *recorder
	candidate domain.Actor
	employer  domain.Actor
	rival     domain.Actor
	job       *domain.Job
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	rec := &recorder{}
	f := &fixture{
		store: store,
		hooks: rec,
		svc: application.NewService(store.Applications(), store.Jobs(), docLookup{store.Documents()}, application.Hooks{
			Notifier: rec, Events: rec, Activity: rec,
		}),
	}

	newUser := func(role domain.Role) *domain.User {
		u := &domain.User{ID: uuid.New().String(), Email: uuid.New().String() + "@example.com", Name: string(role), Role: role}
		require.NoError(t, store.Accounts().CreateUser(ctx, u))
		return u
	}
	cu := newUser(domain.RoleCandidate)
	cp := &domain.CandidateProfile{ID: uuid.New().String(), UserID: cu.ID, Visible: true}
	require.NoError(t, store.Candidates().CreateProfile(ctx, cp))
	f.candidate = domain.Actor{UserID: cu.ID, ProfileID: cp.ID, Role: domain.RoleCandidate}

	for _, a := range []*domain.Actor{&f.employer, &f.rival} {
		eu := newUser(domain.RoleEmployer)
		ep := &domain.EmployerProfile{ID: uuid.New().String(), UserID: eu.ID, CompanyName: "Acme"}
		require.NoError(t, store.Employers().CreateProfile(ctx, ep))
		*a = domain.Actor{UserID: eu.ID, ProfileID: ep.ID, Role: domain.RoleEmployer}
	}

	f.job = f.newJob(t, domain.JobOpen, nil)
	return f
}

func (f *fixture) newJob(t *testing.T, status domain.JobStatus, closesAt *time.Time) *domain.Job {
	t.Helper()
	j := &domain.Job{ID: uuid.New().String(), EmployerID: f.employer.ProfileID, Title: "PMO Lead", Status: status, ClosesAt: closesAt, CreatedAt: time.Now()}
	require.NoError(t, f.store.Jobs().Create(context.Background(), j))
	return j
}

func (f *fixture) document(t *testing.T, owner string, kind domain.DocumentKind) string {
	t.Helper()
	d := &domain.Document{ID: uuid.New().String(), OwnerID: owner, Kind: kind, Title: "file", StorageKey: uuid.New().String(), CreatedAt: time.Now()}
	require.NoError(t, f.store.Documents().Create(context.Background(), d))
	return d.ID
}

func TestApply(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cv := f.document(t, f.candidate.UserID, domain.DocumentCV)

	a, err := f.svc.Apply(ctx, f.candidate, f.job.ID, &cv, "  I am keen  ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApplied, a.Status)
	assert.Equal(t, "I am keen", a.CoverLetter)
	require.Len(t, a.StatusHistory, 1)
	assert.Equal(t, domain.ApplicationStatus(""), a.StatusHistory[0].FromStatus)
	assert.Equal(t, domain.StatusApplied, a.StatusHistory[0].ToStatus)

	require.Len(t, f.hooks.events, 1)
	assert.Equal(t, f.employer.UserID, f.hooks.events[0].userID)
	assert.Equal(t, domain.EventApplicationReceived, f.hooks.events[0].event.Type)
	assert.Equal(t, []string{"application.created"}, f.hooks.actions)

	_, err = f.svc.Apply(ctx, f.candidate, f.job.ID, nil, "")
	assert.ErrorIs(t, err, application.ErrAlreadyApplied)

	stored, err := f.svc.GetForCandidate(ctx, f.candidate, a.ID)
	require.NoError(t, err)
	assert.Len(t, stored.StatusHistory, 1)
}

func TestApplyRejectsClosedAndDraftJobs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	f.svc.WithClock(func() time.Time { return now })

	past := now.Add(-time.Minute)
	tests := []struct {
		name string
		job  *domain.Job
		want error
	}{
		{"closed", f.newJob(t, domain.JobClosed, nil), application.ErrJobNotOpen},
		{"past closing date", f.newJob(t, domain.JobOpen, &past), application.ErrJobNotOpen},
		{"draft", f.newJob(t, domain.JobDraft, nil), application.ErrJobNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Apply(ctx, f.candidate, tt.job.ID, nil, "")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestApplyValidatesCV(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	foreign := f.document(t, f.employer.UserID, domain.DocumentCV)
	video := f.document(t, f.candidate.UserID, domain.DocumentVideo)
	missing := "does-not-exist"

	for _, id := range []string{foreign, video, missing} {
		id := id
		_, err := f.svc.Apply(ctx, f.candidate, f.job.ID, &id, "")
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestStatusMachine(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.Apply(ctx, f.candidate, f.job.ID, nil, "")
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, f.employer, a.ID, domain.StatusHired, "")
	assert.ErrorIs(t, err, application.ErrInvalidTransition)
	_, err = f.svc.ChangeStatus(ctx, f.employer, a.ID, domain.StatusWithdrawn, "")
	assert.ErrorIs(t, err, application.ErrInvalidTransition)
	_, err = f.svc.ChangeStatus(ctx, f.rival, a.ID, domain.StatusReviewing, "")
	assert.ErrorIs(t, err, application.ErrNotFound)
	_, err = f.svc.ChangeStatus(ctx, f.employer, a.ID, domain.ApplicationStatus("maybe"), "")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	path := []domain.ApplicationStatus{domain.StatusReviewing, domain.StatusShortlisted, domain.StatusInterviewing, domain.StatusOffered, domain.StatusHired}
	for _, to := range path {
		got, err := f.svc.ChangeStatus(ctx, f.employer, a.ID, to, "moving on")
		require.NoError(t, err, to)
		assert.Equal(t, to, got.Status)
	}

	got, err := f.svc.GetForEmployer(ctx, f.employer, a.ID)
	require.NoError(t, err)
	require.Len(t, got.StatusHistory, len(path)+1)
	assert.Equal(t, domain.StatusOffered, got.StatusHistory[len(path)].FromStatus)
	assert.Equal(t, domain.StatusHired, got.StatusHistory[len(path)].ToStatus)
	assert.Equal(t, "moving on", got.StatusHistory[len(path)].Note)

	_, err = f.svc.Withdraw(ctx, f.candidate, a.ID)
	assert.ErrorIs(t, err, application.ErrInvalidTransition, "hired is terminal")

	assert.Len(t, f.hooks.emails, len(path))
	assert.Equal(t, "hired:moving on", f.hooks.emails[len(path)-1])
	last := f.hooks.events[len(f.hooks.events)-1]
	assert.Equal(t, f.candidate.UserID, last.userID)
	assert.Equal(t, "success", last.event.Level)
}

func TestWithdraw(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.Apply(ctx, f.candidate, f.job.ID, nil, "")
	require.NoError(t, err)

	other := domain.Actor{UserID: "someone", ProfileID: "someone-else", Role: domain.RoleCandidate}
	_, err = f.svc.Withdraw(ctx, other, a.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)

	got, err := f.svc.Withdraw(ctx, f.candidate, a.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWithdrawn, got.Status)
	assert.Len(t, got.StatusHistory, 2)

	_, err = f.svc.ChangeStatus(ctx, f.employer, a.ID, domain.StatusReviewing, "")
	assert.ErrorIs(t, err, application.ErrInvalidTransition)
}

// staleReads serves a fixed snapshot from Get, as a reader that raced a
// concurrent status change would see.
type staleReads struct {
	application.Repository
	snapshot domain.Application
}

func (s staleReads) Get(context.Context, string) (*domain.Application, error) {
	cp := s.snapshot
	return &cp, nil
}

func TestChangeStatusStale(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.Apply(ctx, f.candidate, f.job.ID, nil, "")
	require.NoError(t, err)
	snapshot, err := f.store.Applications().Get(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, f.employer, a.ID, domain.StatusReviewing, "")
	require.NoError(t, err)

	racer := application.NewService(staleReads{f.store.Applications(), *snapshot}, f.store.Jobs(), docLookup{f.store.Documents()}, application.Hooks{})
	_, err = racer.ChangeStatus(ctx, f.employer, a.ID, domain.StatusRejected, "")
	assert.ErrorIs(t, err, application.ErrStaleStatus)
}

func TestLists(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	second := f.newJob(t, domain.JobOpen, nil)
	a1, err := f.svc.Apply(ctx, f.candidate, f.job.ID, nil, "")
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, f.candidate, second.ID, nil, "")
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, f.employer, a1.ID, domain.StatusRejected, "")
	require.NoError(t, err)

	all, total, err := f.svc.ListForCandidate(ctx, f.candidate, application.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)

	rejected, total, err := f.svc.ListForCandidate(ctx, f.candidate, application.ListFilter{Status: domain.StatusRejected})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, a1.ID, rejected[0].ID)

	forJob, total, err := f.svc.ListForJob(ctx, f.employer, f.job.ID, application.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "candidate", forJob[0].CandidateName)

	_, _, err = f.svc.ListForJob(ctx, f.rival, f.job.ID, application.ListFilter{})
	assert.ErrorIs(t, err, application.ErrJobNotFound)

	_, err = f.svc.GetForEmployer(ctx, f.rival, a1.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
}
