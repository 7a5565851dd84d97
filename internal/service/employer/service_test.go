package employer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/repository/memory"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
)

type docLookup struct{ repo *memory.DocumentRepo }

func (d docLookup) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return d.repo.Get(ctx, id)
}

type fixture struct {
	store      *memory.Store
	svc        *employer.Service
	candidates *candidate.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	return &fixture{
		store:      store,
		svc:        employer.NewService(store.Employers(), docLookup{store.Documents()}),
		candidates: candidate.NewService(store.Candidates(), store.Accounts(), docLookup{store.Documents()}),
	}
}

func (f *fixture) user(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{ID: uuid.New().String(), Email: uuid.New().String() + "@example.com", Name: name, Role: role}
	require.NoError(t, f.store.Accounts().CreateUser(context.Background(), u))
	return u
}

// candidate creates a candidate user with a profile and skills.
func (f *fixture) candidate(t *testing.T, name string, upd candidate.ProfileUpdate, skills ...string) *domain.CandidateProfile {
	t.Helper()
	ctx := context.Background()
	u := f.user(t, name, domain.RoleCandidate)
	p, err := f.candidates.UpdateProfile(ctx, u.ID, upd)
	require.NoError(t, err)
	for _, sk := range skills {
		_, err := f.candidates.AddSkill(ctx, u.ID, domain.Skill{Name: sk})
		require.NoError(t, err)
	}
	return p
}

func ptr[T any](v T) *T { return &v }

func ids(results []domain.CandidateSearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.CandidateID)
	}
	return out
}

func TestProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, "Boss", domain.RoleEmployer)

	p, err := f.svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	again, err := f.svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	p, err = f.svc.UpdateProfile(ctx, u.ID, employer.ProfileUpdate{CompanyName: ptr(" Acme PMO "), Website: ptr("https://acme.example")})
	require.NoError(t, err)
	assert.Equal(t, "Acme PMO", p.CompanyName)

	_, err = f.svc.UpdateProfile(ctx, u.ID, employer.ProfileUpdate{Website: ptr("ftp://acme.example")})
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSearchFilters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	emp, err := f.svc.GetProfile(ctx, f.user(t, "Boss", domain.RoleEmployer).ID)
	require.NoError(t, err)

	london := f.candidate(t, "Alice Smith", candidate.ProfileUpdate{
		Headline: ptr("Portfolio manager"), Location: ptr("London, UK"), YearsExperience: ptr(10),
		Availability: ptr(domain.AvailableImmediately),
	}, "Agile", "Risk")
	leeds := f.candidate(t, "Bob Jones", candidate.ProfileUpdate{
		Headline: ptr("PMO analyst"), Location: ptr("Leeds"), YearsExperience: ptr(3),
	}, "agile")
	f.candidate(t, "Hidden Person", candidate.ProfileUpdate{
		Headline: ptr("Portfolio director"), Location: ptr("London"), Visible: ptr(false),
	}, "Agile")

	tests := []struct {
		name   string
		filter employer.SearchFilter
		want   []string
	}{
		{"location substring", employer.SearchFilter{Location: "london"}, []string{london.ID}},
		{"min years", employer.SearchFilter{MinYears: 5}, []string{london.ID}},
		{"all skills", employer.SearchFilter{Skills: []string{"AGILE", "risk"}}, []string{london.ID}},
		{"availability", employer.SearchFilter{Availability: domain.AvailableImmediately}, []string{london.ID}},
		{"keyword name", employer.SearchFilter{Keyword: "jones"}, []string{leeds.ID}},
		{"keyword skill", employer.SearchFilter{Keyword: "risk"}, []string{london.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, total, err := f.svc.Search(ctx, emp.ID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res))
			assert.Equal(t, len(tt.want), total)
		})
	}

	res, total, err := f.svc.Search(ctx, emp.ID, employer.SearchFilter{Keyword: "portfolio"})
	require.NoError(t, err)
	assert.Equal(t, 1, total, "hidden profiles are excluded")
	assert.Equal(t, []string{london.ID}, ids(res))

	_, _, err = f.svc.Search(ctx, emp.ID, employer.SearchFilter{MinYears: -1})
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSearchMatchesCVText(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	emp, err := f.svc.GetProfile(ctx, f.user(t, "Boss", domain.RoleEmployer).ID)
	require.NoError(t, err)
	p := f.candidate(t, "Carol", candidate.ProfileUpdate{Headline: ptr("Analyst")})

	require.NoError(t, f.store.Documents().Create(ctx, &domain.Document{
		ID: uuid.New().String(), OwnerID: p.UserID, Kind: domain.DocumentCV, Title: "CV",
		StorageKey: "k", ExtractedText: "Led a SAFe transformation across five programmes", CreatedAt: time.Now(),
	}))

	res, _, err := f.svc.Search(ctx, emp.ID, employer.SearchFilter{Keyword: "safe transformation"})
	require.NoError(t, err)
	assert.Equal(t, []string{p.ID}, ids(res))
}

func TestShortlist(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	emp, err := f.svc.GetProfile(ctx, f.user(t, "Boss", domain.RoleEmployer).ID)
	require.NoError(t, err)
	other, err := f.svc.GetProfile(ctx, f.user(t, "Rival", domain.RoleEmployer).ID)
	require.NoError(t, err)
	p := f.candidate(t, "Alice", candidate.ProfileUpdate{Headline: ptr("PMO lead"), Location: ptr("York")})
	hidden := f.candidate(t, "Hidden", candidate.ProfileUpdate{Visible: ptr(false)})

	_, err = f.svc.Shortlist(ctx, emp.ID, hidden.ID, nil, "")
	assert.ErrorIs(t, err, employer.ErrCandidateNotFound)

	rivalJob := &domain.Job{ID: uuid.New().String(), EmployerID: other.ID, Title: "Rival job", Status: domain.JobOpen}
	require.NoError(t, f.store.Jobs().Create(ctx, rivalJob))
	_, err = f.svc.Shortlist(ctx, emp.ID, p.ID, &rivalJob.ID, "")
	assert.ErrorIs(t, err, employer.ErrNotFound)

	first, err := f.svc.Shortlist(ctx, emp.ID, p.ID, nil, " strong governance ")
	require.NoError(t, err)
	assert.Equal(t, "strong governance", first.Note)
	second, err := f.svc.Shortlist(ctx, emp.ID, p.ID, nil, "call back Monday")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "shortlisting twice keeps one entry")

	list, total, err := f.svc.ListShortlist(ctx, emp.ID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "call back Monday", list[0].Note)
	assert.Equal(t, "Alice", list[0].CandidateName)
	assert.Equal(t, "York", list[0].Location)

	res, _, err := f.svc.Search(ctx, emp.ID, employer.SearchFilter{ShortlistedOnly: true})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.True(t, res[0].Shortlisted)

	require.NoError(t, f.svc.RemoveFromShortlist(ctx, emp.ID, p.ID))
	assert.ErrorIs(t, f.svc.RemoveFromShortlist(ctx, emp.ID, p.ID), employer.ErrNotFound)
}

func TestUpdateProfileLogoMustBeOwnImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	u := f.user(t, "Boss", domain.RoleEmployer)
	rival := f.user(t, "Rival", domain.RoleEmployer)

	upload := func(owner string, kind domain.DocumentKind) string {
		d := &domain.Document{ID: uuid.New().String(), OwnerID: owner, Kind: kind, FileName: "f", CreatedAt: time.Now()}
		require.NoError(t, f.store.Documents().Create(ctx, d))
		return d.ID
	}

	for name, id := range map[string]string{
		"unknown":        uuid.New().String(),
		"someone else's": upload(rival.ID, domain.DocumentLogo),
		"wrong kind":     upload(u.ID, domain.DocumentAvatar),
	} {
		_, err := f.svc.UpdateProfile(ctx, u.ID, employer.ProfileUpdate{LogoDocumentID: ptr(id)})
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr), "%s: got %v", name, err)
		assert.Equal(t, "logo_document_id", verr.Field, name)
	}

	logo := upload(u.ID, domain.DocumentLogo)
	p, err := f.svc.UpdateProfile(ctx, u.ID, employer.ProfileUpdate{LogoDocumentID: ptr(logo)})
	require.NoError(t, err)
	require.NotNil(t, p.LogoDocumentID)
	assert.Equal(t, logo, *p.LogoDocumentID)
}
