package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestSkillValidate(t *testing.T) {
	s := Skill{Name: "  Risk Management "}
	require.NoError(t, s.Validate())
	assert.Equal(t, "Risk Management", s.Name)
	assert.Equal(t, SkillIntermediate, s.Level)

	bad := Skill{Name: "Agile", Level: "guru"}
	err := bad.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "level", verr.Field)

	assert.Error(t, (&Skill{Name: " "}).Validate())
}

func TestExperienceValidate(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(-1, 0, 0)

	e := Experience{Company: "Acme", Title: "PMO Lead", StartDate: start, EndDate: &end}
	assert.Error(t, e.Validate())

	e.Current = true
	require.NoError(t, e.Validate())
	assert.Nil(t, e.EndDate)

	assert.Error(t, (&Experience{Company: "Acme", Title: "PM"}).Validate())
}

func TestEducationAndCertificationDateOrder(t *testing.T) {
	a := time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2015, 9, 1, 0, 0, 0, 0, time.UTC)

	assert.Error(t, (&Education{Institution: "LSE", StartDate: &a, EndDate: &b}).Validate())
	assert.NoError(t, (&Education{Institution: "LSE", StartDate: &b, EndDate: &a}).Validate())
	assert.Error(t, (&Certification{Name: "PMP", IssuedAt: &a, ExpiresAt: &b}).Validate())
	assert.Error(t, (&Certification{}).Validate())
}

func TestJobValidate(t *testing.T) {
	j := Job{Title: "Programme Manager", Skills: []string{"PRINCE2", " prince2", "", "Agile"}}
	require.NoError(t, j.Validate())
	assert.Equal(t, JobDraft, j.Status)
	assert.Equal(t, EmploymentFullTime, j.EmploymentType)
	assert.Equal(t, []string{"PRINCE2", "Agile"}, j.Skills)

	j = Job{Title: "PMO Analyst", SalaryMin: intPtr(50000), SalaryMax: intPtr(40000)}
	assert.Error(t, j.Validate())

	assert.Error(t, (&Job{}).Validate())
	assert.Error(t, (&Job{Title: "x", EmploymentType: "gig"}).Validate())
}

func TestJobAcceptsApplications(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	j := Job{Status: JobOpen}
	assert.True(t, j.AcceptsApplications(now))
	j.ClosesAt = &past
	assert.False(t, j.AcceptsApplications(now))
	assert.False(t, (&Job{Status: JobDraft}).AcceptsApplications(now))
}

func TestJobStatusCanMoveTo(t *testing.T) {
	assert.True(t, JobDraft.CanMoveTo(JobOpen))
	assert.True(t, JobOpen.CanMoveTo(JobClosed))
	assert.True(t, JobClosed.CanMoveTo(JobOpen))
	assert.False(t, JobOpen.CanMoveTo(JobDraft))
	assert.False(t, JobClosed.CanMoveTo(JobDraft))
}

func TestDocumentKindLimits(t *testing.T) {
	assert.Equal(t, int64(10<<20), DocumentCV.MaxSize())
	assert.Equal(t, int64(100<<20), DocumentVideo.MaxSize())
	assert.Equal(t, int64(5<<20), DocumentAvatar.MaxSize())

	assert.True(t, DocumentCV.Accepts("application/pdf"))
	assert.False(t, DocumentCV.Accepts("image/png"))
	assert.True(t, DocumentVideo.Accepts("video/webm"))
	assert.True(t, DocumentCertificate.Accepts("image/png"))
	assert.False(t, DocumentAvatar.Accepts("application/pdf"))
	assert.False(t, DocumentKind("spreadsheet").Valid())
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()
	vt := VerificationToken{ExpiresAt: now}
	assert.True(t, vt.Expired(now))

	rt := PasswordResetToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, rt.Redeemable(now))
	rt.UsedAt = &now
	assert.False(t, rt.Redeemable(now))
}

func TestEmployerProfileWebsite(t *testing.T) {
	assert.NoError(t, (&EmployerProfile{Website: "https://acme.example"}).Validate())
	assert.Error(t, (&EmployerProfile{Website: "acme"}).Validate())
}
