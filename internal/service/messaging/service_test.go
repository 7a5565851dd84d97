package messaging_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/repository/memory"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
)

// stepClock advances one second per reading so message order is stable.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type hooks struct {
	events []string
	emails []string
}

func (h *hooks) Publish(_ context.Context, userID string, e domain.Event) error {
	h.events = append(h.events, userID+":"+e.Type)
	return nil
}

func (h *hooks) MessageReceived(_ context.Context, recipientID string, _ *domain.Conversation, m *domain.Message) error {
	h.emails = append(h.emails, recipientID+":"+m.Body)
	return nil
}

type fixture struct {
	store     *memory.Store
	svc       *messaging.Service
	hooks     *hooks
	candidate domain.Actor
	peer      domain.Actor
	employer  domain.Actor
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	h := &hooks{}
	c := &stepClock{t: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
	f := &fixture{
		store: store,
		hooks: h,
		svc:   messaging.NewService(store.Conversations(), store.Accounts(), store.Jobs(), messaging.Hooks{Notifier: h, Events: h}).WithClock(c.now),
	}
	user := func(role domain.Role) domain.Actor {
		u := &domain.User{ID: uuid.New().String(), Email: uuid.New().String() + "@example.com", Name: string(role), Role: role}
		require.NoError(t, store.Accounts().CreateUser(context.Background(), u))
		return domain.Actor{UserID: u.ID, Role: role}
	}
	f.candidate = user(domain.RoleCandidate)
	f.peer = user(domain.RoleCandidate)
	f.employer = user(domain.RoleEmployer)
	return f
}

func TestStartValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.candidate.UserID, Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrInvalidRecipient)
	_, err = f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.peer.UserID, Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrInvalidRecipient)
	_, err = f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: "ghost", Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrRecipientNotFound)

	_, err = f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.employer.UserID, Body: "   "})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	_, err = f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.employer.UserID, Body: strings.Repeat("x", domain.MaxMessageLength+1)})
	assert.ErrorAs(t, err, &verr)
}

func TestConversationFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Start(ctx, f.employer, messaging.StartInput{RecipientID: f.candidate.UserID, Subject: "PMO Lead role", Body: "Hello Pat"})
	require.NoError(t, err)
	assert.Len(t, c.Participants, 2)
	assert.Equal(t, []string{f.candidate.UserID + ":" + domain.EventMessageNew}, f.hooks.events)
	assert.Equal(t, []string{f.candidate.UserID + ":Hello Pat"}, f.hooks.emails)

	n, err := f.svc.UnreadCount(ctx, f.candidate.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = f.svc.UnreadCount(ctx, f.employer.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = f.svc.Send(ctx, f.candidate.UserID, c.ID, " Thanks, interested ")
	require.NoError(t, err)
	n, err = f.svc.UnreadCount(ctx, f.candidate.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "replying marks the conversation read")

	msgs, total, err := f.svc.Messages(ctx, f.employer.UserID, c.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Thanks, interested", msgs[0].Body)
	assert.Equal(t, "Hello Pat", msgs[1].Body)

	n, err = f.svc.UnreadCount(ctx, f.employer.UserID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, f.svc.MarkRead(ctx, f.employer.UserID, c.ID))
	n, err = f.svc.UnreadCount(ctx, f.employer.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, total, err := f.svc.List(ctx, f.candidate.UserID, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "Thanks, interested", list[0].LastMessage.Body)
}

// postJob creates an open job owned by the employer user and returns its id.
func (f *fixture) postJob(t *testing.T, employerUserID string) string {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	p := &domain.EmployerProfile{ID: uuid.New().String(), UserID: employerUserID, CompanyName: "Acme", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Employers().CreateProfile(ctx, p))
	j := &domain.Job{ID: uuid.New().String(), EmployerID: p.ID, Title: "PMO Lead", Status: domain.JobOpen, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, f.store.Jobs().Create(ctx, j))
	return j.ID
}

func TestStartChecksJob(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ghost := uuid.New().String()
	_, err := f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.employer.UserID, JobID: &ghost, Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrJobNotFound)

	other := setup(t)
	foreign := f.postJob(t, other.employer.UserID)
	_, err = f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.employer.UserID, JobID: &foreign, Body: "hi"})
	assert.ErrorIs(t, err, messaging.ErrInvalidRecipient)

	own := f.postJob(t, f.employer.UserID)
	c, err := f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.employer.UserID, JobID: &own, Body: "hi"})
	require.NoError(t, err)
	require.NotNil(t, c.JobID)
	assert.Equal(t, own, *c.JobID)
	assert.Len(t, f.hooks.emails, 1, "rejected starts send nothing")
}

func TestStartReusesDirectConversation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	job := f.postJob(t, f.employer.UserID)

	first, err := f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.employer.UserID, Body: "one"})
	require.NoError(t, err)
	again, err := f.svc.Start(ctx, f.employer, messaging.StartInput{RecipientID: f.candidate.UserID, Body: "two"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	aboutJob, err := f.svc.Start(ctx, f.candidate, messaging.StartInput{RecipientID: f.employer.UserID, JobID: &job, Body: "three"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, aboutJob.ID, "a different job gets its own conversation")

	_, total, err := f.svc.Messages(ctx, f.candidate.UserID, first.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, f.hooks.emails, 2, "only new conversations send email")
}

func TestParticipantIsolation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	c, err := f.svc.Start(ctx, f.employer, messaging.StartInput{RecipientID: f.candidate.UserID, Body: "private"})
	require.NoError(t, err)

	_, _, err = f.svc.Messages(ctx, f.peer.UserID, c.ID, 10, 0)
	assert.ErrorIs(t, err, messaging.ErrNotFound)
	_, err = f.svc.Send(ctx, f.peer.UserID, c.ID, "let me in")
	assert.ErrorIs(t, err, messaging.ErrNotFound)
	assert.ErrorIs(t, f.svc.MarkRead(ctx, f.peer.UserID, c.ID), messaging.ErrNotFound)
	_, err = f.svc.Send(ctx, f.candidate.UserID, "missing", "hello")
	assert.ErrorIs(t, err, messaging.ErrNotFound)

	list, total, err := f.svc.List(ctx, f.peer.UserID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, list)
}
