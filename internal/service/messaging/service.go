package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
	"github.com/pmonetwork/pmo-network/internal/service/job"
)

const maxSubjectLength = 200

// Service implements messaging business logic.
type Service struct {
	repo  Repository
	users UserDirectory
	jobs  JobLookup
	hooks Hooks
	now   func() time.Time
}

// NewService creates a messaging service.
func NewService(repo Repository, users UserDirectory, jobs JobLookup, hooks Hooks) *Service {
	return &Service{repo: repo, users: users, jobs: jobs, hooks: hooks, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Start opens a conversation with the recipient and posts the first
// message. An existing two-party conversation about the same job is reused.
// A job, when given, must belong to one of the two participants.
func (s *Service) Start(ctx context.Context, sender domain.Actor, in StartInput) (*domain.Conversation, error) {
	if in.RecipientID == "" || in.RecipientID == sender.UserID {
		return nil, ErrInvalidRecipient
	}
	body, err := cleanBody(in.Body)
	if err != nil {
		return nil, err
	}
	subject := strings.TrimSpace(in.Subject)
	if utf8.RuneCountInString(subject) > maxSubjectLength {
		return nil, domain.Invalid("subject", "must be at most %d characters", maxSubjectLength)
	}
	if in.JobID != nil && *in.JobID == "" {
		in.JobID = nil
	}

	recipient, err := s.users.GetUser(ctx, in.RecipientID)
	if err != nil {
		logger.Debug("recipient lookup failed", "user_id", in.RecipientID, "error", err)
		return nil, ErrRecipientNotFound
	}
	if sender.Role == domain.RoleCandidate && recipient.Role == domain.RoleCandidate {
		return nil, fmt.Errorf("%w: candidates can only message employers", ErrInvalidRecipient)
	}
	if in.JobID != nil {
		if err := s.checkJob(ctx, *in.JobID, sender.UserID, recipient.ID); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.FindDirect(ctx, sender.UserID, recipient.ID, in.JobID)
	switch {
	case err == nil:
		if _, err := s.post(ctx, existing, sender.UserID, body); err != nil {
			return nil, err
		}
		return s.repo.Get(ctx, existing.ID)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	now := s.now()
	c := &domain.Conversation{
		ID:        uuid.New().String(),
		JobID:     in.JobID,
		Subject:   subject,
		CreatedAt: now,
		UpdatedAt: now,
	}
	parts := []domain.Participant{
		{ConversationID: c.ID, UserID: sender.UserID, LastReadAt: &now, JoinedAt: now},
		{ConversationID: c.ID, UserID: recipient.ID, JoinedAt: now},
	}
	first := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: c.ID,
		SenderID:       sender.UserID,
		Body:           body,
		CreatedAt:      now,
	}
	if err := s.repo.Create(ctx, c, parts, first); err != nil {
		return nil, err
	}
	s.notify(ctx, recipient.ID, c, first)
	if s.hooks.Notifier != nil {
		if err := s.hooks.Notifier.MessageReceived(ctx, recipient.ID, c, first); err != nil {
			logger.Warn("message email not sent", "conversation_id", c.ID, "error", err)
		}
	}
	s.record(ctx, sender.UserID, "conversation.started", c.ID, map[string]any{"recipient_id": recipient.ID})
	return s.repo.Get(ctx, c.ID)
}

func (s *Service) checkJob(ctx context.Context, jobID, a, b string) error {
	j, err := s.jobs.Get(ctx, jobID)
	if errors.Is(err, job.ErrNotFound) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("look up job: %w", err)
	}
	if j.EmployerUserID != a && j.EmployerUserID != b {
		return fmt.Errorf("%w: job belongs to neither participant", ErrInvalidRecipient)
	}
	return nil
}

// List returns the user's conversations, most recent activity first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]domain.Conversation, int, error) {
	return s.repo.ListForUser(ctx, userID, limit, offset)
}

// Messages returns a page of a conversation the user takes part in.
func (s *Service) Messages(ctx context.Context, userID, conversationID string, limit, offset int) ([]domain.Message, int, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, 0, err
	}
	return s.repo.Messages(ctx, conversationID, limit, offset)
}

// Send posts a message to a conversation the user takes part in.
func (s *Service) Send(ctx context.Context, userID, conversationID, body string) (*domain.Message, error) {
	body, err := cleanBody(body)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !hasParticipant(c, userID) {
		return nil, ErrNotFound
	}
	return s.post(ctx, c, userID, body)
}

// MarkRead sets the user's read mark on the conversation to now.
func (s *Service) MarkRead(ctx context.Context, userID, conversationID string) error {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, conversationID, userID, s.now())
}

// UnreadCount returns the number of unread messages across conversations.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *Service) post(ctx context.Context, c *domain.Conversation, senderID, body string) (*domain.Message, error) {
	now := s.now()
	m := &domain.Message{
		ID:             uuid.New().String(),
		ConversationID: c.ID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now,
	}
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return nil, err
	}
	if err := s.repo.MarkRead(ctx, c.ID, senderID, now); err != nil {
		logger.Warn("read mark not updated", "conversation_id", c.ID, "error", err)
	}
	for _, p := range c.Participants {
		if p.UserID != senderID {
			s.notify(ctx, p.UserID, c, m)
		}
	}
	return m, nil
}

func (s *Service) requireParticipant(ctx context.Context, conversationID, userID string) error {
	ok, err := s.repo.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) notify(ctx context.Context, userID string, c *domain.Conversation, m *domain.Message) {
	if s.hooks.Events == nil {
		return
	}
	e := domain.Event{
		ID:        uuid.New().String(),
		Type:      domain.EventMessageNew,
		Title:     "New message",
		Message:   preview(m.Body),
		Level:     "info",
		Data:      map[string]any{"conversation_id": c.ID, "message_id": m.ID, "sender_id": m.SenderID},
		CreatedAt: m.CreatedAt,
	}
	if err := s.hooks.Events.Publish(ctx, userID, e); err != nil {
		logger.Warn("event not published", "type", e.Type, "error", err)
	}
}

func (s *Service) record(ctx context.Context, userID, action, id string, meta map[string]any) {
	if s.hooks.Activity != nil {
		s.hooks.Activity.Record(ctx, userID, action, "conversation", id, meta)
	}
}

func hasParticipant(c *domain.Conversation, userID string) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func cleanBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	n := utf8.RuneCountInString(body)
	if n == 0 {
		return "", domain.Invalid("body", "is required")
	}
	if n > domain.MaxMessageLength {
		return "", domain.Invalid("body", "must be at most %d characters", domain.MaxMessageLength)
	}
	return body, nil
}

func preview(body string) string {
	const previewLen = 120
	if utf8.RuneCountInString(body) <= previewLen {
		return body
	}
	r := []rune(body)
	return string(r[:previewLen]) + "..."
}
