package messaging

import (
	"context"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// Repository defines the data access contract for conversations.
type Repository interface {
	// Create inserts the conversation, its participants and the first
	// message in one transaction.
	Create(ctx context.Context, c *domain.Conversation, participants []domain.Participant, first *domain.Message) error
	// FindDirect returns the two-party conversation between a and b about
	// jobID (nil for none), or ErrNotFound.
	FindDirect(ctx context.Context, a, b string, jobID *string) (*domain.Conversation, error)
	// Get returns the conversation with its participants.
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	// ListForUser returns the user's conversations with participants, last
	// message and unread count, most recent activity first.
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Conversation, int, error)
	// Messages returns messages newest first.
	Messages(ctx context.Context, conversationID string, limit, offset int) ([]domain.Message, int, error)
	// AddMessage inserts m and bumps the conversation's updated_at.
	AddMessage(ctx context.Context, m *domain.Message) error
	MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error
	// UnreadCount counts messages from others posted after the user's
	// last read mark, across all conversations.
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// UserDirectory resolves recipients.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// JobLookup resolves the job a conversation is about, with EmployerUserID
// populated.
type JobLookup interface {
	Get(ctx context.Context, id string) (*domain.Job, error)
}

// EventPublisher pushes realtime toasts to a user.
type EventPublisher interface {
	Publish(ctx context.Context, userID string, e domain.Event) error
}

// ActivityRecorder writes the audit trail. It never fails the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, action, entityType, entityID string, meta map[string]any)
}

// Notifier emails a user when someone opens a conversation with them.
type Notifier interface {
	MessageReceived(ctx context.Context, recipientID string, c *domain.Conversation, m *domain.Message) error
}

// StartInput opens a conversation.
type StartInput struct {
	RecipientID string  `json:"recipient_id"`
	JobID       *string `json:"job_id,omitempty"`
	Subject     string  `json:"subject"`
	Body        string  `json:"body"`
}

// Hooks bundles the optional side-effect collaborators.
type Hooks struct {
	Notifier Notifier
	Events   EventPublisher
	Activity ActivityRecorder
}
