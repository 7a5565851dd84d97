package domain

import "time"

// MaxMessageLength bounds a single message body, in characters.
const MaxMessageLength = 5000

// Conversation is a message thread between users, optionally about a job.
type Conversation struct {
	ID        string    `json:"id" db:"id"`
	JobID     *string   `json:"job_id,omitempty" db:"job_id"`
	Subject   string    `json:"subject" db:"subject"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Participants []Participant `json:"participants,omitempty" db:"-"`
	LastMessage  *Message      `json:"last_message,omitempty" db:"-"`
	UnreadCount  int           `json:"unread_count" db:"-"`
}

// Participant is a member of a conversation.
type Participant struct {
	ConversationID string     `json:"conversation_id" db:"conversation_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	Name           string     `json:"name" db:"-"`
	Role           Role       `json:"role" db:"-"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty" db:"last_read_at"`
	JoinedAt       time.Time  `json:"joined_at" db:"joined_at"`
}

// Message is a single post in a conversation.
type Message struct {
	ID             string    `json:"id" db:"id"`
	ConversationID string    `json:"conversation_id" db:"conversation_id"`
	SenderID       string    `json:"sender_id" db:"sender_id"`
	Body           string    `json:"body" db:"body"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
