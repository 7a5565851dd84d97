package domain

import "time"

// ActivityLog is an append-only audit record of a user action.
type ActivityLog struct {
	ID         string         `json:"id" db:"id"`
	UserID     string         `json:"user_id" db:"user_id"`
	Action     string         `json:"action" db:"action"`
	EntityType string         `json:"entity_type" db:"entity_type"`
	EntityID   string         `json:"entity_id" db:"entity_id"`
	Metadata   map[string]any `json:"metadata,omitempty" db:"metadata"`
	IPAddress  string         `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// Event types pushed to browsers.
const (
	EventApplicationReceived = "application.received"
	EventApplicationStatus   = "application.status"
	EventApplicationWithdraw = "application.withdrawn"
	EventMessageNew          = "message.new"
	EventDocumentShared      = "document.shared"
)

// Event is a realtime toast delivered to a single user.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Level     string         `json:"level"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Actor identifies the caller of a service operation. ProfileID is the
// candidate or employer profile matching Role.
type Actor struct {
	UserID    string
	ProfileID string
	Role      Role
}

// PlatformStats are the headline counts shown by the admin CLI.
type PlatformStats struct {
	Users         map[Role]int `json:"users"`
	VerifiedUsers int          `json:"verified_users"`
	OpenJobs      int          `json:"open_jobs"`
	Applications  int          `json:"applications"`
	Documents     int          `json:"documents"`
	Messages      int          `json:"messages"`
}
