// Package memory implements every service repository in process memory.
// It backs the service tests and the development server when no
// DATABASE_URL is configured. Data is lost on restart.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// Store holds all tables. The typed repositories returned by its accessor
// methods share one lock.
type Store struct {
	mu sync.RWMutex

	users        map[string]*domain.User
	verifyTokens map[string]*domain.VerificationToken
	resetTokens  map[string]*domain.PasswordResetToken

	candidates     map[string]*domain.CandidateProfile
	skills         map[string]*domain.Skill
	education      map[string]*domain.Education
	experience     map[string]*domain.Experience
	certifications map[string]*domain.Certification

	employers map[string]*domain.EmployerProfile
	shortlist map[string]*domain.ShortlistEntry

	jobs         map[string]*domain.Job
	applications map[string]*domain.Application
	history      []domain.ApplicationStatusHistory

	documents map[string]*domain.Document
	shares    map[string]*domain.SharedDocument

	conversations map[string]*domain.Conversation
	participants  map[string][]*domain.Participant
	messages      []domain.Message

	activity []domain.ActivityLog

	// Now is the clock used for expiry checks in queries.
	Now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:          map[string]*domain.User{},
		verifyTokens:   map[string]*domain.VerificationToken{},
		resetTokens:    map[string]*domain.PasswordResetToken{},
		candidates:     map[string]*domain.CandidateProfile{},
		skills:         map[string]*domain.Skill{},
		education:      map[string]*domain.Education{},
		experience:     map[string]*domain.Experience{},
		certifications: map[string]*domain.Certification{},
		employers:      map[string]*domain.EmployerProfile{},
		shortlist:      map[string]*domain.ShortlistEntry{},
		jobs:           map[string]*domain.Job{},
		applications:   map[string]*domain.Application{},
		documents:      map[string]*domain.Document{},
		shares:         map[string]*domain.SharedDocument{},
		conversations:  map[string]*domain.Conversation{},
		participants:   map[string][]*domain.Participant{},
		Now:            time.Now,
	}
}

// Accounts returns the account repository.
func (s *Store) Accounts() *AccountRepo { return &AccountRepo{s} }

// Candidates returns the candidate repository.
func (s *Store) Candidates() *CandidateRepo { return &CandidateRepo{s} }

// Employers returns the employer repository.
func (s *Store) Employers() *EmployerRepo { return &EmployerRepo{s} }

// Jobs returns the job repository.
func (s *Store) Jobs() *JobRepo { return &JobRepo{s} }

// Applications returns the application repository.
func (s *Store) Applications() *ApplicationRepo { return &ApplicationRepo{s} }

// Documents returns the document repository.
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{s} }

// Conversations returns the messaging repository.
func (s *Store) Conversations() *ConversationRepo { return &ConversationRepo{s} }

// Activity returns the activity log repository.
func (s *Store) Activity() *ActivityRepo { return &ActivityRepo{s} }

// page applies limit/offset; a non-positive limit returns everything after
// offset.
func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// newestFirst orders by created time descending, then id for stability.
func newestFirst[T any](items []T, at func(T) time.Time, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ai, aj := at(items[i]), at(items[j])
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return id(items[i]) > id(items[j])
	})
}

// laterFirst compares optional dates with nil sorting last.
func laterFirst(a, b *time.Time) (less, decided bool) {
	switch {
	case a == nil && b == nil:
		return false, false
	case a == nil:
		return false, true
	case b == nil:
		return true, true
	case a.Equal(*b):
		return false, false
	}
	return a.After(*b), true
}
