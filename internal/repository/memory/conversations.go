package memory

import (
	"context"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
)

// ConversationRepo implements messaging.Repository.
type ConversationRepo struct{ s *Store }

var _ messaging.Repository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(_ context.Context, c *domain.Conversation, participants []domain.Participant, first *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	cp.Participants = nil
	cp.LastMessage = nil
	r.s.conversations[c.ID] = &cp
	parts := make([]*domain.Participant, 0, len(participants))
	for _, p := range participants {
		p.ConversationID = c.ID
		parts = append(parts, &p)
	}
	r.s.participants[c.ID] = parts
	if first != nil {
		r.s.messages = append(r.s.messages, *first)
	}
	return nil
}

func sameJob(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *ConversationRepo) FindDirect(_ context.Context, a, b string, jobID *string) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, c := range r.s.conversations {
		parts := r.s.participants[id]
		if len(parts) != 2 || !sameJob(c.JobID, jobID) {
			continue
		}
		if (parts[0].UserID == a && parts[1].UserID == b) || (parts[0].UserID == b && parts[1].UserID == a) {
			out := r.s.joinedConversation(c, "")
			return &out, nil
		}
	}
	return nil, messaging.ErrNotFound
}

// joinedConversation copies c with participants, the last message and the
// unread count for viewer. The caller holds the lock.
func (s *Store) joinedConversation(c *domain.Conversation, viewer string) domain.Conversation {
	out := *c
	out.Participants = []domain.Participant{}
	var readMark *time.Time
	for _, p := range s.participants[c.ID] {
		pp := *p
		if u, ok := s.users[p.UserID]; ok {
			pp.Name = u.Name
			pp.Role = u.Role
		}
		if p.UserID == viewer {
			readMark = p.LastReadAt
		}
		out.Participants = append(out.Participants, pp)
	}
	for i := range s.messages {
		m := s.messages[i]
		if m.ConversationID != c.ID {
			continue
		}
		if out.LastMessage == nil || !m.CreatedAt.Before(out.LastMessage.CreatedAt) {
			mm := m
			out.LastMessage = &mm
		}
		if viewer != "" && m.SenderID != viewer && (readMark == nil || m.CreatedAt.After(*readMark)) {
			out.UnreadCount++
		}
	}
	return out
}

func (r *ConversationRepo) Get(_ context.Context, id string) (*domain.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.conversations[id]
	if !ok {
		return nil, messaging.ErrNotFound
	}
	out := r.s.joinedConversation(c, "")
	return &out, nil
}

func (r *ConversationRepo) IsParticipant(_ context.Context, conversationID, userID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.participants[conversationID] {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *ConversationRepo) ListForUser(_ context.Context, userID string, limit, offset int) ([]domain.Conversation, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Conversation{}
	for id, c := range r.s.conversations {
		for _, p := range r.s.participants[id] {
			if p.UserID == userID {
				out = append(out, r.s.joinedConversation(c, userID))
				break
			}
		}
	}
	newestFirst(out, func(c domain.Conversation) time.Time { return c.UpdatedAt }, func(c domain.Conversation) string { return c.ID })
	return page(out, limit, offset), len(out), nil
}

func (r *ConversationRepo) Messages(_ context.Context, conversationID string, limit, offset int) ([]domain.Message, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.Message{}
	for _, m := range r.s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	newestFirst(out, func(m domain.Message) time.Time { return m.CreatedAt }, func(m domain.Message) string { return m.ID })
	return page(out, limit, offset), len(out), nil
}

func (r *ConversationRepo) AddMessage(_ context.Context, m *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.conversations[m.ConversationID]
	if !ok {
		return messaging.ErrNotFound
	}
	r.s.messages = append(r.s.messages, *m)
	c.UpdatedAt = m.CreatedAt
	return nil
}

func (r *ConversationRepo) MarkRead(_ context.Context, conversationID, userID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.participants[conversationID] {
		if p.UserID == userID {
			p.LastReadAt = &at
			return nil
		}
	}
	return messaging.ErrNotFound
}

func (r *ConversationRepo) UnreadCount(_ context.Context, userID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for id, c := range r.s.conversations {
		for _, p := range r.s.participants[id] {
			if p.UserID == userID {
				n += r.s.joinedConversation(c, userID).UnreadCount
				break
			}
		}
	}
	return n, nil
}
