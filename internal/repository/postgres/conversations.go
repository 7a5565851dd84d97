package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
)

// ConversationRepo implements messaging.Repository against PostgreSQL.
type ConversationRepo struct{ db *sql.DB }

var _ messaging.Repository = (*ConversationRepo)(nil)

// NewConversationRepo creates a Postgres-backed messaging repository.
func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{db: db} }

func insertMessage(ctx context.Context, tx *sql.Tx, m *domain.Message) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.ConversationID, m.SenderID, m.Body, m.CreatedAt)
	if isDanglingRef(err) {
		return messaging.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation, participants []domain.Participant, first *domain.Message) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, job_id, subject, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, c.ID, c.JobID, c.Subject, c.CreatedAt, c.UpdatedAt)
		if isDanglingRef(err) {
			return messaging.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		for _, p := range participants {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO conversation_participants (conversation_id, user_id, last_read_at, joined_at)
				VALUES ($1, $2, $3, $4)
			`, c.ID, p.UserID, p.LastReadAt, p.JoinedAt)
			if err != nil {
				return fmt.Errorf("add participant: %w", err)
			}
		}
		if first == nil {
			return nil
		}
		return insertMessage(ctx, tx, first)
	})
}

func (r *ConversationRepo) FindDirect(ctx context.Context, a, b string, jobID *string) (*domain.Conversation, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT c.id FROM conversations c
		WHERE c.job_id IS NOT DISTINCT FROM $3::uuid
		  AND (SELECT COUNT(*) FROM conversation_participants p WHERE p.conversation_id = c.id) = 2
		  AND EXISTS (SELECT 1 FROM conversation_participants p WHERE p.conversation_id = c.id AND p.user_id = $1)
		  AND EXISTS (SELECT 1 FROM conversation_participants p WHERE p.conversation_id = c.id AND p.user_id = $2)
		ORDER BY c.updated_at DESC
		LIMIT 1
	`, a, b, jobID).Scan(&id)
	if isMissing(err) {
		return nil, messaging.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return r.Get(ctx, id)
}

// participants loads the members of the given conversations keyed by
// conversation id.
func (r *ConversationRepo) participants(ctx context.Context, ids []string) (map[string][]domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.conversation_id, p.user_id, u.name, u.role, p.last_read_at, p.joined_at
		FROM conversation_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.conversation_id = ANY($1)
		ORDER BY p.joined_at, p.user_id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	out := map[string][]domain.Participant{}
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.Name, &p.Role, &p.LastReadAt, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out[p.ConversationID] = append(out[p.ConversationID], p)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, job_id, subject, created_at, updated_at FROM conversations WHERE id = $1
	`, id).Scan(&c.ID, &c.JobID, &c.Subject, &c.CreatedAt, &c.UpdatedAt)
	if isMissing(err) {
		return nil, messaging.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	parts, err := r.participants(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	c.Participants = parts[id]
	return c, nil
}

func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)
	`, conversationID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("is participant: %w", err)
	}
	return ok, nil
}

func (r *ConversationRepo) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Conversation, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_participants WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	f := &filter{}
	me := f.arg(userID)
	q := `
		SELECT c.id, c.job_id, c.subject, c.created_at, c.updated_at,
		       lm.id, lm.sender_id, lm.body, lm.created_at,
		       (SELECT COUNT(*) FROM messages m
		        WHERE m.conversation_id = c.id AND m.sender_id <> ` + me + `
		          AND (me.last_read_at IS NULL OR m.created_at > me.last_read_at))
		FROM conversations c
		JOIN conversation_participants me ON me.conversation_id = c.id AND me.user_id = ` + me + `
		LEFT JOIN LATERAL (
			SELECT id, sender_id, body, created_at FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		ORDER BY c.updated_at DESC, c.id DESC` + f.page(limit, offset)
	rows, err := r.db.QueryContext(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := []domain.Conversation{}
	var ids []string
	for rows.Next() {
		var c domain.Conversation
		var lmID, lmSender, lmBody sql.NullString
		var lmAt sql.NullTime
		if err := rows.Scan(&c.ID, &c.JobID, &c.Subject, &c.CreatedAt, &c.UpdatedAt,
			&lmID, &lmSender, &lmBody, &lmAt, &c.UnreadCount); err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		if lmID.Valid {
			c.LastMessage = &domain.Message{
				ID:             lmID.String,
				ConversationID: c.ID,
				SenderID:       lmSender.String,
				Body:           lmBody.String,
				CreatedAt:      lmAt.Time,
			}
		}
		out = append(out, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	if len(ids) == 0 {
		return out, total, nil
	}

	parts, err := r.participants(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Participants = parts[out[i].ID]
	}
	return out, total, nil
}

func (r *ConversationRepo) Messages(ctx context.Context, conversationID string, limit, offset int) ([]domain.Message, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE conversation_id = $1`, conversationID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	f := &filter{}
	f.and("conversation_id = " + f.arg(conversationID))
	q := `
		SELECT id, conversation_id, sender_id, body, created_at
		FROM messages` + f.where() + ` ORDER BY created_at DESC, id DESC` + f.page(limit, offset)
	rows, err := r.db.QueryContext(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	out := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, total, rows.Err()
}

func (r *ConversationRepo) AddMessage(ctx context.Context, m *domain.Message) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := insertMessage(ctx, tx, m); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE conversations SET updated_at = $1 WHERE id = $2`, m.CreatedAt, m.ConversationID,
		); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
}

func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversation_participants SET last_read_at = $1
		WHERE conversation_id = $2 AND user_id = $3
	`, at, conversationID, userID)
	if isInvalidText(err) {
		return messaging.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return messaging.ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages m
		JOIN conversation_participants p ON p.conversation_id = m.conversation_id AND p.user_id = $1
		WHERE m.sender_id <> $1
		  AND (p.last_read_at IS NULL OR m.created_at > p.last_read_at)
	`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}
