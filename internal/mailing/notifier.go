package mailing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// UserDirectory resolves recipients by id.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Notifier renders and sends the platform's emails. It implements the
// mail hooks of the account, application and messaging services.
type Notifier struct {
	sender  Sender
	tpl     *Templates
	users   UserDirectory
	baseURL string

	verificationTTLHours int
	resetTTLMinutes      int
}

// NewNotifier creates a notifier. baseURL is the public address of the
// web app that serves the links.
func NewNotifier(sender Sender, tpl *Templates, users UserDirectory, baseURL string) *Notifier {
	return &Notifier{
		sender:               sender,
		tpl:                  tpl,
		users:                users,
		baseURL:              strings.TrimRight(baseURL, "/"),
		verificationTTLHours: 24,
		resetTTLMinutes:      60,
	}
}

func (n *Notifier) link(path string, query url.Values) string {
	u := n.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (n *Notifier) send(ctx context.Context, to *domain.User, name string, vars map[string]any) error {
	vars["name"] = to.Name
	r, err := n.tpl.Render(name, vars)
	if err != nil {
		return err
	}
	return n.sender.Send(ctx, &Message{
		To:      to.Email,
		ToName:  to.Name,
		Subject: r.Subject,
		HTML:    r.HTML,
		Text:    r.Text,
		Tags:    map[string]string{"template": name},
	})
}

// SendVerification emails the address confirmation link.
func (n *Notifier) SendVerification(ctx context.Context, u *domain.User, token string) error {
	return n.send(ctx, u, TemplateVerification, map[string]any{
		"link":      n.link("/verify-email", url.Values{"token": {token}}),
		"ttl_hours": n.verificationTTLHours,
	})
}

// SendPasswordReset emails the password reset link.
func (n *Notifier) SendPasswordReset(ctx context.Context, u *domain.User, token string) error {
	return n.send(ctx, u, TemplatePasswordReset, map[string]any{
		"link":        n.link("/reset-password", url.Values{"token": {token}}),
		"ttl_minutes": n.resetTTLMinutes,
	})
}

// ApplicationStatusChanged tells the candidate their application moved.
func (n *Notifier) ApplicationStatusChanged(ctx context.Context, a *domain.Application, note string) error {
	u, err := n.users.GetUser(ctx, a.CandidateUserID)
	if err != nil {
		return fmt.Errorf("load candidate: %w", err)
	}
	return n.send(ctx, u, TemplateApplicationStatus, map[string]any{
		"job_title": a.JobTitle,
		"company":   a.CompanyName,
		"status":    string(a.Status),
		"note":      note,
		"link":      n.link("/candidate/applications/"+url.PathEscape(a.ID), nil),
	})
}

// MessageReceived tells a user someone started a conversation with them.
func (n *Notifier) MessageReceived(ctx context.Context, recipientID string, c *domain.Conversation, m *domain.Message) error {
	u, err := n.users.GetUser(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	senderName := ""
	if s, err := n.users.GetUser(ctx, m.SenderID); err == nil {
		senderName = s.Name
	}
	return n.send(ctx, u, TemplateNewMessage, map[string]any{
		"sender_name": senderName,
		"subject":     c.Subject,
		"preview":     m.Body,
		"link":        n.link("/messages/"+url.PathEscape(c.ID), nil),
	})
}
