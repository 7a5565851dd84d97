package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
)

// ListConversations lists the caller's conversations, most recent first.
// @Summary My conversations
// @Tags messages
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} PaginatedResponse
// @Router /conversations [get]
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	items, total, err := h.svc.Messaging.List(r.Context(), claims(r).UserID(), p.Limit, p.Offset)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}

// StartConversation opens a conversation with another user and posts the
// first message.
// @Summary Start conversation
// @Tags messages
// @Accept json
// @Produce json
// @Param body body messaging.StartInput true "Recipient and first message"
// @Success 201 {object} domain.Conversation
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 404 {object} httputil.ErrorResponse
// @Router /conversations [post]
func (h *Handlers) StartConversation(w http.ResponseWriter, r *http.Request) {
	var in messaging.StartInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	c, err := h.svc.Messaging.Start(r.Context(), viewer(r), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.Created(w, c)
}

// ListMessages lists a conversation's messages, newest first.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	items, total, err := h.svc.Messaging.Messages(r.Context(), claims(r).UserID(), chi.URLParam(r, "id"), p.Limit, p.Offset)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

// SendMessage posts to a conversation the caller takes part in.
// @Summary Send message
// @Tags messages
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param body body sendMessageRequest true "Message"
// @Success 201 {object} domain.Message
// @Failure 404 {object} httputil.ErrorResponse
// @Router /conversations/{id}/messages [post]
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in sendMessageRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	m, err := h.svc.Messaging.Send(r.Context(), claims(r).UserID(), chi.URLParam(r, "id"), in.Body)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.Created(w, m)
}

// MarkConversationRead marks every message in the conversation as read.
func (h *Handlers) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Messaging.MarkRead(r.Context(), claims(r).UserID(), chi.URLParam(r, "id")); err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// UnreadCount returns the caller's unread message count.
func (h *Handlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Messaging.UnreadCount(r.Context(), claims(r).UserID())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, map[string]int{"unread": n})
}

// ListActivity returns the caller's audit trail, newest first.
// @Summary My activity
// @Tags activity
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} PaginatedResponse
// @Router /activity [get]
func (h *Handlers) ListActivity(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	items, total, err := h.svc.Activity.List(r.Context(), claims(r).UserID(), p.Limit, p.Offset)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, NewPaginatedResponse(items, p, total))
}
