package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ascend-academy/api/internal/auth"
	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/ascend-academy/api/internal/middleware"
	"github.com/ascend-academy/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const maxMessageLength = 4000

// MessagingStore defines the database methods needed by messaging handlers.
type MessagingStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListMessagingUsers(ctx context.Context, self uuid.UUID, academyID pgtype.UUID) ([]database.MessagingUser, error)
	ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]database.ConversationSummary, error)
	GetOrCreateConversation(ctx context.Context, userA, userB uuid.UUID) (database.Conversation, error)
	GetConversation(ctx context.Context, id uuid.UUID) (database.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]database.Message, error)
	CreateMessage(ctx context.Context, arg database.CreateMessageParams) (database.Message, error)
	TouchConversation(ctx context.Context, id uuid.UUID) error
	MarkMessagesRead(ctx context.Context, conversationID, reader uuid.UUID) (int64, error)
}

// Notifier pushes an event to every open connection of a user.
// Satisfied by *ws.Hub.
type Notifier interface {
	Notify(userID uuid.UUID, eventType string, payload any)
}

// MessagingHandler handles two-party conversations.
type MessagingHandler struct {
	store    MessagingStore
	notifier Notifier
}

// NewMessagingHandler creates a new MessagingHandler.
func NewMessagingHandler(store MessagingStore, notifier Notifier) *MessagingHandler {
	return &MessagingHandler{store: store, notifier: notifier}
}

// RegisterRoutes registers messaging endpoints. Expected to be mounted at /messaging.
func (h *MessagingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users", h.ListUsers)
	r.Get("/conversations", h.ListConversations)
	r.Post("/conversations", h.StartConversation)
	r.Get("/conversations/{id}/messages", h.ListMessages)
	r.Post("/conversations/{id}/messages", h.SendMessage)
}

// --- Request / Response types ---

type startConversationRequest struct {
	ParticipantID string `json:"participant_id"`
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

type conversationResponse struct {
	ID            uuid.UUID `json:"id"`
	ParticipantA  uuid.UUID `json:"participant_a"`
	ParticipantB  uuid.UUID `json:"participant_b"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type messageResponse struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	Body           string     `json:"body"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

type messagesReadPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	ReaderID       uuid.UUID `json:"reader_id"`
	Count          int64     `json:"count"`
}

func toConversationResponse(c database.Conversation) conversationResponse {
	return conversationResponse{
		ID:            c.ID,
		ParticipantA:  c.ParticipantA,
		ParticipantB:  c.ParticipantB,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

func toMessageResponse(m database.Message) messageResponse {
	return messageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		ReadAt:         timePtr(m.ReadAt),
		CreatedAt:      m.CreatedAt,
	}
}

// --- Handlers ---

// ListUsers returns the people the caller can start a conversation with.
func (h *MessagingHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	users, err := h.store.ListMessagingUsers(r.Context(), claims.UserID, academyScope(claims))
	if err != nil {
		internalError(w, "list messaging users", err)
		return
	}
	if users == nil {
		users = []database.MessagingUser{}
	}
	writeJSON(w, http.StatusOK, users)
}

// ListConversations returns the caller's conversations with unread counts.
func (h *MessagingHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	convs, err := h.store.ListConversationsForUser(r.Context(), claims.UserID)
	if err != nil {
		internalError(w, "list conversations", err)
		return
	}
	if convs == nil {
		convs = []database.ConversationSummary{}
	}
	writeJSON(w, http.StatusOK, convs)
}

// StartConversation returns the conversation between the caller and
// participant_id, creating it on first contact.
func (h *MessagingHandler) StartConversation(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req startConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	participantID, err := uuid.Parse(req.ParticipantID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid participant_id is required"})
		return
	}
	if participantID == claims.UserID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot start a conversation with yourself"})
		return
	}

	other, err := h.store.GetUserByID(r.Context(), participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		internalError(w, "start conversation: get participant", err)
		return
	}
	if !canMessage(claims, other) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}

	conv, err := h.store.GetOrCreateConversation(r.Context(), claims.UserID, other.ID)
	if err != nil {
		internalError(w, "start conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, toConversationResponse(conv))
}

// ListMessages returns the conversation history and marks incoming messages
// read. The other participant is told how many of their messages were read.
func (h *MessagingHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}

	n, err := h.store.MarkMessagesRead(r.Context(), conv.ID, claims.UserID)
	if err != nil {
		internalError(w, "mark messages read", err)
		return
	}
	if n > 0 {
		h.notifier.Notify(otherParticipant(conv, claims.UserID), ws.EventMessagesRead, messagesReadPayload{
			ConversationID: conv.ID,
			ReaderID:       claims.UserID,
			Count:          n,
		})
	}

	msgs, err := h.store.ListMessages(r.Context(), conv.ID)
	if err != nil {
		internalError(w, "list messages", err)
		return
	}

	resp := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		resp[i] = toMessageResponse(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SendMessage stores a message and pushes it to the recipient.
func (h *MessagingHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	conv, ok := h.loadConversation(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body is required"})
		return
	}
	if len(req.Body) > maxMessageLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be at most 4000 characters"})
		return
	}

	msg, err := h.store.CreateMessage(r.Context(), database.CreateMessageParams{
		ConversationID: conv.ID,
		SenderID:       claims.UserID,
		Body:           req.Body,
	})
	if err != nil {
		internalError(w, "create message", err)
		return
	}
	if err := h.store.TouchConversation(r.Context(), conv.ID); err != nil {
		log.Printf("WARNING: touch conversation %s: %v", conv.ID, err)
	}

	resp := toMessageResponse(msg)
	h.notifier.Notify(otherParticipant(conv, claims.UserID), ws.EventMessageCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// --- Helpers ---

// loadConversation resolves {id}, answering 404 unless the caller is a participant.
func (h *MessagingHandler) loadConversation(w http.ResponseWriter, r *http.Request) (database.Conversation, bool) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation ID"})
		return database.Conversation{}, false
	}

	conv, err := h.store.GetConversation(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
			return database.Conversation{}, false
		}
		internalError(w, "get conversation", err)
		return database.Conversation{}, false
	}
	if conv.ParticipantA != claims.UserID && conv.ParticipantB != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
		return database.Conversation{}, false
	}
	return conv, true
}

func otherParticipant(c database.Conversation, self uuid.UUID) uuid.UUID {
	if c.ParticipantA == self {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// canMessage keeps conversations inside one academy. Platform staff can
// reach and be reached by anyone.
func canMessage(c *auth.Claims, other database.User) bool {
	if c.Role == enum.RoleSuperAdmin || other.Role == enum.RoleSuperAdmin {
		return true
	}
	return other.AcademyID.Valid && other.AcademyID.Bytes == c.AcademyID
}
