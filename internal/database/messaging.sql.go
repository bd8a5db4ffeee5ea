package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const conversationColumns = `id, participant_a, participant_b, created_at, last_message_at`

func scanConversation(row scanner) (Conversation, error) {
	var i Conversation
	err := row.Scan(&i.ID, &i.ParticipantA, &i.ParticipantB, &i.CreatedAt, &i.LastMessageAt)
	return i, err
}

const messageColumns = `id, conversation_id, sender_id, body, read_at, created_at`

func scanMessage(row scanner) (Message, error) {
	var i Message
	err := row.Scan(&i.ID, &i.ConversationID, &i.SenderID, &i.Body, &i.ReadAt, &i.CreatedAt)
	return i, err
}

// Participants are stored ordered (a < b) so a pair maps to exactly one row.
const getOrCreateConversation = `
INSERT INTO conversations (participant_a, participant_b)
VALUES (LEAST($1::uuid, $2::uuid), GREATEST($1::uuid, $2::uuid))
ON CONFLICT ON CONSTRAINT conversations_pair_key
DO UPDATE SET participant_a = EXCLUDED.participant_a
RETURNING ` + conversationColumns

func (q *Queries) GetOrCreateConversation(ctx context.Context, userA, userB uuid.UUID) (Conversation, error) {
	return scanConversation(q.db.QueryRow(ctx, getOrCreateConversation, userA, userB))
}

const getConversation = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

func (q *Queries) GetConversation(ctx context.Context, id uuid.UUID) (Conversation, error) {
	return scanConversation(q.db.QueryRow(ctx, getConversation, id))
}

const listConversationsForUser = `
SELECT c.id,
       CASE WHEN c.participant_a = $1 THEN c.participant_b ELSE c.participant_a END AS other_id,
       u.full_name,
       u.role,
       COALESCE(lm.body, '') AS last_message,
       c.last_message_at,
       (SELECT count(*) FROM messages m
         WHERE m.conversation_id = c.id AND m.sender_id <> $1 AND m.read_at IS NULL)::int AS unread_count
FROM conversations c
JOIN users u ON u.id = CASE WHEN c.participant_a = $1 THEN c.participant_b ELSE c.participant_a END
LEFT JOIN LATERAL (
    SELECT body FROM messages WHERE conversation_id = c.id ORDER BY created_at DESC LIMIT 1
) lm ON true
WHERE c.participant_a = $1 OR c.participant_b = $1
ORDER BY c.last_message_at DESC`

type ConversationSummary struct {
	ID            uuid.UUID `json:"id"`
	OtherUserID   uuid.UUID `json:"other_user_id"`
	OtherUserName string    `json:"other_user_name"`
	OtherUserRole string    `json:"other_user_role"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int32     `json:"unread_count"`
}

func (q *Queries) ListConversationsForUser(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	rows, err := q.db.Query(ctx, listConversationsForUser, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (ConversationSummary, error) {
		var i ConversationSummary
		err := row.Scan(
			&i.ID,
			&i.OtherUserID,
			&i.OtherUserName,
			&i.OtherUserRole,
			&i.LastMessage,
			&i.LastMessageAt,
			&i.UnreadCount,
		)
		return i, err
	})
}

const listMessages = `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 ORDER BY created_at`

func (q *Queries) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := q.db.Query(ctx, listMessages, conversationID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMessage)
}

const createMessage = `
INSERT INTO messages (conversation_id, sender_id, body)
VALUES ($1, $2, $3)
RETURNING ` + messageColumns

type CreateMessageParams struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Body           string
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	return scanMessage(q.db.QueryRow(ctx, createMessage, arg.ConversationID, arg.SenderID, arg.Body))
}

const touchConversation = `UPDATE conversations SET last_message_at = now() WHERE id = $1`

func (q *Queries) TouchConversation(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, touchConversation, id)
	return err
}

// MarkMessagesRead stamps every unread message in the conversation that was
// not sent by reader and returns how many were updated.
const markMessagesRead = `
UPDATE messages SET read_at = now()
WHERE conversation_id = $1 AND sender_id <> $2 AND read_at IS NULL`

func (q *Queries) MarkMessagesRead(ctx context.Context, conversationID, reader uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markMessagesRead, conversationID, reader)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listMessagingUsers = `
SELECT id, full_name, email, role FROM users
WHERE is_active = true AND id <> $1
  AND ($2::uuid IS NULL OR academy_id = $2)
ORDER BY full_name`

type MessagingUser struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
}

func (q *Queries) ListMessagingUsers(ctx context.Context, self uuid.UUID, academyID pgtype.UUID) ([]MessagingUser, error) {
	rows, err := q.db.Query(ctx, listMessagingUsers, self, academyID)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (MessagingUser, error) {
		var i MessagingUser
		err := row.Scan(&i.ID, &i.FullName, &i.Email, &i.Role)
		return i, err
	})
}
