package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/vedran77/nestmate/internal/domain"
)

type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, content, sent_at, is_read`

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, sent_at, is_read)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, toNanos(msg.SentAt), msg.IsRead)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = ?
		ORDER BY sent_at, seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return toMessages(rows), nil
}

func (r *MessageRepo) ListPage(ctx context.Context, conversationID uuid.UUID, before *uuid.UUID, limit int) ([]domain.Message, error) {
	var rows []messageRow
	var err error
	if before != nil {
		err = r.db.SelectContext(ctx, &rows, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = ?
				AND (sent_at, seq) < (SELECT sent_at, seq FROM messages WHERE id = ?)
			ORDER BY sent_at DESC, seq DESC
			LIMIT ?`, conversationID, *before, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows, `
			SELECT `+messageColumns+`
			FROM messages
			WHERE conversation_id = ?
			ORDER BY sent_at DESC, seq DESC
			LIMIT ?`, conversationID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list message page: %w", err)
	}
	return lo.Reverse(toMessages(rows)), nil
}

func (r *MessageRepo) MarkReadForRecipient(ctx context.Context, conversationID, recipientID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE conversation_id = ? AND sender_id <> ? AND is_read = 0`,
		conversationID, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}

func (r *MessageRepo) UnreadCounts(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		ConversationID uuid.UUID `db:"conversation_id"`
		Count          int64     `db:"n"`
	}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT m.conversation_id, COUNT(*) AS n
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.participant_a = ? OR c.participant_b = ?)
			AND m.sender_id <> ? AND m.is_read = 0
		GROUP BY m.conversation_id`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("unread counts: %w", err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.ConversationID] = row.Count
	}
	return counts, nil
}

func toMessages(rows []messageRow) []domain.Message {
	messages := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, row.toDomain())
	}
	return messages
}
