package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/vedran77/nestmate/internal/domain"
)

type ConversationRepo struct {
	db *sqlx.DB
}

func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) GetOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, participant_a, participant_b, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (participant_a, participant_b) DO NOTHING`,
		conv.ID, conv.ParticipantA, conv.ParticipantB, toNanos(conv.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	var row conversationRow
	err = r.db.GetContext(ctx, &row, `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE participant_a = ? AND participant_b = ?`,
		conv.ParticipantA, conv.ParticipantB)
	if err != nil {
		return nil, fmt.Errorf("reselect conversation: %w", err)
	}
	stored := row.toDomain()
	return &stored, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	conv := row.toDomain()
	return &conv, nil
}

type summaryRow struct {
	conversationRow
	OtherID          uuid.UUID `db:"other_id"`
	OtherDisplayName string    `db:"other_display_name"`
	OtherPictureURL  *string   `db:"other_picture_url"`
	OtherRole        string    `db:"other_role"`
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	var rows []summaryRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT c.id, c.participant_a, c.participant_b, c.created_at,
			u.id AS other_id, u.display_name AS other_display_name,
			u.picture_url AS other_picture_url, u.role AS other_role
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.participant_a = ? THEN c.participant_b ELSE c.participant_a END
		WHERE c.participant_a = ? OR c.participant_b = ?
		ORDER BY c.created_at DESC, c.id`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	return lo.Map(rows, func(row summaryRow, _ int) domain.ConversationSummary {
		return domain.ConversationSummary{
			Conversation: row.conversationRow.toDomain(),
			OtherUser: domain.UserProfile{
				ID:          row.OtherID,
				DisplayName: row.OtherDisplayName,
				PictureURL:  row.OtherPictureURL,
				Role:        row.OtherRole,
			},
		}
	}), nil
}
