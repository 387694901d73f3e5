package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/vedran77/nestmate/internal/domain"
)

type ConversationRepo struct {
	db DBTX
}

func NewConversationRepo(db DBTX) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// GetOrCreate relies on the unique (participant_a, participant_b) constraint:
// a concurrent creator loses the insert and reads the winner's row.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	insert := `
		INSERT INTO conversations (id, participant_a, participant_b, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (participant_a, participant_b) DO NOTHING`
	if _, err := r.db.Exec(ctx, insert, conv.ID, conv.ParticipantA, conv.ParticipantB, conv.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	query := `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE participant_a = $1 AND participant_b = $2`
	var stored domain.Conversation
	err := r.db.QueryRow(ctx, query, conv.ParticipantA, conv.ParticipantB).Scan(
		&stored.ID, &stored.ParticipantA, &stored.ParticipantB, &stored.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("reselect conversation: %w", err)
	}
	return &stored, nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, participant_a, participant_b, created_at
		FROM conversations
		WHERE id = $1`
	var conv domain.Conversation
	err := r.db.QueryRow(ctx, query, id).Scan(
		&conv.ID, &conv.ParticipantA, &conv.ParticipantB, &conv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}
	return &conv, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	query := `
		SELECT c.id, c.participant_a, c.participant_b, c.created_at,
			u.id, u.display_name, u.picture_url, u.role
		FROM conversations c
		JOIN users u ON u.id = CASE WHEN c.participant_a = $1 THEN c.participant_b ELSE c.participant_a END
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY c.created_at DESC, c.id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []domain.ConversationSummary
	for rows.Next() {
		var s domain.ConversationSummary
		if err := rows.Scan(
			&s.ID, &s.ParticipantA, &s.ParticipantB, &s.CreatedAt,
			&s.OtherUser.ID, &s.OtherUser.DisplayName, &s.OtherUser.PictureURL, &s.OtherUser.Role,
		); err != nil {
			return nil, err
		}
		convs = append(convs, s)
	}
	return convs, rows.Err()
}
