package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"agency_messaging/internal/domain"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Message, error)
	// ListAll - весь журнал в порядке вставки, для прогрева индекса входящих
	ListAll(ctx context.Context) ([]domain.Message, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Message, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

const messageColumns = `id, client_id, sender_role, body, status, created_at`

func insertMessage(ctx context.Context, q dbtx, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, client_id, sender_role, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	return q.QueryRow(ctx, query,
		message.ID, message.ClientID, message.SenderRole, message.Body, message.Status,
	).Scan(&message.CreatedAt)
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	if err := insertMessage(ctx, r.db, message); err != nil {
		r.log.Error("Failed to create message", "error", err)
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	message := &domain.Message{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&message.ID, &message.ClientID, &message.SenderRole, &message.Body, &message.Status, &message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to get message", "error", err)
		return nil, fmt.Errorf("get message: %w", err)
	}
	return message, nil
}

func (r *messageRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE client_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	return r.list(ctx, query, clientID)
}

func (r *messageRepository) ListAll(ctx context.Context) ([]domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages ORDER BY seq ASC`
	return r.list(ctx, query)
}

func (r *messageRepository) list(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list messages", "error", err)
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ClientID, &m.SenderRole, &m.Body, &m.Status, &m.CreatedAt); err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (r *messageRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Message, error) {
	query := `
		UPDATE messages SET status = $2
		WHERE id = $1
		RETURNING ` + messageColumns

	message := &domain.Message{}
	err := r.db.QueryRow(ctx, query, id, status).Scan(
		&message.ID, &message.ClientID, &message.SenderRole, &message.Body, &message.Status, &message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMessageNotFound
		}
		r.log.Error("Failed to update message status", "error", err)
		return nil, fmt.Errorf("update message status: %w", err)
	}
	return message, nil
}
