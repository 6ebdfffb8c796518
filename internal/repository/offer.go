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

type OfferRepository interface {
	// CreateWithMessage записывает предложение и сообщение-носитель в одной транзакции
	CreateWithMessage(ctx context.Context, offer *domain.Offer, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Offer, error)
	// UpdateStatusIfSent меняет статус только у предложения в статусе sent.
	// Если предложение уже закрыто, возвращает ErrOfferClosed.
	UpdateStatusIfSent(ctx context.Context, id uuid.UUID, status string) (*domain.Offer, error)
}

type offerRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewOfferRepository(db *pgxpool.Pool, log logger.Logger) OfferRepository {
	return &offerRepository{db: db, log: log}
}

const offerColumns = `id, client_id, service_id, title, description, price, delivery_date,
	revisions, deliverables, status, created_at, updated_at`

func scanOffer(row pgx.Row, offer *domain.Offer) error {
	return row.Scan(
		&offer.ID, &offer.ClientID, &offer.ServiceID, &offer.Title, &offer.Description,
		&offer.Price, &offer.DeliveryDate, &offer.Revisions, &offer.Deliverables,
		&offer.Status, &offer.CreatedAt, &offer.UpdatedAt,
	)
}

func (r *offerRepository) CreateWithMessage(ctx context.Context, offer *domain.Offer, message *domain.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO offers (id, client_id, service_id, title, description, price,
			delivery_date, revisions, deliverables, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		offer.ID, offer.ClientID, offer.ServiceID, offer.Title, offer.Description, offer.Price,
		offer.DeliveryDate, offer.Revisions, offer.Deliverables, offer.Status,
	).Scan(&offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		r.log.Error("Failed to create offer", "error", err)
		return fmt.Errorf("create offer: %w", err)
	}

	if err := insertMessage(ctx, tx, message); err != nil {
		r.log.Error("Failed to create offer message", "error", err)
		return fmt.Errorf("create offer message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit offer", "error", err)
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *offerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	offer := &domain.Offer{}
	if err := scanOffer(r.db.QueryRow(ctx, query, id), offer); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrOfferNotFound
		}
		r.log.Error("Failed to get offer", "error", err)
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return offer, nil
}

func (r *offerRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Offer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + offerColumns + ` FROM offers WHERE id = ANY($1::uuid[])`

	rows, err := r.db.Query(ctx, query, uuidStrings(ids))
	if err != nil {
		r.log.Error("Failed to list offers", "error", err)
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var offers []domain.Offer
	for rows.Next() {
		var offer domain.Offer
		if err := scanOffer(rows, &offer); err != nil {
			r.log.Error("Failed to scan offer", "error", err)
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, offer)
	}
	return offers, rows.Err()
}

func (r *offerRepository) UpdateStatusIfSent(ctx context.Context, id uuid.UUID, status string) (*domain.Offer, error) {
	query := `
		UPDATE offers SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'sent'
		RETURNING ` + offerColumns

	offer := &domain.Offer{}
	err := scanOffer(r.db.QueryRow(ctx, query, id, status), offer)
	if err == nil {
		return offer, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.log.Error("Failed to update offer status", "error", err)
		return nil, fmt.Errorf("update offer status: %w", err)
	}

	// строка не обновилась: либо предложения нет, либо его уже закрыли
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, fmt.Errorf("%w: offer is %s", apperrors.ErrOfferClosed, current.Status)
}
