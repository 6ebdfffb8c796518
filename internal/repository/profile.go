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

// ProfileRepository читает профили, которые ведет внешний сервис учетных записей
type ProfileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
	// Upsert - синхронизация имени из токена, чтобы во входящих было что показать
	Upsert(ctx context.Context, profile *domain.Profile) error
}

type profileRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewProfileRepository(db *pgxpool.Pool, log logger.Logger) ProfileRepository {
	return &profileRepository{db: db, log: log}
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	query := `SELECT id, display_name, role FROM profiles WHERE id = $1`

	profile := &domain.Profile{}
	err := r.db.QueryRow(ctx, query, id).Scan(&profile.ID, &profile.DisplayName, &profile.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get profile", "error", err)
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	query := `SELECT id, display_name FROM profiles WHERE id = ANY($1::uuid[])`
	rows, err := r.db.Query(ctx, query, uuidStrings(ids))
	if err != nil {
		r.log.Error("Failed to load display names", "error", err)
		return nil, fmt.Errorf("display names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if name != "" {
			names[id] = name
		}
	}
	return names, rows.Err()
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, display_name, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, role = EXCLUDED.role
	`
	if _, err := r.db.Exec(ctx, query, profile.ID, profile.DisplayName, profile.Role); err != nil {
		r.log.Error("Failed to upsert profile", "error", err)
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}
