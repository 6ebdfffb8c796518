package service

import (
	"context"
	"fmt"
	"regexp"

	"agency_messaging/internal/domain"
	"agency_messaging/internal/repository"
	apperrors "agency_messaging/pkg/errors"
	"agency_messaging/pkg/logger"
)

const maxPreferenceValue = 1024

var preferenceKey = regexp.MustCompile(`^[a-z][a-z0-9_.-]{0,63}$`)

// PreferenceService - пользовательские настройки интерфейса (тема и т.п.)
type PreferenceService interface {
	Get(ctx context.Context, actor domain.Actor, key string) (string, error)
	Set(ctx context.Context, actor domain.Actor, key, value string) error
	All(ctx context.Context, actor domain.Actor) (map[string]string, error)
}

type preferenceService struct {
	repo repository.PreferenceRepository
	log  logger.Logger
}

func NewPreferenceService(repo repository.PreferenceRepository, log logger.Logger) PreferenceService {
	return &preferenceService{repo: repo, log: log}
}

func validatePreferenceKey(key string) error {
	if !preferenceKey.MatchString(key) {
		return fmt.Errorf("%w: invalid preference key", apperrors.ErrBadRequest)
	}
	return nil
}

func (s *preferenceService) Get(ctx context.Context, actor domain.Actor, key string) (string, error) {
	if err := validatePreferenceKey(key); err != nil {
		return "", err
	}
	value, ok, err := s.repo.Get(ctx, actor.ID, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return value, nil
}

func (s *preferenceService) Set(ctx context.Context, actor domain.Actor, key, value string) error {
	if err := validatePreferenceKey(key); err != nil {
		return err
	}
	if len(value) > maxPreferenceValue {
		return fmt.Errorf("%w: preference value too long", apperrors.ErrBadRequest)
	}
	return s.repo.Set(ctx, actor.ID, key, value)
}

func (s *preferenceService) All(ctx context.Context, actor domain.Actor) (map[string]string, error) {
	return s.repo.All(ctx, actor.ID)
}
