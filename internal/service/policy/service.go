package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	policyRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/policy"
	"github.com/m04kA/SMC-SchedulingService/internal/service/policy/models"
)

// Service политика расписания: глобальные настройки из конфигурации
// плюс переопределения на уровне специалиста
type Service struct {
	policyRepo PolicyRepository
	defaults   domain.SchedulingPolicy
	logger     Logger
}

// NewService создает новый экземпляр сервиса политик
func NewService(policyRepo PolicyRepository, defaults domain.SchedulingPolicy, logger Logger) *Service {
	return &Service{
		policyRepo: policyRepo,
		defaults:   defaults,
		logger:     logger,
	}
}

// Effective действующая политика специалиста
func (s *Service) Effective(ctx context.Context, specialistID int64) (domain.SchedulingPolicy, error) {
	override, err := s.override(ctx, specialistID)
	if err != nil {
		return domain.SchedulingPolicy{}, err
	}
	return override.Apply(s.defaults), nil
}

// Get действующая политика и переопределения специалиста
func (s *Service) Get(ctx context.Context, specialistID int64) (*models.PolicyResponse, error) {
	override, err := s.override(ctx, specialistID)
	if err != nil {
		return nil, err
	}
	return models.FromDomainPolicy(specialistID, s.defaults, override), nil
}

// Update заменяет переопределения специалиста.
// Доступно самому специалисту и администратору.
// Если оба поля null, переопределение удаляется.
func (s *Service) Update(ctx context.Context, specialistID int64, req *models.UpdatePolicyRequest) (*models.PolicyResponse, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}

	if !principal.CanManageSpecialist(specialistID) {
		s.logger.Warn("Update: user=%d cannot manage specialist=%d", principal.UserID, specialistID)
		return nil, domain.ErrAccessDenied
	}

	override := &domain.SpecialistPolicy{
		SpecialistID:        specialistID,
		SundayClosed:        req.SundayClosed,
		EnforceWorkingHours: req.EnforceWorkingHours,
	}

	if override.IsEmpty() {
		if err := s.policyRepo.Delete(ctx, specialistID); err != nil && !errors.Is(err, policyRepo.ErrPolicyNotFound) {
			s.logger.Error("Update: failed to reset policy for specialist=%d: %v", specialistID, err)
			return nil, fmt.Errorf("%w: Update - delete: %v", domain.ErrPersistence, err)
		}
		s.logger.Info("Update: policy of specialist=%d reset to defaults by user=%d", specialistID, principal.UserID)
		return models.FromDomainPolicy(specialistID, s.defaults, nil), nil
	}

	saved, err := s.policyRepo.Upsert(ctx, override)
	if err != nil {
		s.logger.Error("Update: failed to save policy for specialist=%d: %v", specialistID, err)
		return nil, fmt.Errorf("%w: Update - upsert: %v", domain.ErrPersistence, err)
	}

	s.logger.Info("Update: policy of specialist=%d updated by user=%d", specialistID, principal.UserID)
	return models.FromDomainPolicy(specialistID, s.defaults, saved), nil
}

func (s *Service) override(ctx context.Context, specialistID int64) (*domain.SpecialistPolicy, error) {
	override, err := s.policyRepo.Get(ctx, specialistID)
	if errors.Is(err, policyRepo.ErrPolicyNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("override: failed to load policy for specialist=%d: %v", specialistID, err)
		return nil, fmt.Errorf("%w: policy lookup: %v", domain.ErrPersistence, err)
	}
	return override, nil
}
