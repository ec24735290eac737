package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	usersRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/users"
	userClient "github.com/m04kA/SMC-SchedulingService/internal/integrations/userservice"
)

// UserSource справочник пользователей: UserService, Postgres или память
type UserSource interface {
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// ErrSpecialistNotFound специалист не найден или у пользователя нет роли specialist
var ErrSpecialistNotFound = fmt.Errorf("%w: specialist", domain.ErrNotFound)

// Service проверки по справочнику пользователей
type Service struct {
	users  UserSource
	logger Logger
}

func NewService(users UserSource, logger Logger) *Service {
	return &Service{users: users, logger: logger}
}

// EnsureSpecialist проверяет, что пользователь существует и имеет роль specialist.
// При недоступности UserService проверка пропускается.
func (s *Service) EnsureSpecialist(ctx context.Context, specialistID int64) error {
	user, err := s.users.GetUser(ctx, specialistID)
	switch {
	case err == nil:
	case errors.Is(err, usersRepo.ErrUserNotFound), errors.Is(err, userClient.ErrUserNotFound):
		return ErrSpecialistNotFound
	case errors.Is(err, userClient.ErrServiceDegraded):
		s.logger.Warn("EnsureSpecialist: skipping check for specialist=%d: %v", specialistID, err)
		return nil
	default:
		s.logger.Error("EnsureSpecialist: failed to load specialist=%d: %v", specialistID, err)
		return fmt.Errorf("%w: EnsureSpecialist: %v", domain.ErrPersistence, err)
	}

	if !user.IsSpecialist() {
		return ErrSpecialistNotFound
	}
	return nil
}
