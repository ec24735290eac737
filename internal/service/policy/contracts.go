package policy

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// PolicyRepository интерфейс репозитория переопределений политики
type PolicyRepository interface {
	Get(ctx context.Context, specialistID int64) (*domain.SpecialistPolicy, error)
	Upsert(ctx context.Context, policy *domain.SpecialistPolicy) (*domain.SpecialistPolicy, error)
	Delete(ctx context.Context, specialistID int64) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
