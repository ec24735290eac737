package create_booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// ReservationRepository интерфейс репозитория бронирований
type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) (*domain.Reservation, error)
	GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*domain.Reservation, error)
	// LockScope транзакционные блокировки по ключам (advisory lock в Postgres)
	LockScope(ctx context.Context, keys ...string) error
}

// ConflictChecker проверки пересечений и недельного лимита
type ConflictChecker interface {
	HasSpecialistConflict(ctx context.Context, specialistID int64, date time.Time, start, end types.TimeString, excludeID *int64) (bool, error)
	HasClientConflict(ctx context.Context, clientID int64, date time.Time, start, end types.TimeString, excludeID *int64) (bool, error)
	HasWeeklyBookingForService(ctx context.Context, clientID, serviceID int64, date time.Time) (bool, error)
}

// ServiceCatalog каталог услуг
type ServiceCatalog interface {
	GetDuration(ctx context.Context, serviceID int64) (int, error)
}

// WorkingHoursStore рабочие интервалы специалиста
type WorkingHoursStore interface {
	GetIntervals(ctx context.Context, specialistID int64, dayOfWeek time.Weekday) ([]domain.WorkingInterval, error)
}

// PolicyProvider действующая политика расписания специалиста
type PolicyProvider interface {
	Effective(ctx context.Context, specialistID int64) (domain.SchedulingPolicy, error)
}

// SpecialistChecker проверка существования специалиста
type SpecialistChecker interface {
	EnsureSpecialist(ctx context.Context, specialistID int64) error
}

// Locker блокировки на время проверок и записи
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// AttemptRecorder учёт результатов попыток бронирования (*metrics.Metrics)
type AttemptRecorder interface {
	IncBookingAttempt(result string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}
