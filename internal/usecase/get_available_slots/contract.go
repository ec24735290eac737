package get_available_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// WorkingHoursStore рабочие интервалы специалиста
type WorkingHoursStore interface {
	GetIntervals(ctx context.Context, specialistID int64, dayOfWeek time.Weekday) ([]domain.WorkingInterval, error)
}

// ReservationReader активные бронирования
type ReservationReader interface {
	FindActive(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error)
}

// ServiceCatalog каталог услуг
type ServiceCatalog interface {
	GetDuration(ctx context.Context, serviceID int64) (int, error)
}

// PolicyProvider действующая политика расписания специалиста
type PolicyProvider interface {
	Effective(ctx context.Context, specialistID int64) (domain.SchedulingPolicy, error)
}

// SpecialistChecker проверка существования специалиста
type SpecialistChecker interface {
	EnsureSpecialist(ctx context.Context, specialistID int64) error
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
