package get_available_slots

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Request модель запроса на получение доступных слотов
type Request struct {
	SpecialistID int64
	ServiceID    int64
	Date         time.Time // дата без времени
	Page         int       // с 1
	PageSize     int
}

// Response одна страница доступных слотов
type Response struct {
	Date            time.Time
	SpecialistID    int64
	ServiceID       int64
	DurationMinutes int
	Slots           []domain.AvailableSlot
	Page            domain.PageInfo
}
