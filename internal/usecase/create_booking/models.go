package create_booking

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// Request модель запроса на создание бронирования.
// Дата и время приходят строками, чтобы все ошибки формата попали в один ValidationError.
type Request struct {
	ClientID         int64
	SpecialistID     int64
	ServiceID        int64
	Date             string  // YYYY-MM-DD
	StartTime        string  // HH:MM[:SS]
	Notes            *string // опционально, до 500 символов
	DurationOverride *int    // опционально, иначе длительность услуги

	// IdempotencyKey значение заголовка Idempotency-Key (опционально)
	IdempotencyKey string
}

// Response модель ответа с созданным бронированием
type Response struct {
	Reservation *domain.Reservation
	// Replayed true, если вернули бронирование, созданное ранее с тем же ключом идемпотентности
	Replayed bool
}

// parsed провалидированный запрос
type parsed struct {
	date      time.Time
	startTime types.TimeString
	endTime   types.TimeString
	duration  int
}
