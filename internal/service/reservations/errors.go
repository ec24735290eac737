package reservations

import (
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

var (
	// ErrReservationNotFound возвращается, когда бронирование не найдено
	ErrReservationNotFound = fmt.Errorf("%w: reservation", domain.ErrNotFound)

	// ErrNoPrincipal в контексте запроса нет аутентифицированного пользователя
	ErrNoPrincipal = fmt.Errorf("%w: no principal in context", domain.ErrAccessDenied)

	// ErrConcurrentChange статус бронирования изменился между чтением и обновлением
	ErrConcurrentChange = fmt.Errorf("%w: status was changed concurrently", domain.ErrInvalidTransition)
)
