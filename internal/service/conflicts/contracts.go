package conflicts

import (
	"context"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// ReservationReader источник активных бронирований
type ReservationReader interface {
	FindActive(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error)
}
