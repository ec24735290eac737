package create_booking

import (
	"github.com/m04kA/SMC-SchedulingService/internal/service/reservations/models"
	createBooking "github.com/m04kA/SMC-SchedulingService/internal/usecase/create_booking"
)

// CreateReservationRequest HTTP request model
type CreateReservationRequest struct {
	ClientID        int64   `json:"clientId"`
	SpecialistID    int64   `json:"specialistId"`
	ServiceID       int64   `json:"serviceId"`
	Date            string  `json:"date"`      // "2025-10-15"
	StartTime       string  `json:"startTime"` // "10:00"
	Notes           *string `json:"notes,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case.
// Формат даты и времени проверяет use case.
func (r *CreateReservationRequest) ToUseCaseRequest(idempotencyKey string) *createBooking.Request {
	return &createBooking.Request{
		ClientID:         r.ClientID,
		SpecialistID:     r.SpecialistID,
		ServiceID:        r.ServiceID,
		Date:             r.Date,
		StartTime:        r.StartTime,
		Notes:            r.Notes,
		DurationOverride: r.DurationMinutes,
		IdempotencyKey:   idempotencyKey,
	}
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createBooking.Response) *models.ReservationResponse {
	return models.FromDomainReservation(resp.Reservation)
}
