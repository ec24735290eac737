package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// allowedTransitions допустимые переходы статусов.
// Completed и Cancelled терминальные.
var allowedTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ParseReservationStatus validates a raw status value
func ParseReservationStatus(s string) (ReservationStatus, bool) {
	switch status := ReservationStatus(s); status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return status, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no transition leaves this status
func (s ReservationStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// IsActive returns true for every status except cancelled
func (s ReservationStatus) IsActive() bool {
	return s != StatusCancelled
}

// Reservation represents a client's booking of a specialist for a service
type Reservation struct {
	ID           int64
	ClientID     int64
	SpecialistID int64
	ServiceID    int64
	Date         time.Time // только календарная дата
	StartTime    types.TimeString
	EndTime      types.TimeString
	Status       ReservationStatus
	Notes        *string

	IdempotencyKey *uuid.UUID

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive returns true if the reservation takes part in conflict checks
func (r *Reservation) IsActive() bool {
	return r.Status.IsActive()
}

// Overlaps reports whether [start, end) intersects the reservation's interval
func (r *Reservation) Overlaps(start, end types.TimeString) bool {
	return Overlaps(r.StartTime, r.EndTime, start, end)
}

// DurationMinutes length of the reserved interval
func (r *Reservation) DurationMinutes() int {
	return r.StartTime.MinutesUntil(r.EndTime)
}

// InvolvesUser returns true if userID is the client or the specialist
func (r *Reservation) InvolvesUser(userID int64) bool {
	return r.ClientID == userID || r.SpecialistID == userID
}

// ReservationFilter фильтр выборки бронирований
type ReservationFilter struct {
	SpecialistID     *int64
	ClientID         *int64
	ServiceID        *int64
	DateFrom         *time.Time         // включительно
	DateTo           *time.Time         // включительно
	Status           *ReservationStatus // конкретный статус (опционально)
	IncludeCancelled bool               // включать ли отменённые, если Status не указан
	ExcludeID        *int64             // не возвращать бронирование с этим ID
}

// Matches applies the filter to a reservation in memory
func (f ReservationFilter) Matches(r *Reservation) bool {
	if f.SpecialistID != nil && r.SpecialistID != *f.SpecialistID {
		return false
	}
	if f.ClientID != nil && r.ClientID != *f.ClientID {
		return false
	}
	if f.ServiceID != nil && r.ServiceID != *f.ServiceID {
		return false
	}
	if f.DateFrom != nil && DateOnly(r.Date).Before(DateOnly(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && DateOnly(r.Date).After(DateOnly(*f.DateTo)) {
		return false
	}
	if f.ExcludeID != nil && r.ID == *f.ExcludeID {
		return false
	}
	if f.Status != nil {
		return r.Status == *f.Status
	}
	return f.IncludeCancelled || r.IsActive()
}

// IsSingleDay true, если фильтр ограничен одной датой
func (f ReservationFilter) IsSingleDay() bool {
	return f.DateFrom != nil && f.DateTo != nil && IsSameDay(*f.DateFrom, *f.DateTo)
}
