package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/reservation"
)

// Reservations in-memory реализация хранилища бронирований
type Reservations struct {
	s *Store
}

// Create сохраняет бронирование, проверяя пересечения и недельный лимит атомарно
func (r *Reservations) Create(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	weekStart := domain.ISOWeekStart(res.Date)
	for _, existing := range r.s.reservations {
		if res.IdempotencyKey != nil && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *res.IdempotencyKey {
			return nil, reservation.ErrDuplicateIdempotencyKey
		}
		if !existing.IsActive() {
			continue
		}
		sameDay := domain.IsSameDay(existing.Date, res.Date)
		if sameDay && existing.SpecialistID == res.SpecialistID && existing.Overlaps(res.StartTime, res.EndTime) {
			return nil, reservation.ErrSpecialistOverlap
		}
		if sameDay && existing.ClientID == res.ClientID && existing.Overlaps(res.StartTime, res.EndTime) {
			return nil, reservation.ErrClientOverlap
		}
		if existing.ClientID == res.ClientID && existing.ServiceID == res.ServiceID &&
			domain.ISOWeekStart(existing.Date).Equal(weekStart) {
			return nil, reservation.ErrWeeklyDuplicate
		}
	}

	r.s.nextReservationID++
	now := r.s.now()

	stored := cloneReservation(res)
	stored.ID = r.s.nextReservationID
	stored.Date = domain.DateOnly(res.Date)
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.s.reservations[stored.ID] = stored

	return cloneReservation(stored), nil
}

func (r *Reservations) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res, ok := r.s.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return cloneReservation(res), nil
}

func (r *Reservations) GetByIdempotencyKey(_ context.Context, key uuid.UUID) (*domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, res := range r.s.reservations {
		if res.IdempotencyKey != nil && *res.IdempotencyKey == key {
			return cloneReservation(res), nil
		}
	}
	return nil, reservation.ErrReservationNotFound
}

// Find порядок совпадает с Postgres-реализацией
func (r *Reservations) Find(_ context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.Reservation, 0)
	for _, res := range r.s.reservations {
		if filter.Matches(res) {
			result = append(result, cloneReservation(res))
		}
	}

	singleDay := filter.IsSingleDay()
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if singleDay {
			return a.StartTime.IsBefore(b.StartTime)
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.StartTime.IsAfter(b.StartTime)
	})

	return result, nil
}

func (r *Reservations) FindActive(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	filter.Status = nil
	filter.IncludeCancelled = false
	return r.Find(ctx, filter)
}

// UpdateStatus compare-and-set по текущему статусу
func (r *Reservations) UpdateStatus(_ context.Context, id int64, from, to domain.ReservationStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[id]
	if !ok || res.Status != from {
		return false, nil
	}
	res.Status = to
	res.UpdatedAt = r.s.now()
	return true, nil
}

func (r *Reservations) Cancel(_ context.Context, id int64, from domain.ReservationStatus, reason *string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[id]
	if !ok || res.Status != from {
		return false, nil
	}

	now := r.s.now()
	res.Status = domain.StatusCancelled
	if reason != nil {
		value := *reason
		res.CancellationReason = &value
	}
	res.CancelledAt = &now
	res.UpdatedAt = now
	return true, nil
}

// LockScope в памяти сериализацию обеспечивает locker.Locker
func (r *Reservations) LockScope(context.Context, ...string) error {
	return nil
}
