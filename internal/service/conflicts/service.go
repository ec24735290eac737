package conflicts

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// Validator проверки пересечений и недельного лимита.
// Учитываются только активные бронирования, интервалы полуоткрытые.
type Validator struct {
	reservations ReservationReader
}

func NewValidator(reservations ReservationReader) *Validator {
	return &Validator{reservations: reservations}
}

// HasSpecialistConflict есть ли у специалиста активное бронирование, пересекающее [start, end)
func (v *Validator) HasSpecialistConflict(
	ctx context.Context,
	specialistID int64,
	date time.Time,
	start, end types.TimeString,
	excludeID *int64,
) (bool, error) {
	return v.hasOverlap(ctx, domain.ReservationFilter{
		SpecialistID: &specialistID,
		DateFrom:     &date,
		DateTo:       &date,
		ExcludeID:    excludeID,
	}, start, end)
}

// HasClientConflict есть ли у клиента активное бронирование (у любого специалиста), пересекающее [start, end)
func (v *Validator) HasClientConflict(
	ctx context.Context,
	clientID int64,
	date time.Time,
	start, end types.TimeString,
	excludeID *int64,
) (bool, error) {
	return v.hasOverlap(ctx, domain.ReservationFilter{
		ClientID:  &clientID,
		DateFrom:  &date,
		DateTo:    &date,
		ExcludeID: excludeID,
	}, start, end)
}

// HasWeeklyBookingForService есть ли у клиента активное бронирование этой услуги
// в ISO-неделе (пн-вс), содержащей date. Специалист не учитывается.
func (v *Validator) HasWeeklyBookingForService(ctx context.Context, clientID, serviceID int64, date time.Time) (bool, error) {
	weekStart := domain.ISOWeekStart(date)
	weekEnd := domain.ISOWeekEnd(date)

	found, err := v.reservations.FindActive(ctx, domain.ReservationFilter{
		ClientID:  &clientID,
		ServiceID: &serviceID,
		DateFrom:  &weekStart,
		DateTo:    &weekEnd,
	})
	if err != nil {
		return false, fmt.Errorf("%w: HasWeeklyBookingForService - client=%d service=%d: %v", ErrLookup, clientID, serviceID, err)
	}

	return len(found) > 0, nil
}

func (v *Validator) hasOverlap(ctx context.Context, filter domain.ReservationFilter, start, end types.TimeString) (bool, error) {
	if !start.IsBefore(end) {
		return false, fmt.Errorf("%w: %s-%s", ErrInvalidInterval, start, end)
	}

	found, err := v.reservations.FindActive(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrLookup, err)
	}

	for _, res := range found {
		if res.Overlaps(start, end) {
			return true, nil
		}
	}
	return false, nil
}
