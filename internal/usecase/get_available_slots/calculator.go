package get_available_slots

import (
	"context"
	"fmt"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// Calculator вычисляет свободные времена начала специалиста на дату
type Calculator struct {
	workingHours WorkingHoursStore
	reservations ReservationReader
	policies     PolicyProvider
	timeProvider TimeProvider
	logger       Logger
}

// NewCalculator создает калькулятор доступности
func NewCalculator(
	workingHours WorkingHoursStore,
	reservations ReservationReader,
	policies PolicyProvider,
	logger Logger,
) *Calculator {
	return &Calculator{
		workingHours: workingHours,
		reservations: reservations,
		policies:     policies,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// WithTimeProvider подменяет источник текущего времени
func (c *Calculator) WithTimeProvider(tp TimeProvider) *Calculator {
	c.timeProvider = tp
	return c
}

// ComputeAvailability рабочие интервалы дня недели минус активные бронирования,
// нарезанные шагом durationMinutes. Для сегодняшней даты остаются только старты строго после текущего времени.
func (c *Calculator) ComputeAvailability(ctx context.Context, specialistID int64, durationMinutes int, date time.Time) (*Slots, error) {
	if err := validateDuration(durationMinutes); err != nil {
		return nil, err
	}

	now := c.timeProvider.Now()
	if domain.IsDateInPast(date, now) {
		return emptySlots(), nil
	}

	policy, err := c.policies.Effective(ctx, specialistID)
	if err != nil {
		return nil, err
	}
	if policy.IsClosed(date) {
		c.logger.Info("ComputeAvailability: specialist=%d closed on %s by policy", specialistID, date.Format(domain.DateFormat))
		return emptySlots(), nil
	}

	workingIntervals, err := c.workingHours.GetIntervals(ctx, specialistID, date.Weekday())
	if err != nil {
		c.logger.Error("ComputeAvailability: failed to get working intervals for specialist=%d: %v", specialistID, err)
		return nil, fmt.Errorf("%w: failed to get working intervals: %v", ErrInternal, err)
	}
	if len(workingIntervals) == 0 {
		return emptySlots(), nil
	}

	reservations, err := c.reservations.FindActive(ctx, domain.ReservationFilter{
		SpecialistID: &specialistID,
		DateFrom:     &date,
		DateTo:       &date,
	})
	if err != nil {
		c.logger.Error("ComputeAvailability: failed to get reservations for specialist=%d: %v", specialistID, err)
		return nil, fmt.Errorf("%w: failed to get reservations: %v", ErrInternal, err)
	}

	working := make([]interval, 0, len(workingIntervals))
	for _, wi := range workingIntervals {
		iv, err := toInterval(wi.StartTime, wi.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: working interval id=%d: %v", ErrInternal, wi.ID, err)
		}
		working = append(working, iv)
	}

	occupied := make([]interval, 0, len(reservations))
	for _, r := range reservations {
		iv, err := toInterval(r.StartTime, r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: reservation id=%d: %v", ErrInternal, r.ID, err)
		}
		occupied = append(occupied, iv)
	}

	slots := &Slots{
		free:     subtractOccupied(working, occupied),
		duration: durationMinutes * 60,
		notAfter: -1,
	}

	if domain.IsSameDay(date, now) {
		nowSeconds, err := types.NewTimeString(now).Seconds()
		if err != nil {
			return nil, fmt.Errorf("%w: current time: %v", ErrInternal, err)
		}
		slots.notAfter = nowSeconds
	}

	return slots, nil
}
