package get_available_slots

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	catalogRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/catalog"
)

// UseCase use case для получения доступных слотов для бронирования
type UseCase struct {
	calculator  *Calculator
	catalog     ServiceCatalog
	specialists SpecialistChecker
	logger      Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	calculator *Calculator,
	catalog ServiceCatalog,
	specialists SpecialistChecker,
	logger Logger,
) *UseCase {
	return &UseCase{
		calculator:  calculator,
		catalog:     catalog,
		specialists: specialists,
		logger:      logger,
	}
}

// Execute выполняет use case получения доступных слотов
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("GetAvailableSlots: specialist=%d, service=%d, date=%s, page=%d",
		req.SpecialistID, req.ServiceID, req.Date.Format(domain.DateFormat), req.Page)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Длительность услуги
	duration, err := uc.catalog.GetDuration(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			uc.logger.Warn("GetAvailableSlots: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("GetAvailableSlots: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}

	// 3. Специалист
	if err := uc.specialists.EnsureSpecialist(ctx, req.SpecialistID); err != nil {
		uc.logger.Warn("GetAvailableSlots: specialist id=%d: %v", req.SpecialistID, err)
		return nil, err
	}

	// 4. Свободные слоты
	slots, err := uc.calculator.ComputeAvailability(ctx, req.SpecialistID, duration, req.Date)
	if err != nil {
		return nil, err
	}

	starts, page := slots.Page(req.Page, req.PageSize)

	result := make([]domain.AvailableSlot, 0, len(starts))
	for _, start := range starts {
		end, err := start.AddMinutes(duration)
		if err != nil {
			return nil, fmt.Errorf("%w: slot end: %v", ErrInternal, err)
		}
		result = append(result, domain.AvailableSlot{
			StartTime:       start,
			EndTime:         end,
			DurationMinutes: duration,
		})
	}

	uc.logger.Info("GetAvailableSlots: returned %d slots for specialist=%d, date=%s, hasMore=%t",
		len(result), req.SpecialistID, req.Date.Format(domain.DateFormat), page.HasMore)

	return &Response{
		Date:            req.Date,
		SpecialistID:    req.SpecialistID,
		ServiceID:       req.ServiceID,
		DurationMinutes: duration,
		Slots:           result,
		Page:            page,
	}, nil
}
