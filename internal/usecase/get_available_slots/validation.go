package get_available_slots

import (
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	verr := &domain.ValidationError{}

	if req.SpecialistID <= 0 {
		verr.Add("specialist", "must be a positive integer")
	}
	if req.ServiceID <= 0 {
		verr.Add("service", "must be a positive integer")
	}
	if req.Date.IsZero() {
		verr.Add("date", "is required")
	}
	if req.Page < 0 {
		verr.Add("page", "must not be negative")
	}
	if req.PageSize < 0 || req.PageSize > domain.MaxPageSize {
		verr.Add("pageSize", fmt.Sprintf("must be between 1 and %d", domain.MaxPageSize))
	}

	return verr.Err()
}

func validateDuration(durationMinutes int) error {
	if !domain.IsValidDuration(durationMinutes) {
		return domain.NewValidationError("durationMinutes",
			fmt.Sprintf("must be between %d and %d", domain.MinServiceDurationMinutes, domain.MaxServiceDurationMinutes))
	}
	return nil
}
