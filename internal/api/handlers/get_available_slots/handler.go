package get_available_slots

import (
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
)

type Handler struct {
	useCase AvailabilityQuery
	logger  Logger
}

func NewHandler(useCase AvailabilityQuery, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/availability
// Query params: specialistId, serviceId, date (YYYY-MM-DD) обязательны; page, pageSize опционально
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	useCaseReq, err := ToUseCaseRequest(r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /availability - Invalid parameters: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("GET /availability - Failed to get slots: specialist_id=%d, service_id=%d, error=%v",
				useCaseReq.SpecialistID, useCaseReq.ServiceID, err)
		} else {
			h.logger.Warn("GET /availability - Rejected: specialist_id=%d, service_id=%d, status=%d, error=%v",
				useCaseReq.SpecialistID, useCaseReq.ServiceID, status, err)
		}
		return
	}

	h.logger.Info("GET /availability - Slots retrieved successfully: specialist_id=%d, service_id=%d, slots_count=%d",
		useCaseReq.SpecialistID, useCaseReq.ServiceID, len(result.Slots))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
