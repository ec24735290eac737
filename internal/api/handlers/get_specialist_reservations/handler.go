package get_specialist_reservations

import (
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
)

const msgInvalidSpecialistID = "некорректный ID специалиста"

type Handler struct {
	service ReservationService
	logger  Logger
}

func NewHandler(service ReservationService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/specialists/{specialistId}/reservations
// Query params: date, includeCancelled (опционально)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	specialistID, err := handlers.PathInt64(r, "specialistId")
	if err != nil {
		h.logger.Warn("GET /specialists/{id}/reservations - Invalid specialist ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSpecialistID)
		return
	}

	req, err := ToServiceRequest(specialistID, r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /specialists/{id}/reservations - Invalid parameters: %v", err)
		handlers.RespondDomainError(w, err)
		return
	}

	// Сервис сам проверит права специалиста
	result, err := h.service.ListBySpecialist(r.Context(), req)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("GET /specialists/{id}/reservations - Failed to get reservations: specialist_id=%d, error=%v", specialistID, err)
		} else {
			h.logger.Warn("GET /specialists/{id}/reservations - Rejected: specialist_id=%d, status=%d", specialistID, status)
		}
		return
	}

	h.logger.Info("GET /specialists/{id}/reservations - Reservations retrieved successfully: specialist_id=%d, count=%d",
		specialistID, len(result.Reservations))
	handlers.RespondJSON(w, http.StatusOK, result)
}
