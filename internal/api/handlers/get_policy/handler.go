package get_policy

import (
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
)

const msgInvalidSpecialistID = "некорректный ID специалиста"

type Handler struct {
	service PolicyService
	logger  Logger
}

func NewHandler(service PolicyService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/specialists/{specialistId}/policy
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	specialistID, err := handlers.PathInt64(r, "specialistId")
	if err != nil {
		h.logger.Warn("GET /specialists/{id}/policy - Invalid specialist ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSpecialistID)
		return
	}

	result, err := h.service.Get(r.Context(), specialistID)
	if err != nil {
		h.logger.Error("GET /specialists/{id}/policy - Failed to get policy: specialist_id=%d, error=%v", specialistID, err)
		handlers.RespondDomainError(w, err)
		return
	}

	h.logger.Info("GET /specialists/{id}/policy - Policy retrieved successfully: specialist_id=%d", specialistID)
	handlers.RespondJSON(w, http.StatusOK, result)
}
