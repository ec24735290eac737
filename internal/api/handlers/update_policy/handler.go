package update_policy

import (
	"net/http"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/service/policy/models"
)

const (
	msgInvalidSpecialistID = "некорректный ID специалиста"
	msgInvalidRequestBody  = "некорректное тело запроса"
)

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

// Handle PUT /api/v1/specialists/{specialistId}/policy
// Body: {"sundayClosed": true|false|null, "enforceWorkingHours": true|false|null}
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	specialistID, err := handlers.PathInt64(r, "specialistId")
	if err != nil {
		h.logger.Warn("PUT /specialists/{id}/policy - Invalid specialist ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSpecialistID)
		return
	}

	var req models.UpdatePolicyRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /specialists/{id}/policy - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	// Сервис сам проверит права специалиста
	result, err := h.service.Update(r.Context(), specialistID, &req)
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("PUT /specialists/{id}/policy - Failed to update policy: specialist_id=%d, error=%v", specialistID, err)
		} else {
			h.logger.Warn("PUT /specialists/{id}/policy - Rejected: specialist_id=%d, status=%d", specialistID, status)
		}
		return
	}

	h.logger.Info("PUT /specialists/{id}/policy - Policy updated successfully: specialist_id=%d", specialistID)
	handlers.RespondJSON(w, http.StatusOK, result)
}
