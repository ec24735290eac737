package create_booking

import (
	"net/http"
	"strings"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

const (
	msgInvalidRequestBody    = "некорректное тело запроса"
	msgInvalidIdempotencyKey = "некорректный ключ идемпотентности"
)

type Handler struct {
	useCase ReservationScheduler
	logger  Logger
}

func NewHandler(useCase ReservationScheduler, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations
// Заголовок Idempotency-Key опционален; повтор с тем же ключом возвращает то же бронирование (200)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateReservationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /reservations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		h.logger.Warn("POST /reservations - Idempotency key too long: %d bytes", len(idempotencyKey))
		handlers.RespondBadRequest(w, msgInvalidIdempotencyKey)
		return
	}

	result, err := h.useCase.Execute(r.Context(), req.ToUseCaseRequest(idempotencyKey))
	if err != nil {
		if status := handlers.RespondDomainError(w, err); status >= http.StatusInternalServerError {
			h.logger.Error("POST /reservations - Failed to create reservation: client_id=%d, specialist_id=%d, error=%v",
				req.ClientID, req.SpecialistID, err)
		} else {
			h.logger.Warn("POST /reservations - Rejected: client_id=%d, specialist_id=%d, status=%d, error=%v",
				req.ClientID, req.SpecialistID, status, err)
		}
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}

	h.logger.Info("POST /reservations - Reservation created successfully: reservation_id=%d, client_id=%d, replayed=%t",
		result.Reservation.ID, req.ClientID, result.Replayed)
	handlers.RespondJSON(w, status, FromUseCaseResponse(result))
}
