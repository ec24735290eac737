package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// maxBodyBytes ограничение размера тела запроса
const maxBodyBytes = 1 << 20

// Коды ошибок в теле ответа
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodePastDate            = "PAST_DATE"
	CodeClosedDay           = "CLOSED_DAY"
	CodeOutsideWorkingHours = "OUTSIDE_WORKING_HOURS"
	CodeSpecialistConflict  = "SPECIALIST_CONFLICT"
	CodeClientConflict      = "CLIENT_CONFLICT"
	CodeWeeklyLimit         = "WEEKLY_LIMIT_EXCEEDED"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "ACCESS_DENIED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInternal            = "INTERNAL_ERROR"
)

const (
	msgInvalidRequest = "некорректный запрос"
	msgInternal       = "внутренняя ошибка сервера"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details []FieldResponse `json:"details,omitempty"`
}

// FieldResponse ошибка конкретного поля
type FieldResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DecodeJSON читает JSON-тело запроса; неизвестные поля запрещены
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// RespondJSON отправляет JSON ответ
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RespondError отправляет ошибку с кодом
func RespondError(w http.ResponseWriter, status int, code, message string) {
	RespondJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func RespondBadRequest(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadRequest, CodeValidation, message)
}

func RespondUnauthorized(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

func RespondForbidden(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusForbidden, CodeForbidden, message)
}

func RespondNotFound(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusNotFound, CodeNotFound, message)
}

func RespondInternalError(w http.ResponseWriter) {
	RespondError(w, http.StatusInternalServerError, CodeInternal, msgInternal)
}

// RespondValidation 400 с перечнем ошибок полей
func RespondValidation(w http.ResponseWriter, verr *domain.ValidationError) {
	details := make([]FieldResponse, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		details = append(details, FieldResponse{Field: f.Field, Message: f.Message})
	}
	RespondJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    CodeValidation,
		Message: msgInvalidRequest,
		Details: details,
	})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// порядок важен: первое совпадение по errors.Is
var errorMappings = []errorMapping{
	{domain.ErrPastDate, http.StatusUnprocessableEntity, CodePastDate, "дата бронирования в прошлом"},
	{domain.ErrClosedDay, http.StatusUnprocessableEntity, CodeClosedDay, "специалист не принимает в этот день"},
	{domain.ErrOutsideWorkingHours, http.StatusUnprocessableEntity, CodeOutsideWorkingHours, "время вне рабочих часов специалиста"},
	{domain.ErrSpecialistConflict, http.StatusConflict, CodeSpecialistConflict, "специалист занят в выбранное время"},
	{domain.ErrClientConflict, http.StatusConflict, CodeClientConflict, "у клиента уже есть запись в это время"},
	{domain.ErrWeeklyLimitExceeded, http.StatusConflict, CodeWeeklyLimit, "клиент уже записан на эту услугу на этой неделе"},
	{domain.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition, "недопустимая смена статуса"},
	{domain.ErrIdempotencyConflict, http.StatusConflict, CodeIdempotencyConflict, "ключ идемпотентности уже использован с другим запросом"},
	{domain.ErrNotFound, http.StatusNotFound, CodeNotFound, "не найдено"},
	{domain.ErrAccessDenied, http.StatusForbidden, CodeForbidden, "доступ запрещен"},
}

// RespondDomainError переводит ошибку домена в HTTP ответ и возвращает статус.
// Неизвестные ошибки и ErrPersistence отдаются как 500 без подробностей.
func RespondDomainError(w http.ResponseWriter, err error) int {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		RespondValidation(w, verr)
		return http.StatusBadRequest
	}
	if errors.Is(err, domain.ErrValidation) {
		RespondBadRequest(w, msgInvalidRequest)
		return http.StatusBadRequest
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			RespondError(w, m.status, m.code, m.message)
			return m.status
		}
	}

	RespondInternalError(w)
	return http.StatusInternalServerError
}

// PathInt64 положительный целый параметр пути
func PathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("path parameter %s must be a positive integer", name)
	}
	return id, nil
}
