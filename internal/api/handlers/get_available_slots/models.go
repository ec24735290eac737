package get_available_slots

import (
	"net/url"
	"strconv"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	getAvailableSlots "github.com/m04kA/SMC-SchedulingService/internal/usecase/get_available_slots"
)

// AvailableSlotsResponse HTTP response model
type AvailableSlotsResponse struct {
	Date            string          `json:"date"`
	SpecialistID    int64           `json:"specialistId"`
	ServiceID       int64           `json:"serviceId"`
	DurationMinutes int             `json:"durationMinutes"`
	Slots           []AvailableSlot `json:"slots"`
	Page            int             `json:"page"`
	PageSize        int             `json:"pageSize"`
	HasMore         bool            `json:"hasMore"`
}

// AvailableSlot модель временного слота
type AvailableSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response) *AvailableSlotsResponse {
	slots := make([]AvailableSlot, len(resp.Slots))
	for i, slot := range resp.Slots {
		slots[i] = AvailableSlot{
			StartTime: slot.StartTime.String(),
			EndTime:   slot.EndTime.String(),
		}
	}

	return &AvailableSlotsResponse{
		Date:            resp.Date.Format(domain.DateFormat),
		SpecialistID:    resp.SpecialistID,
		ServiceID:       resp.ServiceID,
		DurationMinutes: resp.DurationMinutes,
		Slots:           slots,
		Page:            resp.Page.Page,
		PageSize:        resp.Page.PageSize,
		HasMore:         resp.Page.HasMore,
	}
}

// ToUseCaseRequest разбирает query параметры, собирая ошибки всех полей
func ToUseCaseRequest(query url.Values) (*getAvailableSlots.Request, error) {
	verr := &domain.ValidationError{}
	req := &getAvailableSlots.Request{}

	req.SpecialistID = parseID(verr, query, "specialistId")
	req.ServiceID = parseID(verr, query, "serviceId")

	if raw := query.Get("date"); raw == "" {
		verr.Add("date", "is required")
	} else if date, err := time.ParseInLocation(domain.DateFormat, raw, time.Local); err != nil {
		verr.Add("date", "must be a valid calendar date in YYYY-MM-DD format")
	} else {
		req.Date = date
	}

	req.Page = parseOptionalInt(verr, query, "page")
	req.PageSize = parseOptionalInt(verr, query, "pageSize")

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

func parseID(verr *domain.ValidationError, query url.Values, name string) int64 {
	raw := query.Get(name)
	if raw == "" {
		verr.Add(name, "is required")
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		verr.Add(name, "must be a positive integer")
		return 0
	}
	return id
}

func parseOptionalInt(verr *domain.ValidationError, query url.Values, name string) int {
	raw := query.Get(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		verr.Add(name, "must be a positive integer")
		return 0
	}
	return v
}
