package create_booking

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// validateRequest структурная валидация, собирает ошибки всех полей
func validateRequest(req *Request, loc *time.Location) (*parsed, error) {
	verr := &domain.ValidationError{}
	p := &parsed{}

	if req.ClientID <= 0 {
		verr.Add("clientId", "must be a positive integer")
	}
	if req.SpecialistID <= 0 {
		verr.Add("specialistId", "must be a positive integer")
	}
	if req.ServiceID <= 0 {
		verr.Add("serviceId", "must be a positive integer")
	}

	if req.Date == "" {
		verr.Add("date", "is required")
	} else if date, err := time.ParseInLocation(domain.DateFormat, req.Date, loc); err != nil {
		verr.Add("date", "must be a valid calendar date in YYYY-MM-DD format")
	} else {
		p.date = date
	}

	if req.StartTime == "" {
		verr.Add("startTime", "is required")
	} else if start, err := types.NewTimeStringFromString(req.StartTime); err != nil {
		verr.Add("startTime", "must match HH:MM or HH:MM:SS")
	} else if sec, _ := start.Seconds(); sec >= types.SecondsInDay {
		// 24:00 допустимо только как граница окончания
		verr.Add("startTime", "must be before 24:00")
	} else {
		p.startTime = start
	}

	if req.Notes != nil && utf8.RuneCountInString(*req.Notes) > domain.MaxNotesLength {
		verr.Add("notes", fmt.Sprintf("must be at most %d characters", domain.MaxNotesLength))
	}

	if req.DurationOverride != nil {
		if err := validateDuration(*req.DurationOverride); err != nil {
			verr.Add("durationMinutes", durationMessage())
		}
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func validateDuration(durationMinutes int) error {
	if !domain.IsValidDuration(durationMinutes) {
		return domain.NewValidationError("durationMinutes", durationMessage())
	}
	return nil
}

func durationMessage() string {
	return fmt.Sprintf("must be between %d and %d", domain.MinServiceDurationMinutes, domain.MaxServiceDurationMinutes)
}

// computeEnd endTime = startTime + duration, интервал не может перейти через полночь
func computeEnd(start types.TimeString, duration int) (types.TimeString, error) {
	end, err := start.AddMinutes(duration)
	if err != nil {
		return "", domain.NewValidationError("startTime", "reservation must end by 24:00")
	}
	return end, nil
}

// withinWorkingHours интервал целиком лежит в одном из рабочих интервалов
func withinWorkingHours(intervals []domain.WorkingInterval, start, end types.TimeString) bool {
	for _, wi := range intervals {
		if wi.Contains(start, end) {
			return true
		}
	}
	return false
}

// lockKeys ключи критической секции: специалист на дату, клиент на дату, клиент+услуга на неделю
func lockKeys(req *Request, date time.Time) []string {
	day := date.Format(domain.DateFormat)
	week := domain.ISOWeekStart(date).Format(domain.DateFormat)
	return []string{
		fmt.Sprintf("specialist:%d:%s", req.SpecialistID, day),
		fmt.Sprintf("client:%d:%s", req.ClientID, day),
		fmt.Sprintf("client-week:%d:%d:%s", req.ClientID, req.ServiceID, week),
	}
}

// sameBooking совпадает ли сохранённое бронирование с повторным запросом
func sameBooking(existing *domain.Reservation, req *Request, p *parsed) bool {
	return existing.ClientID == req.ClientID &&
		existing.SpecialistID == req.SpecialistID &&
		existing.ServiceID == req.ServiceID &&
		domain.IsSameDay(existing.Date, p.date) &&
		existing.StartTime.Equal(p.startTime)
}
