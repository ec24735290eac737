package get_specialist_reservations

import (
	"net/url"
	"strconv"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/service/reservations/models"
)

// ToServiceRequest разбирает query параметры date и includeCancelled
func ToServiceRequest(specialistID int64, query url.Values) (*models.ListSpecialistReservationsRequest, error) {
	verr := &domain.ValidationError{}
	req := &models.ListSpecialistReservationsRequest{SpecialistID: specialistID}

	if raw := query.Get("date"); raw != "" {
		date, err := time.ParseInLocation(domain.DateFormat, raw, time.Local)
		if err != nil {
			verr.Add("date", "must be a valid calendar date in YYYY-MM-DD format")
		} else {
			req.Date = &date
		}
	}

	if raw := query.Get("includeCancelled"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			verr.Add("includeCancelled", "must be a boolean")
		} else {
			req.IncludeCancelled = include
		}
	}

	if err := verr.Err(); err != nil {
		return nil, err
	}
	return req, nil
}
