package domain

// Service is a catalog entry; its duration drives slot sizing
type Service struct {
	ID              int64
	Name            string
	DurationMinutes int
	Price           float64
	Description     *string
}

// IsValidDuration duration within [MinServiceDurationMinutes, MaxServiceDurationMinutes]
func IsValidDuration(minutes int) bool {
	return minutes >= MinServiceDurationMinutes && minutes <= MaxServiceDurationMinutes
}
