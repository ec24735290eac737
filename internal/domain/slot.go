package domain

import "github.com/m04kA/SMC-SchedulingService/pkg/types"

// AvailableSlot represents a start time available for booking
type AvailableSlot struct {
	StartTime       types.TimeString
	EndTime         types.TimeString
	DurationMinutes int
}

// PageInfo describes one page of a lazily produced sequence
type PageInfo struct {
	Page     int
	PageSize int
	HasMore  bool
}

// NormalizePage clamps page/pageSize to sane values (page is 1-based)
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
