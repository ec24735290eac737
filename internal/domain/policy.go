package domain

import "time"

// SchedulingPolicy effective scheduling rules for a specialist
type SchedulingPolicy struct {
	// SundayClosed запрещает бронирование и скрывает слоты по воскресеньям
	SundayClosed bool
	// EnforceWorkingHours требует, чтобы бронирование лежало внутри рабочего интервала
	EnforceWorkingHours bool
}

// IsClosed reports whether the policy closes the given date
func (p SchedulingPolicy) IsClosed(date time.Time) bool {
	return p.SundayClosed && date.Weekday() == time.Sunday
}

// SpecialistPolicy per-specialist override; nil fields fall back to the global default
type SpecialistPolicy struct {
	SpecialistID        int64
	SundayClosed        *bool
	EnforceWorkingHours *bool
	UpdatedAt           time.Time
}

// Apply overlays the override on top of the defaults
func (p *SpecialistPolicy) Apply(defaults SchedulingPolicy) SchedulingPolicy {
	if p == nil {
		return defaults
	}
	effective := defaults
	if p.SundayClosed != nil {
		effective.SundayClosed = *p.SundayClosed
	}
	if p.EnforceWorkingHours != nil {
		effective.EnforceWorkingHours = *p.EnforceWorkingHours
	}
	return effective
}

// IsEmpty true, если переопределений нет
func (p *SpecialistPolicy) IsEmpty() bool {
	return p == nil || (p.SundayClosed == nil && p.EnforceWorkingHours == nil)
}
