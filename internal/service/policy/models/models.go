package models

import (
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// UpdatePolicyRequest переопределения политики специалиста.
// Поле со значением null возвращает глобальную настройку.
type UpdatePolicyRequest struct {
	SundayClosed        *bool `json:"sundayClosed"`
	EnforceWorkingHours *bool `json:"enforceWorkingHours"`
}

// PolicyResponse действующая политика и её переопределения
type PolicyResponse struct {
	SpecialistID int64 `json:"specialistId"`

	SundayClosed        bool `json:"sundayClosed"`
	EnforceWorkingHours bool `json:"enforceWorkingHours"`

	Overrides PolicyOverrides `json:"overrides"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// PolicyOverrides значения, заданные для специалиста явно
type PolicyOverrides struct {
	SundayClosed        *bool `json:"sundayClosed"`
	EnforceWorkingHours *bool `json:"enforceWorkingHours"`
}

// FromDomainPolicy собирает ответ из глобальных настроек и переопределения (может быть nil)
func FromDomainPolicy(specialistID int64, defaults domain.SchedulingPolicy, override *domain.SpecialistPolicy) *PolicyResponse {
	effective := override.Apply(defaults)

	resp := &PolicyResponse{
		SpecialistID:        specialistID,
		SundayClosed:        effective.SundayClosed,
		EnforceWorkingHours: effective.EnforceWorkingHours,
	}

	if override != nil {
		resp.Overrides = PolicyOverrides{
			SundayClosed:        override.SundayClosed,
			EnforceWorkingHours: override.EnforceWorkingHours,
		}
		if !override.UpdatedAt.IsZero() {
			updatedAt := override.UpdatedAt
			resp.UpdatedAt = &updatedAt
		}
	}

	return resp
}
