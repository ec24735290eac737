package userservice

import (
	"strings"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// UserResponse модель пользователя из UserService
type UserResponse struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// ToDomain неизвестные роли пропускаются
func (u UserResponse) ToDomain() *domain.User {
	return &domain.User{
		ID:    u.ID,
		Name:  u.Name,
		Roles: domain.ParseRoleSet(strings.Join(u.Roles, ",")),
	}
}

// ErrorResponse модель ошибки от UserService
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
