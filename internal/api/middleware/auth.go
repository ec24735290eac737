package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/m04kA/SMC-SchedulingService/internal/api/handlers"
	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

const (
	msgMissingUserID = "отсутствует ID пользователя"
	msgInvalidUserID = "некорректный ID пользователя"
)

// Auth извлекает пользователя из заголовков X-User-ID и X-User-Role.
// Роли перечисляются через запятую, без заголовка пользователь считается клиентом.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderUserID)
		if raw == "" {
			handlers.RespondUnauthorized(w, msgMissingUserID)
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			handlers.RespondUnauthorized(w, msgInvalidUserID)
			return
		}

		roles := domain.ParseRoleSet(r.Header.Get(HeaderUserRole))
		if roles == 0 {
			roles = domain.NewRoleSet(domain.RoleClient)
		}

		ctx := domain.WithPrincipal(r.Context(), domain.Principal{UserID: userID, Roles: roles})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID ID пользователя текущего запроса
func GetUserID(ctx context.Context) (int64, bool) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return 0, false
	}
	return p.UserID, true
}
