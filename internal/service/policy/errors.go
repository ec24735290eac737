package policy

import (
	"fmt"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// ErrNoPrincipal в контексте запроса нет аутентифицированного пользователя
var ErrNoPrincipal = fmt.Errorf("%w: no principal in context", domain.ErrAccessDenied)
