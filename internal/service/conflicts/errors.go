package conflicts

import "errors"

var (
	// ErrInvalidInterval возвращается, когда начало интервала не раньше конца
	ErrInvalidInterval = errors.New("conflicts: start must be before end")

	// ErrLookup ошибка чтения бронирований
	ErrLookup = errors.New("conflicts: failed to load reservations")
)
