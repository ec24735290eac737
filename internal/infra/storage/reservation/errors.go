package reservation

import "errors"

var (
	// ErrReservationNotFound возвращается, когда бронирование не найдено
	ErrReservationNotFound = errors.New("reservation.repository: reservation not found")

	// ErrSpecialistOverlap нарушено ограничение reservations_specialist_no_overlap
	ErrSpecialistOverlap = errors.New("reservation.repository: specialist interval overlaps an active reservation")

	// ErrClientOverlap нарушено ограничение reservations_client_no_overlap
	ErrClientOverlap = errors.New("reservation.repository: client interval overlaps an active reservation")

	// ErrWeeklyDuplicate нарушен уникальный индекс по (client, service, неделя)
	ErrWeeklyDuplicate = errors.New("reservation.repository: active reservation for service already exists this week")

	// ErrDuplicateIdempotencyKey ключ идемпотентности уже использован
	ErrDuplicateIdempotencyKey = errors.New("reservation.repository: duplicate idempotency key")

	// ErrUnknownService услуга удалена из каталога или не существовала
	ErrUnknownService = errors.New("reservation.repository: service does not exist")

	// ErrTransaction возвращается, когда операция требует активной транзакции
	ErrTransaction = errors.New("reservation.repository: transaction required")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("reservation.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("reservation.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("reservation.repository: failed to scan row")
)
