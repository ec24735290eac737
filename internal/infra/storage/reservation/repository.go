package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

const (
	tableReservations = "reservations"

	constraintSpecialistOverlap = "reservations_specialist_no_overlap"
	constraintClientOverlap     = "reservations_client_no_overlap"
	constraintWeeklyUnique      = "reservations_client_service_week_uniq"
	constraintIdempotencyKey    = "reservations_idempotency_key_key"
	constraintServiceFK         = "reservations_service_id_fkey"

	sqlStateExclusionViolation  = "23P01"
	sqlStateUniqueViolation     = "23505"
	sqlStateForeignKeyViolation = "23503"
)

var reservationColumns = []string{
	"id",
	"client_id",
	"specialist_id",
	"service_id",
	"reservation_date",
	"start_time",
	"end_time",
	"status",
	"notes",
	"idempotency_key",
	"cancellation_reason",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий бронирований в PostgreSQL
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create сохраняет новое бронирование.
// Если в контексте передана активная транзакция, использует её.
// Нарушения ограничений исключения и уникальности возвращаются типизированными ошибками,
// поэтому инварианты сохраняются даже при обходе блокировок.
func (r *Repository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	var idempotencyKey uuid.NullUUID
	if res.IdempotencyKey != nil {
		idempotencyKey = uuid.NullUUID{UUID: *res.IdempotencyKey, Valid: true}
	}

	query, args, err := psqlbuilder.Insert(tableReservations).
		Columns(
			"client_id",
			"specialist_id",
			"service_id",
			"reservation_date",
			"start_time",
			"end_time",
			"status",
			"notes",
			"idempotency_key",
		).
		Values(
			res.ClientID,
			res.SpecialistID,
			res.ServiceID,
			res.Date.Format(domain.DateFormat),
			res.StartTime,
			res.EndTime,
			string(res.Status),
			res.Notes,
			idempotencyKey,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&res.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		if mapped := mapConstraintError(err); mapped != nil {
			return nil, fmt.Errorf("%w: Create: %v", mapped, err)
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	res.CreatedAt = createdAt.Time
	res.UpdatedAt = updatedAt.Time

	return res, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id})
}

// GetByIdempotencyKey получает бронирование, созданное с данным ключом
func (r *Repository) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*domain.Reservation, error) {
	return r.getOne(ctx, "GetByIdempotencyKey", squirrel.Eq{"idempotency_key": key})
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Sqlizer) (*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(reservationColumns...).
		From(tableReservations).
		Where(where).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	res, err := scanReservation(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan reservation: %v", ErrScanRow, op, err)
	}

	return res, nil
}

// FindActive возвращает только активные (не отменённые) бронирования по фильтру
func (r *Repository) FindActive(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	filter.Status = nil
	filter.IncludeCancelled = false
	return r.Find(ctx, filter)
}

// Find получает бронирования с гибкой фильтрацией.
//
// Примеры использования:
//
// 1. Активные бронирования специалиста на дату:
//    filter := domain.ReservationFilter{SpecialistID: &id, DateFrom: &date, DateTo: &date}
//
// 2. Все бронирования клиента, включая отменённые:
//    filter := domain.ReservationFilter{ClientID: &id, IncludeCancelled: true}
//
// 3. Активные бронирования клиента на услугу в пределах ISO-недели:
//    filter := domain.ReservationFilter{ClientID: &id, ServiceID: &sid, DateFrom: &monday, DateTo: &sunday}
func (r *Repository) Find(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(reservationColumns...).From(tableReservations)

	if filter.SpecialistID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"specialist_id": *filter.SpecialistID})
	}
	if filter.ClientID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.ServiceID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"service_id": *filter.ServiceID})
	}
	if filter.DateFrom != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"reservation_date": filter.DateFrom.Format(domain.DateFormat)})
	}
	if filter.DateTo != nil {
		selectBuilder = selectBuilder.Where(squirrel.LtOrEq{"reservation_date": filter.DateTo.Format(domain.DateFormat)})
	}
	if filter.ExcludeID != nil {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"id": *filter.ExcludeID})
	}

	// Фильтрация по статусу
	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": string(*filter.Status)})
	} else if !filter.IncludeCancelled {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": string(domain.StatusCancelled)})
	}

	// Для конкретной даты сортируем по времени начала, для периода - сначала новые
	if filter.IsSingleDay() {
		selectBuilder = selectBuilder.OrderBy("start_time ASC")
	} else {
		selectBuilder = selectBuilder.OrderBy("reservation_date DESC", "start_time DESC")
	}

	// Внутри транзакции блокируем прочитанные строки до её завершения
	if dbmetrics.IsInTransaction(ctx) && filter.IsSingleDay() {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Find - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: Find - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanReservations(rows)
}

// UpdateStatus переводит бронирование из статуса from в to (compare-and-set).
// Возвращает false, если бронирование не найдено или его статус уже изменён.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.ReservationStatus) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableReservations).
		Set("status", string(to)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": string(from)}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	return r.execCAS(ctx, executor, "UpdateStatus", query, args)
}

// Cancel отменяет бронирование с указанием причины (compare-and-set по статусу from)
func (r *Repository) Cancel(ctx context.Context, id int64, from domain.ReservationStatus, reason *string) (bool, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableReservations).
		Set("status", string(domain.StatusCancelled)).
		Set("cancellation_reason", reason).
		Set("cancelled_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": string(from)}).
		ToSql()

	if err != nil {
		return false, fmt.Errorf("%w: Cancel - build update query: %v", ErrBuildQuery, err)
	}

	return r.execCAS(ctx, executor, "Cancel", query, args)
}

func (r *Repository) execCAS(ctx context.Context, executor DBExecutor, op, query string, args []interface{}) (bool, error) {
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	return rowsAffected == 1, nil
}

// LockScope захватывает транзакционные advisory-блокировки по ключам.
// Блокировки освобождаются при завершении транзакции.
func (r *Repository) LockScope(ctx context.Context, keys ...string) error {
	tx, ok := dbmetrics.TxFromContext(ctx)
	if !ok {
		return ErrTransaction
	}

	sorted := slices.Clone(keys)
	slices.Sort(sorted)

	for _, key := range slices.Compact(sorted) {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
			return fmt.Errorf("%w: LockScope - key=%s: %v", ErrExecQuery, key, err)
		}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var (
		res                  domain.Reservation
		status               string
		notes, reason        sql.NullString
		idempotencyKey       uuid.NullUUID
		cancelledAt          sql.NullTime
		createdAt, updatedAt sql.NullTime
	)

	err := row.Scan(
		&res.ID,
		&res.ClientID,
		&res.SpecialistID,
		&res.ServiceID,
		&res.Date,
		&res.StartTime,
		&res.EndTime,
		&status,
		&notes,
		&idempotencyKey,
		&reason,
		&cancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	res.Status = domain.ReservationStatus(status)
	if notes.Valid {
		res.Notes = &notes.String
	}
	if idempotencyKey.Valid {
		res.IdempotencyKey = &idempotencyKey.UUID
	}
	if reason.Valid {
		res.CancellationReason = &reason.String
	}
	if cancelledAt.Valid {
		res.CancelledAt = &cancelledAt.Time
	}
	res.CreatedAt = createdAt.Time
	res.UpdatedAt = updatedAt.Time

	return &res, nil
}

// scanReservations сканирует результаты запроса в слайс бронирований
func scanReservations(rows *sql.Rows) ([]*domain.Reservation, error) {
	reservations := make([]*domain.Reservation, 0)

	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanReservations - scan row: %v", ErrScanRow, err)
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanReservations - rows error: %v", ErrScanRow, err)
	}

	return reservations, nil
}

// mapConstraintError переводит нарушения ограничений схемы в ошибки репозитория
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case sqlStateExclusionViolation:
		switch pqErr.Constraint {
		case constraintSpecialistOverlap:
			return ErrSpecialistOverlap
		case constraintClientOverlap:
			return ErrClientOverlap
		}
	case sqlStateUniqueViolation:
		switch pqErr.Constraint {
		case constraintWeeklyUnique:
			return ErrWeeklyDuplicate
		case constraintIdempotencyKey:
			return ErrDuplicateIdempotencyKey
		}
	case sqlStateForeignKeyViolation:
		if pqErr.Constraint == constraintServiceFK {
			return ErrUnknownService
		}
	}

	return nil
}
