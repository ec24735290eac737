package policy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

const tableSpecialistPolicies = "specialist_policies"

// Repository репозиторий переопределений политики расписания специалистов
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория политик
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Get получает переопределение политики специалиста.
// Возвращает ErrPolicyNotFound, если специалист использует глобальные настройки.
func (r *Repository) Get(ctx context.Context, specialistID int64) (*domain.SpecialistPolicy, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"specialist_id",
		"sunday_closed",
		"enforce_working_hours",
		"updated_at",
	).
		From(tableSpecialistPolicies).
		Where(squirrel.Eq{"specialist_id": specialistID}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Get - build select query: %v", ErrBuildQuery, err)
	}

	var (
		policy              domain.SpecialistPolicy
		sundayClosed        sql.NullBool
		enforceWorkingHours sql.NullBool
		updatedAt           sql.NullTime
	)

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&policy.SpecialistID,
		&sundayClosed,
		&enforceWorkingHours,
		&updatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Get - scan policy: %v", ErrScanRow, err)
	}

	if sundayClosed.Valid {
		policy.SundayClosed = &sundayClosed.Bool
	}
	if enforceWorkingHours.Valid {
		policy.EnforceWorkingHours = &enforceWorkingHours.Bool
	}
	policy.UpdatedAt = updatedAt.Time

	return &policy, nil
}

// Upsert создает или полностью заменяет переопределение политики специалиста
func (r *Repository) Upsert(ctx context.Context, policy *domain.SpecialistPolicy) (*domain.SpecialistPolicy, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(tableSpecialistPolicies).
		Columns("specialist_id", "sunday_closed", "enforce_working_hours").
		Values(policy.SpecialistID, policy.SundayClosed, policy.EnforceWorkingHours).
		Suffix(`ON CONFLICT (specialist_id) DO UPDATE SET
			sunday_closed = EXCLUDED.sunday_closed,
			enforce_working_hours = EXCLUDED.enforce_working_hours,
			updated_at = NOW()
		RETURNING updated_at`).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Upsert - build insert query: %v", ErrBuildQuery, err)
	}

	var updatedAt sql.NullTime
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&updatedAt); err != nil {
		return nil, fmt.Errorf("%w: Upsert - execute insert: %v", ErrExecQuery, err)
	}

	policy.UpdatedAt = updatedAt.Time
	return policy, nil
}

// Delete удаляет переопределение, специалист возвращается к глобальным настройкам
func (r *Repository) Delete(ctx context.Context, specialistID int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete(tableSpecialistPolicies).
		Where(squirrel.Eq{"specialist_id": specialistID}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Delete - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: Delete - execute delete: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: Delete - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrPolicyNotFound
	}

	return nil
}
