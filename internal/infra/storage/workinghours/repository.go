package workinghours

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

const (
	tableWorkingIntervals = "working_intervals"

	constraintNoOverlap = "working_intervals_no_overlap"
)

// Repository рабочие интервалы специалистов
type Repository struct {
	db dbmetrics.DBExecutor
}

func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetIntervals возвращает интервалы специалиста на день недели, упорядоченные по началу
func (r *Repository) GetIntervals(ctx context.Context, specialistID int64, dayOfWeek time.Weekday) ([]domain.WorkingInterval, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "specialist_id", "day_of_week", "start_time", "end_time").
		From(tableWorkingIntervals).
		Where(squirrel.Eq{"specialist_id": specialistID, "day_of_week": int(dayOfWeek)}).
		OrderBy("start_time ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetIntervals - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetIntervals - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	intervals := make([]domain.WorkingInterval, 0)
	for rows.Next() {
		var (
			interval domain.WorkingInterval
			day      int
		)
		if err := rows.Scan(&interval.ID, &interval.SpecialistID, &day, &interval.StartTime, &interval.EndTime); err != nil {
			return nil, fmt.Errorf("%w: GetIntervals - scan row: %v", ErrScanRow, err)
		}
		interval.DayOfWeek = time.Weekday(day)
		intervals = append(intervals, interval)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetIntervals - rows error: %v", ErrScanRow, err)
	}

	return intervals, nil
}

// Create добавляет рабочий интервал
func (r *Repository) Create(ctx context.Context, interval *domain.WorkingInterval) (*domain.WorkingInterval, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(tableWorkingIntervals).
		Columns("specialist_id", "day_of_week", "start_time", "end_time").
		Values(interval.SpecialistID, int(interval.DayOfWeek), interval.StartTime, interval.EndTime).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&interval.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Constraint == constraintNoOverlap {
			return nil, fmt.Errorf("%w: Create: %v", ErrIntervalOverlap, err)
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return interval, nil
}
