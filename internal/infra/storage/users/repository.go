package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/psqlbuilder"
)

// Repository локальный справочник пользователей, используется без внешнего UserService
type Repository struct {
	db dbmetrics.DBExecutor
}

func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetUser получает пользователя с ролями
func (r *Repository) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "name", "roles").
		From("users").
		Where(squirrel.Eq{"id": userID}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetUser - build select query: %v", ErrBuildQuery, err)
	}

	var (
		user  domain.User
		roles []string
	)
	err = executor.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.Name, pq.Array(&roles))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetUser - scan user: %v", ErrScanRow, err)
	}

	user.Roles = domain.ParseRoleSet(strings.Join(roles, ","))
	return &user, nil
}

// GetSpecialistProfile профиль специалиста
func (r *Repository) GetSpecialistProfile(ctx context.Context, userID int64) (*domain.SpecialistProfile, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("user_id", "specialty", "bio").
		From("specialist_profiles").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetSpecialistProfile - build select query: %v", ErrBuildQuery, err)
	}

	var (
		profile domain.SpecialistProfile
		bio     sql.NullString
	)
	err = executor.QueryRowContext(ctx, query, args...).Scan(&profile.UserID, &profile.Specialty, &bio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetSpecialistProfile - scan profile: %v", ErrScanRow, err)
	}

	if bio.Valid {
		profile.Bio = &bio.String
	}
	return &profile, nil
}
