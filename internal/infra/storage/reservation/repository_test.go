package reservation_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/migrations"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-SchedulingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
	"github.com/m04kA/SMC-SchedulingService/pkg/ptr"
	"github.com/m04kA/SMC-SchedulingService/pkg/txmanager"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

// Интеграционные тесты требуют PostgreSQL с расширением btree_gist
func openTestDB(t *testing.T) *dbmetrics.DB {
	t.Helper()
	dsn := os.Getenv("SCHEDULING_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SCHEDULING_TEST_DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migrator, err := migrations.NewMigrator(db, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up(context.Background()))

	_, err = db.Exec(`TRUNCATE reservations, services RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO services (name, duration_minutes) VALUES ('Консультация', 30), ('Процедура', 60)`)
	require.NoError(t, err)

	return dbmetrics.Wrap(db, nil)
}

// 2025-03-03 понедельник
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func newReservation(client, specialist, service int64, date time.Time, start, end string) *domain.Reservation {
	return &domain.Reservation{
		ClientID:     client,
		SpecialistID: specialist,
		ServiceID:    service,
		Date:         date,
		StartTime:    types.TimeString(start),
		EndTime:      types.TimeString(end),
		Status:       domain.StatusPending,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := reservation.NewRepository(openTestDB(t))
	ctx := context.Background()

	res := newReservation(1, 10, 1, monday, "10:00", "10:30")
	res.Notes = ptr.Ptr("заметка")
	created, err := repo.Create(ctx, res)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ClientID)
	assert.True(t, domain.IsSameDay(monday, got.Date))
	assert.Equal(t, types.TimeString("10:00"), got.StartTime)
	assert.Equal(t, types.TimeString("10:30"), got.EndTime)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, "заметка", *got.Notes)

	_, err = repo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, reservation.ErrReservationNotFound)
}

func TestRepository_EndsAtMidnight(t *testing.T) {
	repo := reservation.NewRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, newReservation(1, 10, 2, monday, "23:00", "24:00"))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, types.TimeString("24:00"), got.EndTime)
}

func TestRepository_ConstraintsMapped(t *testing.T) {
	repo := reservation.NewRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, newReservation(1, 10, 1, monday, "10:00", "10:30"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		res     *domain.Reservation
		wantErr error
	}{
		{"specialist overlap", newReservation(2, 10, 2, monday, "10:15", "11:15"), reservation.ErrSpecialistOverlap},
		{"client overlap", newReservation(1, 11, 2, monday, "10:00", "11:00"), reservation.ErrClientOverlap},
		{"weekly duplicate", newReservation(1, 11, 1, monday.AddDate(0, 0, 4), "10:00", "10:30"), reservation.ErrWeeklyDuplicate},
		{"unknown service", newReservation(3, 12, 987654, monday, "15:00", "15:30"), reservation.ErrUnknownService},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.Create(ctx, tt.res)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// примыкающий интервал и следующая неделя допустимы
	_, err = repo.Create(ctx, newReservation(2, 10, 2, monday, "10:30", "11:30"))
	assert.NoError(t, err)
	_, err = repo.Create(ctx, newReservation(1, 11, 1, monday.AddDate(0, 0, 7), "10:00", "10:30"))
	assert.NoError(t, err)
}

func TestRepository_CancelFreesInterval(t *testing.T) {
	repo := reservation.NewRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, newReservation(1, 10, 1, monday, "10:00", "10:30"))
	require.NoError(t, err)

	ok, err := repo.Cancel(ctx, created.ID, domain.StatusConfirmed, nil)
	require.NoError(t, err)
	assert.False(t, ok, "CAS must fail on a stale status")

	ok, err = repo.Cancel(ctx, created.ID, domain.StatusPending, ptr.Ptr("передумал"))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Equal(t, "передумал", *got.CancellationReason)
	assert.NotNil(t, got.CancelledAt)

	active, err := repo.FindActive(ctx, domain.ReservationFilter{SpecialistID: ptr.Ptr(int64(10)), DateFrom: &monday, DateTo: &monday})
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = repo.Create(ctx, newReservation(1, 10, 1, monday, "10:00", "10:30"))
	assert.NoError(t, err)
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := reservation.NewRepository(openTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, newReservation(1, 10, 1, monday, "10:00", "10:30"))
	require.NoError(t, err)

	ok, err := repo.UpdateStatus(ctx, created.ID, domain.StatusPending, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(ctx, created.ID, domain.StatusPending, domain.StatusConfirmed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepository_IdempotencyKey(t *testing.T) {
	repo := reservation.NewRepository(openTestDB(t))
	ctx := context.Background()

	key := uuid.New()
	res := newReservation(1, 10, 1, monday, "10:00", "10:30")
	res.IdempotencyKey = &key
	created, err := repo.Create(ctx, res)
	require.NoError(t, err)

	got, err := repo.GetByIdempotencyKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	dup := newReservation(1, 10, 2, monday.AddDate(0, 0, 1), "10:00", "11:00")
	dup.IdempotencyKey = &key
	_, err = repo.Create(ctx, dup)
	assert.ErrorIs(t, err, reservation.ErrDuplicateIdempotencyKey)

	_, err = repo.GetByIdempotencyKey(ctx, uuid.New())
	assert.ErrorIs(t, err, reservation.ErrReservationNotFound)
}

func TestRepository_LockScope(t *testing.T) {
	db := openTestDB(t)
	repo := reservation.NewRepository(db)
	txm := txmanager.NewTransactionManager(db)
	ctx := context.Background()

	assert.ErrorIs(t, repo.LockScope(ctx, "specialist:10:2025-03-03"), reservation.ErrTransaction)

	// Две транзакции с одинаковыми ключами: вторая видит запись первой
	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, client := range []int64{1, 2} {
		wg.Add(1)
		go func(i int, client int64) {
			defer wg.Done()
			errs[i] = txm.Do(ctx, func(txCtx context.Context) error {
				if err := repo.LockScope(txCtx, "specialist:10:2025-03-03"); err != nil {
					return err
				}
				specialist := int64(10)
				found, err := repo.FindActive(txCtx, domain.ReservationFilter{SpecialistID: &specialist, DateFrom: &monday, DateTo: &monday})
				if err != nil {
					return err
				}
				if len(found) > 0 {
					return domain.ErrSpecialistConflict
				}
				_, err = repo.Create(txCtx, newReservation(client, 10, 1, monday, "10:00", "10:30"))
				return err
			})
		}(i, client)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.ErrorIs(t, err, domain.ErrSpecialistConflict)
		}
	}
	assert.Equal(t, 1, failed)
}
