package create_booking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/memory"
	reservationRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-SchedulingService/internal/service/conflicts"
	"github.com/m04kA/SMC-SchedulingService/internal/service/directory"
	"github.com/m04kA/SMC-SchedulingService/internal/service/policy"
	"github.com/m04kA/SMC-SchedulingService/pkg/locker"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
	"github.com/m04kA/SMC-SchedulingService/pkg/metrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/ptr"
	"github.com/m04kA/SMC-SchedulingService/pkg/txmanager"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

const (
	specialistID      int64 = 10
	otherSpecialistID int64 = 11
	serviceID         int64 = 100
	longServiceID     int64 = 101
	clientA           int64 = 1
	clientB           int64 = 2
	adminID           int64 = 99
)

// 2025-03-03 понедельник
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local)

const mondayStr = "2025-03-03"

type fixedTime struct {
	now time.Time
}

func (f fixedTime) Now() time.Time {
	return f.now
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (r *countingRecorder) IncBookingAttempt(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = make(map[string]int)
	}
	r.results[result]++
}

type fixture struct {
	store    *memory.Store
	useCase  *UseCase
	recorder *countingRecorder
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	defaults  domain.SchedulingPolicy
	locker    Locker
	conflicts ConflictChecker
}

func withDefaults(p domain.SchedulingPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.defaults = p }
}

func withLocker(l Locker) fixtureOption {
	return func(c *fixtureConfig) { c.locker = l }
}

func withConflicts(cc ConflictChecker) fixtureOption {
	return func(c *fixtureConfig) { c.conflicts = cc }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	log := logger.NewNop()
	store := memory.NewStore()

	cfg := &fixtureConfig{
		locker:    locker.NewMemoryLocker(),
		conflicts: conflicts.NewValidator(store.Reservations()),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	for _, id := range []int64{specialistID, otherSpecialistID} {
		store.Users().Add(domain.User{ID: id, Name: "Мастер", Roles: domain.NewRoleSet(domain.RoleSpecialist)})
		_, err := store.WorkingHours().Create(context.Background(), &domain.WorkingInterval{
			SpecialistID: id,
			DayOfWeek:    time.Monday,
			StartTime:    "09:00",
			EndTime:      "18:00",
		})
		require.NoError(t, err)
	}
	store.Users().Add(domain.User{ID: clientA, Name: "Анна", Roles: domain.NewRoleSet(domain.RoleClient)})
	store.Users().Add(domain.User{ID: clientB, Name: "Борис", Roles: domain.NewRoleSet(domain.RoleClient)})
	store.Catalog().Add(domain.Service{ID: serviceID, Name: "Консультация", DurationMinutes: 30})
	store.Catalog().Add(domain.Service{ID: longServiceID, Name: "Процедура", DurationMinutes: 60})

	recorder := &countingRecorder{}
	uc := NewUseCase(
		store.Reservations(),
		cfg.conflicts,
		store.Catalog(),
		store.WorkingHours(),
		policy.NewService(store.Policies(), cfg.defaults, log),
		directory.NewService(store.Users(), log),
		cfg.locker,
		txmanager.Noop{},
		log,
	).WithTimeProvider(fixedTime{now: monday.AddDate(0, 0, -7)}).WithAttemptRecorder(recorder)

	return &fixture{store: store, useCase: uc, recorder: recorder}
}

func asUser(userID int64, roles ...domain.Role) context.Context {
	if len(roles) == 0 {
		roles = []domain.Role{domain.RoleClient}
	}
	return domain.WithPrincipal(context.Background(), domain.Principal{UserID: userID, Roles: domain.NewRoleSet(roles...)})
}

func request(clientID, specialist, service int64, date, start string) *Request {
	return &Request{
		ClientID:     clientID,
		SpecialistID: specialist,
		ServiceID:    service,
		Date:         date,
		StartTime:    start,
	}
}

func TestExecute_CreatesPendingReservation(t *testing.T) {
	f := newFixture(t)

	req := request(clientA, specialistID, serviceID, mondayStr, "10:00")
	req.Notes = ptr.Ptr("первый визит")

	resp, err := f.useCase.Execute(asUser(clientA), req)
	require.NoError(t, err)
	require.NotNil(t, resp.Reservation)
	assert.False(t, resp.Replayed)

	res := resp.Reservation
	assert.NotZero(t, res.ID)
	assert.Equal(t, domain.StatusPending, res.Status)
	assert.Equal(t, types.TimeString("10:00"), res.StartTime)
	assert.Equal(t, types.TimeString("10:30"), res.EndTime)
	assert.True(t, domain.IsSameDay(monday, res.Date))
	assert.Equal(t, "первый визит", *res.Notes)
	assert.Equal(t, 1, f.recorder.results[metrics.BookingResultCreated])
}

func TestExecute_DurationOverride(t *testing.T) {
	f := newFixture(t)

	req := request(clientA, specialistID, serviceID, mondayStr, "10:00")
	req.DurationOverride = ptr.Ptr(90)

	resp, err := f.useCase.Execute(asUser(clientA), req)
	require.NoError(t, err)
	assert.Equal(t, types.TimeString("11:30"), resp.Reservation.EndTime)
}

func TestExecute_Validation(t *testing.T) {
	f := newFixture(t)

	t.Run("collects every field", func(t *testing.T) {
		_, err := f.useCase.Execute(asUser(clientA), &Request{
			Date:             "2025-02-30",
			StartTime:        "25:00",
			Notes:            ptr.Ptr(strings.Repeat("x", domain.MaxNotesLength+1)),
			DurationOverride: ptr.Ptr(5),
		})
		require.ErrorIs(t, err, domain.ErrValidation)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		fields := make([]string, 0, len(verr.Fields))
		for _, fe := range verr.Fields {
			fields = append(fields, fe.Field)
		}
		assert.ElementsMatch(t, []string{"clientId", "specialistId", "serviceId", "date", "startTime", "notes", "durationMinutes"}, fields)
	})

	t.Run("ends after midnight", func(t *testing.T) {
		_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, longServiceID, mondayStr, "23:30"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("ends exactly at midnight", func(t *testing.T) {
		fx := newFixture(t)
		resp, err := fx.useCase.Execute(asUser(clientA), request(clientA, specialistID, longServiceID, mondayStr, "23:00"))
		require.NoError(t, err)
		assert.Equal(t, types.TimeString("24:00"), resp.Reservation.EndTime)
	})

	t.Run("unknown service", func(t *testing.T) {
		_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, 999, mondayStr, "10:00"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown service with duration override", func(t *testing.T) {
		fx := newFixture(t)
		req := request(clientA, specialistID, 987654, mondayStr, "10:00")
		req.DurationOverride = ptr.Ptr(30)

		resp, err := fx.useCase.Execute(asUser(clientA), req)
		require.ErrorIs(t, err, domain.ErrNotFound)
		assert.Nil(t, resp)

		saved, err := fx.store.Reservations().Find(context.Background(), domain.ReservationFilter{
			ClientID:         ptr.Ptr(clientA),
			IncludeCancelled: true,
		})
		require.NoError(t, err)
		assert.Empty(t, saved)
	})

	t.Run("start at midnight boundary", func(t *testing.T) {
		_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, mondayStr, "24:00"))
		require.ErrorIs(t, err, domain.ErrValidation)

		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Fields, 1)
		assert.Equal(t, "startTime", verr.Fields[0].Field)
		assert.Equal(t, "must be before 24:00", verr.Fields[0].Message)
	})

	t.Run("unknown specialist", func(t *testing.T) {
		_, err := f.useCase.Execute(asUser(clientA), request(clientA, 999, serviceID, mondayStr, "10:00"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("client is not a specialist", func(t *testing.T) {
		_, err := f.useCase.Execute(asUser(clientA), request(clientA, clientB, serviceID, mondayStr, "10:00"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestExecute_PastDate(t *testing.T) {
	f := newFixture(t)
	f.useCase.WithTimeProvider(fixedTime{now: monday.Add(24*time.Hour + 8*time.Hour)})

	_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	assert.ErrorIs(t, err, domain.ErrPastDate)
	assert.Equal(t, 1, f.recorder.results[metrics.BookingResultRejected])

	// Сегодняшняя дата не считается прошедшей, если время начала ещё впереди
	f.useCase.WithTimeProvider(fixedTime{now: monday.Add(8 * time.Hour)})
	_, err = f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	assert.NoError(t, err)
}

func TestExecute_SameDayStartTime(t *testing.T) {
	// сейчас понедельник 15:00
	now := monday.Add(15 * time.Hour)

	tests := []struct {
		name    string
		start   string
		wantErr error
	}{
		{name: "morning already passed", start: "09:00", wantErr: domain.ErrPastDate},
		{name: "starts right now", start: "15:00", wantErr: domain.ErrPastDate},
		{name: "one second ago", start: "14:59:59", wantErr: domain.ErrPastDate},
		{name: "later today", start: "15:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.useCase.WithTimeProvider(fixedTime{now: now})

			resp, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, mondayStr, tt.start))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, resp)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, types.TimeString(tt.start), resp.Reservation.StartTime)
		})
	}

	t.Run("tomorrow morning is not affected", func(t *testing.T) {
		f := newFixture(t)
		f.useCase.WithTimeProvider(fixedTime{now: now})

		_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, "2025-03-04", "09:00"))
		assert.NoError(t, err)
	})
}

func TestExecute_Access(t *testing.T) {
	f := newFixture(t)

	_, err := f.useCase.Execute(context.Background(), request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = f.useCase.Execute(asUser(clientB), request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	resp, err := f.useCase.Execute(asUser(adminID, domain.RoleAdmin), request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	require.NoError(t, err)
	assert.Equal(t, clientA, resp.Reservation.ClientID)
}

func TestExecute_Conflicts(t *testing.T) {
	tests := []struct {
		name    string
		first   *Request
		second  *Request
		wantErr error
	}{
		{
			name:    "specialist busy",
			first:   request(clientA, specialistID, serviceID, mondayStr, "10:00"),
			second:  request(clientB, specialistID, longServiceID, mondayStr, "09:45"),
			wantErr: domain.ErrSpecialistConflict,
		},
		{
			name:    "client busy with another specialist",
			first:   request(clientA, specialistID, serviceID, mondayStr, "10:00"),
			second:  request(clientA, otherSpecialistID, longServiceID, mondayStr, "10:15"),
			wantErr: domain.ErrClientConflict,
		},
		{
			name:    "weekly limit across specialists",
			first:   request(clientA, specialistID, serviceID, mondayStr, "10:00"),
			second:  request(clientA, otherSpecialistID, serviceID, "2025-03-07", "10:00"),
			wantErr: domain.ErrWeeklyLimitExceeded,
		},
		{
			name:    "specialist conflict reported before client conflict",
			first:   request(clientA, specialistID, serviceID, mondayStr, "10:00"),
			second:  request(clientA, specialistID, longServiceID, mondayStr, "10:00"),
			wantErr: domain.ErrSpecialistConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.useCase.Execute(asUser(adminID, domain.RoleAdmin), tt.first)
			require.NoError(t, err)

			_, err = f.useCase.Execute(asUser(adminID, domain.RoleAdmin), tt.second)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExecute_AdjacentAndNextWeekAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(clientA)

	_, err := f.useCase.Execute(ctx, request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	require.NoError(t, err)

	// [10:30, 11:30) примыкает к [10:00, 10:30)
	_, err = f.useCase.Execute(ctx, request(clientA, specialistID, longServiceID, mondayStr, "10:30"))
	require.NoError(t, err)

	// та же услуга на следующей ISO-неделе
	_, err = f.useCase.Execute(ctx, request(clientA, specialistID, serviceID, "2025-03-10", "10:00"))
	require.NoError(t, err)
}

func TestExecute_CancelledReservationDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(clientA)

	resp, err := f.useCase.Execute(ctx, request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	require.NoError(t, err)

	ok, err := f.store.Reservations().Cancel(context.Background(), resp.Reservation.ID, domain.StatusPending, nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.useCase.Execute(ctx, request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	assert.NoError(t, err)
}

func TestExecute_SundayPolicy(t *testing.T) {
	sunday := "2025-03-09"

	f := newFixture(t, withDefaults(domain.SchedulingPolicy{SundayClosed: true}))
	_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, sunday, "10:00"))
	assert.ErrorIs(t, err, domain.ErrClosedDay)

	// переопределение специалиста открывает воскресенье
	_, err = f.store.Policies().Upsert(context.Background(), &domain.SpecialistPolicy{
		SpecialistID: specialistID,
		SundayClosed: ptr.Ptr(false),
	})
	require.NoError(t, err)

	_, err = f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, sunday, "10:00"))
	assert.NoError(t, err)
}

func TestExecute_EnforceWorkingHours(t *testing.T) {
	t.Run("disabled accepts any time", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, mondayStr, "20:00"))
		assert.NoError(t, err)
	})

	t.Run("enabled rejects outside intervals", func(t *testing.T) {
		f := newFixture(t, withDefaults(domain.SchedulingPolicy{EnforceWorkingHours: true}))

		_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, mondayStr, "17:45"))
		assert.ErrorIs(t, err, domain.ErrOutsideWorkingHours)

		_, err = f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, mondayStr, "17:30"))
		assert.NoError(t, err)
	})
}

func TestExecute_ConcurrentSameSlot(t *testing.T) {
	for run := 0; run < 20; run++ {
		f := newFixture(t)

		var (
			wg   sync.WaitGroup
			errs = make([]error, 2)
		)
		for i, client := range []int64{clientA, clientB} {
			wg.Add(1)
			go func(i int, client int64) {
				defer wg.Done()
				_, errs[i] = f.useCase.Execute(asUser(client), request(client, specialistID, serviceID, mondayStr, "10:00"))
			}(i, client)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrSpecialistConflict)
		}
		assert.Equal(t, 1, succeeded)

		active, err := f.store.Reservations().FindActive(context.Background(), domain.ReservationFilter{SpecialistID: ptr.Ptr(specialistID)})
		require.NoError(t, err)
		assert.Len(t, active, 1)
	}
}

func TestExecute_Idempotency(t *testing.T) {
	f := newFixture(t)
	ctx := asUser(clientA)

	req := request(clientA, specialistID, serviceID, mondayStr, "10:00")
	req.IdempotencyKey = "booking-42"

	first, err := f.useCase.Execute(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := f.useCase.Execute(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Reservation.ID, second.Reservation.ID)
	assert.Equal(t, 1, f.recorder.results[metrics.BookingResultReplayed])

	t.Run("same key different payload", func(t *testing.T) {
		other := request(clientA, specialistID, serviceID, mondayStr, "11:00")
		other.IdempotencyKey = "booking-42"
		_, err := f.useCase.Execute(ctx, other)
		assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
	})

	t.Run("keys are scoped per client", func(t *testing.T) {
		other := request(clientB, specialistID, serviceID, mondayStr, "11:00")
		other.IdempotencyKey = "booking-42"
		resp, err := f.useCase.Execute(asUser(clientB), other)
		require.NoError(t, err)
		assert.False(t, resp.Replayed)
	})
}

type timeoutLocker struct{}

func (timeoutLocker) Lock(context.Context, ...string) (func(), error) {
	return nil, locker.ErrLockTimeout
}

func TestExecute_LockTimeout(t *testing.T) {
	f := newFixture(t, withLocker(timeoutLocker{}))

	_, err := f.useCase.Execute(asUser(clientA), request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 1, f.recorder.results[metrics.BookingResultError])
}

// blindChecker пропускает все проверки, остаются только ограничения хранилища
type blindChecker struct{}

func (blindChecker) HasSpecialistConflict(context.Context, int64, time.Time, types.TimeString, types.TimeString, *int64) (bool, error) {
	return false, nil
}

func (blindChecker) HasClientConflict(context.Context, int64, time.Time, types.TimeString, types.TimeString, *int64) (bool, error) {
	return false, nil
}

func (blindChecker) HasWeeklyBookingForService(context.Context, int64, int64, time.Time) (bool, error) {
	return false, nil
}

func TestExecute_StorageConstraintsMapped(t *testing.T) {
	f := newFixture(t, withConflicts(blindChecker{}))
	admin := asUser(adminID, domain.RoleAdmin)

	_, err := f.useCase.Execute(admin, request(clientA, specialistID, serviceID, mondayStr, "10:00"))
	require.NoError(t, err)

	_, err = f.useCase.Execute(admin, request(clientB, specialistID, serviceID, mondayStr, "10:15"))
	assert.ErrorIs(t, err, domain.ErrSpecialistConflict)

	_, err = f.useCase.Execute(admin, request(clientA, otherSpecialistID, longServiceID, mondayStr, "10:00"))
	assert.ErrorIs(t, err, domain.ErrClientConflict)

	_, err = f.useCase.Execute(admin, request(clientA, otherSpecialistID, serviceID, "2025-03-05", "10:00"))
	assert.ErrorIs(t, err, domain.ErrWeeklyLimitExceeded)
}

func TestMapError_UnknownServiceIsNotFound(t *testing.T) {
	f := newFixture(t)

	// услугу удалили между проверкой каталога и вставкой
	err := f.useCase.mapError(fmt.Errorf("%w: Create: fk violation", reservationRepo.ErrUnknownService))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrPersistence)
}

func TestExecute_LockWaitBounded(t *testing.T) {
	mem := locker.NewMemoryLocker()
	f := newFixture(t, withLocker(mem))
	f.useCase.WithLockTimeout(20 * time.Millisecond)

	req := request(clientA, specialistID, serviceID, mondayStr, "10:00")
	unlock, err := mem.Lock(context.Background(), lockKeys(req, monday)...)
	require.NoError(t, err)
	defer unlock()

	_, err = f.useCase.Execute(asUser(clientA), req)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
