package get_available_slots

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-SchedulingService/internal/service/conflicts"
	"github.com/m04kA/SMC-SchedulingService/internal/service/directory"
	"github.com/m04kA/SMC-SchedulingService/internal/service/policy"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
	"github.com/m04kA/SMC-SchedulingService/pkg/ptr"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

const (
	specialistID int64 = 10
	serviceID    int64 = 100
)

// 2025-03-03 понедельник
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local)

type fixedTime struct {
	now time.Time
}

func (f fixedTime) Now() time.Time {
	return f.now
}

type fixture struct {
	store      *memory.Store
	calculator *Calculator
	useCase    *UseCase
}

func newFixture(t *testing.T, now time.Time, defaults domain.SchedulingPolicy) *fixture {
	t.Helper()
	log := logger.NewNop()
	store := memory.NewStore()

	store.Users().Add(domain.User{ID: specialistID, Name: "Мастер", Roles: domain.NewRoleSet(domain.RoleSpecialist)})
	store.Catalog().Add(domain.Service{ID: serviceID, Name: "Консультация", DurationMinutes: 30})

	for _, day := range []time.Weekday{time.Monday, time.Sunday} {
		_, err := store.WorkingHours().Create(context.Background(), &domain.WorkingInterval{
			SpecialistID: specialistID,
			DayOfWeek:    day,
			StartTime:    "09:00",
			EndTime:      "13:00",
		})
		require.NoError(t, err)
	}

	policies := policy.NewService(store.Policies(), defaults, log)
	calculator := NewCalculator(store.WorkingHours(), store.Reservations(), policies, log).
		WithTimeProvider(fixedTime{now: now})

	return &fixture{
		store:      store,
		calculator: calculator,
		useCase:    NewUseCase(calculator, store.Catalog(), directory.NewService(store.Users(), log), log),
	}
}

func (f *fixture) book(t *testing.T, clientID int64, date time.Time, start, end string, status domain.ReservationStatus) *domain.Reservation {
	t.Helper()
	res, err := f.store.Reservations().Create(context.Background(), &domain.Reservation{
		ClientID:     clientID,
		SpecialistID: specialistID,
		ServiceID:    serviceID + clientID,
		Date:         date,
		StartTime:    types.TimeString(start),
		EndTime:      types.TimeString(end),
		Status:       status,
	})
	require.NoError(t, err)
	return res
}

func asStrings(slots []types.TimeString) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func TestComputeAvailability_MondayScenario(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, -7), domain.SchedulingPolicy{})
	f.book(t, 1, monday, "10:00", "10:30", domain.StatusConfirmed)

	slots, err := f.calculator.ComputeAvailability(context.Background(), specialistID, 30, monday)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"09:00", "09:30", "10:30", "11:00", "11:30", "12:00", "12:30"},
		asStrings(slots.Collect()))
}

func TestComputeAvailability_StepsWithinFreeSubIntervals(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, -7), domain.SchedulingPolicy{})
	f.book(t, 1, monday, "09:45", "10:15", domain.StatusPending)
	f.book(t, 2, monday, "12:00", "12:20", domain.StatusConfirmed)

	slots, err := f.calculator.ComputeAvailability(context.Background(), specialistID, 60, monday)
	require.NoError(t, err)

	// свободно: 09:00-09:45, 10:15-12:00, 12:20-13:00
	assert.Equal(t, []string{"10:15"}, asStrings(slots.Collect()))
}

func TestComputeAvailability_TodayDropsPastAndCurrentStarts(t *testing.T) {
	now := monday.Add(10*time.Hour + 30*time.Minute)
	f := newFixture(t, now, domain.SchedulingPolicy{})

	slots, err := f.calculator.ComputeAvailability(context.Background(), specialistID, 30, monday)
	require.NoError(t, err)

	got := slots.Collect()
	assert.Equal(t, []string{"11:00", "11:30", "12:00", "12:30"}, asStrings(got))
	for _, s := range got {
		assert.True(t, s.IsAfter(types.NewTimeString(now)))
	}
}

func TestComputeAvailability_PastDateIsEmpty(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, 1), domain.SchedulingPolicy{})

	slots, err := f.calculator.ComputeAvailability(context.Background(), specialistID, 30, monday)
	require.NoError(t, err)
	assert.Empty(t, slots.Collect())
}

func TestComputeAvailability_NoWorkingIntervals(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, -7), domain.SchedulingPolicy{})

	slots, err := f.calculator.ComputeAvailability(context.Background(), specialistID, 30, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, slots.Collect())
}

func TestComputeAvailability_SundayPolicy(t *testing.T) {
	sunday := monday.AddDate(0, 0, 6)
	ctx := context.Background()

	open := newFixture(t, monday, domain.SchedulingPolicy{SundayClosed: false})
	slots, err := open.calculator.ComputeAvailability(ctx, specialistID, 30, sunday)
	require.NoError(t, err)
	assert.Len(t, slots.Collect(), 8)

	closed := newFixture(t, monday, domain.SchedulingPolicy{SundayClosed: true})
	slots, err = closed.calculator.ComputeAvailability(ctx, specialistID, 30, sunday)
	require.NoError(t, err)
	assert.Empty(t, slots.Collect())

	// переопределение специалиста сильнее глобальной настройки
	_, err = closed.store.Policies().Upsert(ctx, &domain.SpecialistPolicy{SpecialistID: specialistID, SundayClosed: ptr.Ptr(false)})
	require.NoError(t, err)
	slots, err = closed.calculator.ComputeAvailability(ctx, specialistID, 30, sunday)
	require.NoError(t, err)
	assert.Len(t, slots.Collect(), 8)
}

func TestComputeAvailability_InvalidDuration(t *testing.T) {
	f := newFixture(t, monday, domain.SchedulingPolicy{})

	for _, d := range []int{0, 14, 481} {
		_, err := f.calculator.ComputeAvailability(context.Background(), specialistID, d, monday)
		assert.ErrorIs(t, err, domain.ErrValidation, "duration=%d", d)
	}
}

func TestComputeAvailability_CancellationFreesInterval(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, -7), domain.SchedulingPolicy{})
	res := f.book(t, 1, monday, "10:00", "10:30", domain.StatusPending)

	slots, err := f.calculator.ComputeAvailability(context.Background(), specialistID, 30, monday)
	require.NoError(t, err)
	assert.NotContains(t, asStrings(slots.Collect()), "10:00")

	ok, err := f.store.Reservations().Cancel(context.Background(), res.ID, domain.StatusPending, nil)
	require.NoError(t, err)
	require.True(t, ok)

	assert.NotContains(t, asStrings(slots.Collect()), "10:00", "computed sequence is a snapshot")

	slots, err = f.calculator.ComputeAvailability(context.Background(), specialistID, 30, monday)
	require.NoError(t, err)
	assert.Contains(t, asStrings(slots.Collect()), "10:00")
}

func TestComputeAvailability_SlotsPassConflictValidation(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, -7), domain.SchedulingPolicy{})
	f.book(t, 1, monday, "09:20", "10:05", domain.StatusPending)
	f.book(t, 2, monday, "11:10", "11:40", domain.StatusConfirmed)

	validator := conflicts.NewValidator(f.store.Reservations())

	for _, duration := range []int{15, 25, 30, 45, 60} {
		slots, err := f.calculator.ComputeAvailability(context.Background(), specialistID, duration, monday)
		require.NoError(t, err)

		for start := range slots.All() {
			end, err := start.AddMinutes(duration)
			require.NoError(t, err)

			conflict, err := validator.HasSpecialistConflict(context.Background(), specialistID, monday, start, end, nil)
			require.NoError(t, err)
			assert.False(t, conflict, "duration=%d start=%s", duration, start)
		}
	}
}

func TestSlots_RestartableAndPaged(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, -7), domain.SchedulingPolicy{})

	slots, err := f.calculator.ComputeAvailability(context.Background(), specialistID, 30, monday)
	require.NoError(t, err)

	first := slots.Collect()
	assert.Equal(t, first, slots.Collect())
	require.Len(t, first, 8)

	page1, info := slots.Page(1, 3)
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, asStrings(page1))
	assert.True(t, info.HasMore)

	page3, info := slots.Page(3, 3)
	assert.Equal(t, []string{"12:00", "12:30"}, asStrings(page3))
	assert.False(t, info.HasMore)

	page4, info := slots.Page(4, 3)
	assert.Empty(t, page4)
	assert.False(t, info.HasMore)

	count := 0
	for range slots.All() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

func TestSubtractOccupied(t *testing.T) {
	h := func(hours, minutes int) int { return hours*3600 + minutes*60 }

	tests := []struct {
		name     string
		working  []interval
		occupied []interval
		want     []interval
	}{
		{
			name:    "nothing occupied",
			working: []interval{{h(9, 0), h(13, 0)}},
			want:    []interval{{h(9, 0), h(13, 0)}},
		},
		{
			name:     "occupied covers working",
			working:  []interval{{h(9, 0), h(10, 0)}},
			occupied: []interval{{h(8, 0), h(11, 0)}},
			want:     []interval{},
		},
		{
			name:     "occupied at edges",
			working:  []interval{{h(9, 0), h(13, 0)}},
			occupied: []interval{{h(9, 0), h(9, 30)}, {h(12, 30), h(13, 0)}},
			want:     []interval{{h(9, 30), h(12, 30)}},
		},
		{
			name:     "two working intervals",
			working:  []interval{{h(14, 0), h(18, 0)}, {h(9, 0), h(13, 0)}},
			occupied: []interval{{h(12, 0), h(15, 0)}},
			want:     []interval{{h(9, 0), h(12, 0)}, {h(15, 0), h(18, 0)}},
		},
		{
			name:     "nested occupied",
			working:  []interval{{h(9, 0), h(13, 0)}},
			occupied: []interval{{h(10, 0), h(12, 0)}, {h(10, 30), h(11, 0)}},
			want:     []interval{{h(9, 0), h(10, 0)}, {h(12, 0), h(13, 0)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subtractOccupied(tt.working, tt.occupied))
		})
	}
}

func TestUseCase_Execute(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, -7), domain.SchedulingPolicy{})

	resp, err := f.useCase.Execute(context.Background(), &Request{
		SpecialistID: specialistID,
		ServiceID:    serviceID,
		Date:         monday,
		Page:         2,
		PageSize:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, 30, resp.DurationMinutes)
	require.Len(t, resp.Slots, 3)
	assert.Equal(t, types.TimeString("11:30"), resp.Slots[0].StartTime)
	assert.Equal(t, types.TimeString("12:00"), resp.Slots[0].EndTime)
	assert.False(t, resp.Page.HasMore)
}

func TestUseCase_Execute_Errors(t *testing.T) {
	f := newFixture(t, monday.AddDate(0, 0, -7), domain.SchedulingPolicy{})

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{name: "invalid ids", req: &Request{Date: monday}, wantErr: domain.ErrValidation},
		{name: "page size too big", req: &Request{SpecialistID: specialistID, ServiceID: serviceID, Date: monday, PageSize: 1000}, wantErr: domain.ErrValidation},
		{name: "unknown service", req: &Request{SpecialistID: specialistID, ServiceID: 999, Date: monday}, wantErr: domain.ErrNotFound},
		{name: "unknown specialist", req: &Request{SpecialistID: 999, ServiceID: serviceID, Date: monday}, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.useCase.Execute(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
