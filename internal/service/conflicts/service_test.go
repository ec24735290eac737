package conflicts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-SchedulingService/pkg/ptr"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local)

func seed(t *testing.T, store *memory.Store, clientID, specialistID, serviceID int64, date time.Time, start, end string) *domain.Reservation {
	t.Helper()
	res, err := store.Reservations().Create(context.Background(), &domain.Reservation{
		ClientID:     clientID,
		SpecialistID: specialistID,
		ServiceID:    serviceID,
		Date:         date,
		StartTime:    types.TimeString(start),
		EndTime:      types.TimeString(end),
		Status:       domain.StatusPending,
	})
	require.NoError(t, err)
	return res
}

func TestValidator_HasSpecialistConflict(t *testing.T) {
	store := memory.NewStore()
	existing := seed(t, store, 1, 10, 100, monday, "10:00", "11:00")
	v := NewValidator(store.Reservations())

	tests := []struct {
		name      string
		date      time.Time
		start     string
		end       string
		excludeID *int64
		want      bool
	}{
		{name: "inside", date: monday, start: "10:15", end: "10:45", want: true},
		{name: "covering", date: monday, start: "09:00", end: "12:00", want: true},
		{name: "overlapping start", date: monday, start: "09:30", end: "10:30", want: true},
		{name: "ends at start", date: monday, start: "09:00", end: "10:00", want: false},
		{name: "starts at end", date: monday, start: "11:00", end: "12:00", want: false},
		{name: "other day", date: monday.AddDate(0, 0, 1), start: "10:00", end: "11:00", want: false},
		{name: "excluded self", date: monday, start: "10:00", end: "11:00", excludeID: &existing.ID, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.HasSpecialistConflict(context.Background(), 10, tt.date, types.TimeString(tt.start), types.TimeString(tt.end), tt.excludeID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := v.HasSpecialistConflict(context.Background(), 11, monday, "10:00", "11:00", nil)
	require.NoError(t, err)
	assert.False(t, got, "another specialist is free")
}

func TestValidator_HasClientConflict(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, 1, 10, 100, monday, "10:00", "11:00")
	v := NewValidator(store.Reservations())

	got, err := v.HasClientConflict(context.Background(), 1, monday, "10:30", "11:30", nil)
	require.NoError(t, err)
	assert.True(t, got, "client is busy with any specialist")

	got, err = v.HasClientConflict(context.Background(), 2, monday, "10:30", "11:30", nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestValidator_CancelledIsIgnored(t *testing.T) {
	store := memory.NewStore()
	existing := seed(t, store, 1, 10, 100, monday, "10:00", "11:00")
	ok, err := store.Reservations().Cancel(context.Background(), existing.ID, domain.StatusPending, nil)
	require.NoError(t, err)
	require.True(t, ok)

	v := NewValidator(store.Reservations())

	got, err := v.HasSpecialistConflict(context.Background(), 10, monday, "10:00", "11:00", nil)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = v.HasWeeklyBookingForService(context.Background(), 1, 100, monday)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestValidator_HasWeeklyBookingForService(t *testing.T) {
	store := memory.NewStore()
	wednesday := monday.AddDate(0, 0, 2)
	seed(t, store, 1, 10, 100, wednesday, "10:00", "11:00")
	v := NewValidator(store.Reservations())

	tests := []struct {
		name      string
		clientID  int64
		serviceID int64
		date      time.Time
		want      bool
	}{
		{name: "same week monday", clientID: 1, serviceID: 100, date: monday, want: true},
		{name: "same week sunday", clientID: 1, serviceID: 100, date: monday.AddDate(0, 0, 6), want: true},
		{name: "previous sunday", clientID: 1, serviceID: 100, date: monday.AddDate(0, 0, -1), want: false},
		{name: "next monday", clientID: 1, serviceID: 100, date: monday.AddDate(0, 0, 7), want: false},
		{name: "other service", clientID: 1, serviceID: 101, date: monday, want: false},
		{name: "other client", clientID: 2, serviceID: 100, date: monday, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.HasWeeklyBookingForService(context.Background(), tt.clientID, tt.serviceID, tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type failingReader struct{}

func (failingReader) FindActive(context.Context, domain.ReservationFilter) ([]*domain.Reservation, error) {
	return nil, errors.New("connection refused")
}

func TestValidator_Errors(t *testing.T) {
	v := NewValidator(failingReader{})

	_, err := v.HasSpecialistConflict(context.Background(), 10, monday, "10:00", "11:00", nil)
	assert.ErrorIs(t, err, ErrLookup)

	_, err = v.HasWeeklyBookingForService(context.Background(), 1, 100, monday)
	assert.ErrorIs(t, err, ErrLookup)

	_, err = NewValidator(memory.NewStore().Reservations()).HasClientConflict(context.Background(), 1, monday, "11:00", "10:00", ptr.Ptr(int64(1)))
	assert.ErrorIs(t, err, ErrInvalidInterval)
}
