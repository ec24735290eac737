package memory

import (
	"sync"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
)

// Store in-memory хранилище для локального запуска и тестов.
// Проверяет те же инварианты, что и ограничения схемы Postgres, и возвращает те же ошибки.
type Store struct {
	mu sync.RWMutex

	reservations      map[int64]*domain.Reservation
	nextReservationID int64

	intervals      map[int64][]domain.WorkingInterval
	nextIntervalID int64

	services map[int64]domain.Service
	policies map[int64]domain.SpecialistPolicy
	users    map[int64]domain.User
	profiles map[int64]domain.SpecialistProfile

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		reservations: make(map[int64]*domain.Reservation),
		intervals:    make(map[int64][]domain.WorkingInterval),
		services:     make(map[int64]domain.Service),
		policies:     make(map[int64]domain.SpecialistPolicy),
		users:        make(map[int64]domain.User),
		profiles:     make(map[int64]domain.SpecialistProfile),
		now:          time.Now,
	}
}

func (s *Store) Reservations() *Reservations { return &Reservations{s: s} }
func (s *Store) WorkingHours() *WorkingHours { return &WorkingHours{s: s} }
func (s *Store) Catalog() *Catalog           { return &Catalog{s: s} }
func (s *Store) Policies() *Policies         { return &Policies{s: s} }
func (s *Store) Users() *Users               { return &Users{s: s} }

func cloneReservation(r *domain.Reservation) *domain.Reservation {
	c := *r
	if r.Notes != nil {
		notes := *r.Notes
		c.Notes = &notes
	}
	if r.IdempotencyKey != nil {
		key := *r.IdempotencyKey
		c.IdempotencyKey = &key
	}
	if r.CancellationReason != nil {
		reason := *r.CancellationReason
		c.CancellationReason = &reason
	}
	if r.CancelledAt != nil {
		at := *r.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}
