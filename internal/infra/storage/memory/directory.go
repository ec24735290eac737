package memory

import (
	"context"
	"sort"
	"time"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/catalog"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/policy"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/users"
	"github.com/m04kA/SMC-SchedulingService/internal/infra/storage/workinghours"
)

// WorkingHours рабочие интервалы
type WorkingHours struct {
	s *Store
}

func (w *WorkingHours) GetIntervals(_ context.Context, specialistID int64, dayOfWeek time.Weekday) ([]domain.WorkingInterval, error) {
	w.s.mu.RLock()
	defer w.s.mu.RUnlock()

	intervals := make([]domain.WorkingInterval, 0)
	for _, interval := range w.s.intervals[specialistID] {
		if interval.DayOfWeek == dayOfWeek {
			intervals = append(intervals, interval)
		}
	}
	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].StartTime.IsBefore(intervals[j].StartTime)
	})
	return intervals, nil
}

func (w *WorkingHours) Create(_ context.Context, interval *domain.WorkingInterval) (*domain.WorkingInterval, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()

	for _, existing := range w.s.intervals[interval.SpecialistID] {
		if existing.DayOfWeek == interval.DayOfWeek &&
			domain.Overlaps(existing.StartTime, existing.EndTime, interval.StartTime, interval.EndTime) {
			return nil, workinghours.ErrIntervalOverlap
		}
	}

	w.s.nextIntervalID++
	interval.ID = w.s.nextIntervalID
	w.s.intervals[interval.SpecialistID] = append(w.s.intervals[interval.SpecialistID], *interval)
	return interval, nil
}

// Catalog каталог услуг
type Catalog struct {
	s *Store
}

// Add добавляет или заменяет услугу
func (c *Catalog) Add(service domain.Service) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.services[service.ID] = service
}

func (c *Catalog) GetByID(_ context.Context, serviceID int64) (*domain.Service, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	service, ok := c.s.services[serviceID]
	if !ok {
		return nil, catalog.ErrServiceNotFound
	}
	return &service, nil
}

func (c *Catalog) GetDuration(ctx context.Context, serviceID int64) (int, error) {
	service, err := c.GetByID(ctx, serviceID)
	if err != nil {
		return 0, err
	}
	return service.DurationMinutes, nil
}

// Policies переопределения политики расписания
type Policies struct {
	s *Store
}

func (p *Policies) Get(_ context.Context, specialistID int64) (*domain.SpecialistPolicy, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()

	stored, ok := p.s.policies[specialistID]
	if !ok {
		return nil, policy.ErrPolicyNotFound
	}
	return &stored, nil
}

func (p *Policies) Upsert(_ context.Context, sp *domain.SpecialistPolicy) (*domain.SpecialistPolicy, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	sp.UpdatedAt = p.s.now()
	p.s.policies[sp.SpecialistID] = *sp
	return sp, nil
}

func (p *Policies) Delete(_ context.Context, specialistID int64) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if _, ok := p.s.policies[specialistID]; !ok {
		return policy.ErrPolicyNotFound
	}
	delete(p.s.policies, specialistID)
	return nil
}

// Users справочник пользователей
type Users struct {
	s *Store
}

// Add добавляет или заменяет пользователя
func (u *Users) Add(user domain.User) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.users[user.ID] = user
}

// AddSpecialistProfile добавляет профиль специалиста
func (u *Users) AddSpecialistProfile(profile domain.SpecialistProfile) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	u.s.profiles[profile.UserID] = profile
}

func (u *Users) GetUser(_ context.Context, userID int64) (*domain.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	user, ok := u.s.users[userID]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &user, nil
}

func (u *Users) GetSpecialistProfile(_ context.Context, userID int64) (*domain.SpecialistProfile, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	profile, ok := u.s.profiles[userID]
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &profile, nil
}
