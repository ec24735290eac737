package create_booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	catalogRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/catalog"
	reservationRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-SchedulingService/pkg/locker"
	"github.com/m04kA/SMC-SchedulingService/pkg/metrics"
	"github.com/m04kA/SMC-SchedulingService/pkg/txmanager"
	"github.com/m04kA/SMC-SchedulingService/pkg/types"
)

const idempotencyNamespace = "scheduling:create_reservation:"

// UseCase use case для создания бронирования
type UseCase struct {
	reservationRepo ReservationRepository
	conflicts       ConflictChecker
	catalog         ServiceCatalog
	workingHours    WorkingHoursStore
	policies        PolicyProvider
	specialists     SpecialistChecker
	locker          Locker
	txManager       TransactionManager
	attempts        AttemptRecorder
	timeProvider    TimeProvider
	lockTimeout     time.Duration
	location        *time.Location
	logger          Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	reservationRepo ReservationRepository,
	conflicts ConflictChecker,
	catalog ServiceCatalog,
	workingHours WorkingHoursStore,
	policies PolicyProvider,
	specialists SpecialistChecker,
	locker Locker,
	txManager TransactionManager,
	logger Logger,
) *UseCase {
	return &UseCase{
		reservationRepo: reservationRepo,
		conflicts:       conflicts,
		catalog:         catalog,
		workingHours:    workingHours,
		policies:        policies,
		specialists:     specialists,
		locker:          locker,
		txManager:       txManager,
		timeProvider:    &RealTimeProvider{},
		location:        time.Local,
		logger:          logger,
	}
}

// WithTimeProvider подменяет источник времени
func (uc *UseCase) WithTimeProvider(tp TimeProvider) *UseCase {
	uc.timeProvider = tp
	return uc
}

// WithLockTimeout ограничивает ожидание блокировок; 0 - ждать, пока жив контекст запроса
func (uc *UseCase) WithLockTimeout(d time.Duration) *UseCase {
	uc.lockTimeout = d
	return uc
}

// WithAttemptRecorder включает учёт попыток бронирования
func (uc *UseCase) WithAttemptRecorder(rec AttemptRecorder) *UseCase {
	uc.attempts = rec
	return uc
}

// Execute выполняет use case создания бронирования.
// Проверки конфликтов и вставка выполняются атомарно: под блокировками по ключам
// специалиста, клиента и недели клиента, внутри сериализуемой транзакции.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	resp, err := uc.execute(ctx, req)
	uc.record(resp, err)
	return resp, err
}

func (uc *UseCase) execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: client=%d, specialist=%d, service=%d, date=%s, time=%s",
		req.ClientID, req.SpecialistID, req.ServiceID, req.Date, req.StartTime)

	// 1. Структурная валидация
	p, err := validateRequest(req, uc.location)
	if err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	// 2. Услуга должна существовать и при переопределённой длительности
	p.duration, err = uc.catalog.GetDuration(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrServiceNotFound) {
			uc.logger.Warn("CreateBooking: service id=%d not found", req.ServiceID)
			return nil, ErrServiceNotFound
		}
		uc.logger.Error("CreateBooking: failed to get service id=%d: %v", req.ServiceID, err)
		return nil, fmt.Errorf("%w: failed to get service: %v", ErrInternal, err)
	}
	if req.DurationOverride != nil {
		p.duration = *req.DurationOverride
	}
	if err := validateDuration(p.duration); err != nil {
		uc.logger.Warn("CreateBooking: invalid duration %d for service id=%d", p.duration, req.ServiceID)
		return nil, err
	}

	// 3. Права: клиент бронирует за себя, администратор за любого
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}
	if !principal.CanBookFor(req.ClientID) {
		uc.logger.Warn("CreateBooking: user=%d is not allowed to book for client=%d", principal.UserID, req.ClientID)
		return nil, domain.ErrAccessDenied
	}

	// 4. Специалист
	if err := uc.specialists.EnsureSpecialist(ctx, req.SpecialistID); err != nil {
		uc.logger.Warn("CreateBooking: specialist id=%d: %v", req.SpecialistID, err)
		return nil, err
	}

	// 5. Дата
	now := uc.timeProvider.Now().In(uc.location)
	if domain.IsDateInPast(p.date, now) {
		uc.logger.Warn("CreateBooking: date %s is in the past", req.Date)
		return nil, domain.ErrPastDate
	}
	// Сегодня можно бронировать только время позже текущего
	if domain.IsSameDay(p.date, now) && !p.startTime.IsAfter(types.NewTimeString(now)) {
		uc.logger.Warn("CreateBooking: start %s on %s has already passed", p.startTime, req.Date)
		return nil, fmt.Errorf("%w: start time %s has already passed", domain.ErrPastDate, p.startTime)
	}

	policy, err := uc.policies.Effective(ctx, req.SpecialistID)
	if err != nil {
		return nil, err
	}
	if policy.IsClosed(p.date) {
		uc.logger.Warn("CreateBooking: specialist=%d is closed on %s", req.SpecialistID, req.Date)
		return nil, domain.ErrClosedDay
	}

	// 6. Время окончания
	p.endTime, err = computeEnd(p.startTime, p.duration)
	if err != nil {
		uc.logger.Warn("CreateBooking: %s + %d min crosses midnight", p.startTime, p.duration)
		return nil, err
	}

	// 7. Идемпотентность
	var idemKey *uuid.UUID
	if req.IdempotencyKey != "" {
		key := idempotencyKey(req.ClientID, req.IdempotencyKey)
		idemKey = &key
		if resp, err := uc.replay(ctx, key, req, p); resp != nil || err != nil {
			return resp, err
		}
	}

	// 8. Критическая секция
	lockCtx := ctx
	if uc.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, uc.lockTimeout)
		defer cancel()
	}
	unlock, err := uc.locker.Lock(lockCtx, lockKeys(req, p.date)...)
	if err != nil {
		if errors.Is(err, locker.ErrLockTimeout) {
			uc.logger.Warn("CreateBooking: lock timeout for specialist=%d, date=%s: %v", req.SpecialistID, req.Date, err)
		} else {
			uc.logger.Error("CreateBooking: failed to acquire locks: %v", err)
		}
		return nil, fmt.Errorf("%w: failed to acquire locks: %v", ErrInternal, err)
	}
	defer unlock()

	var created *domain.Reservation
	err = uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := uc.reservationRepo.LockScope(txCtx, lockKeys(req, p.date)...); err != nil {
			return fmt.Errorf("%w: failed to lock scope: %v", ErrInternal, err)
		}

		if err := uc.checkConflicts(txCtx, req, p, policy); err != nil {
			return err
		}

		res, err := uc.reservationRepo.Create(txCtx, &domain.Reservation{
			ClientID:       req.ClientID,
			SpecialistID:   req.SpecialistID,
			ServiceID:      req.ServiceID,
			Date:           p.date,
			StartTime:      p.startTime,
			EndTime:        p.endTime,
			Status:         domain.StatusPending,
			Notes:          req.Notes,
			IdempotencyKey: idemKey,
		})
		if err != nil {
			return err
		}
		created = res
		return nil
	})
	if err != nil {
		// Параллельный запрос с тем же ключом успел первым
		if errors.Is(err, reservationRepo.ErrDuplicateIdempotencyKey) && idemKey != nil {
			if resp, replayErr := uc.replay(ctx, *idemKey, req, p); resp != nil || replayErr != nil {
				return resp, replayErr
			}
		}
		return nil, uc.mapError(err)
	}

	uc.logger.Info("CreateBooking: successfully created reservation id=%d", created.ID)
	return &Response{Reservation: created}, nil
}

// checkConflicts три проверки в фиксированном порядке: специалист, клиент, недельный лимит
func (uc *UseCase) checkConflicts(ctx context.Context, req *Request, p *parsed, policy domain.SchedulingPolicy) error {
	busy, err := uc.conflicts.HasSpecialistConflict(ctx, req.SpecialistID, p.date, p.startTime, p.endTime, nil)
	if err != nil {
		return fmt.Errorf("%w: specialist conflict check: %v", ErrInternal, err)
	}
	if busy {
		uc.logger.Warn("CreateBooking: specialist=%d busy on %s %s-%s", req.SpecialistID, req.Date, p.startTime, p.endTime)
		return domain.ErrSpecialistConflict
	}

	busy, err = uc.conflicts.HasClientConflict(ctx, req.ClientID, p.date, p.startTime, p.endTime, nil)
	if err != nil {
		return fmt.Errorf("%w: client conflict check: %v", ErrInternal, err)
	}
	if busy {
		uc.logger.Warn("CreateBooking: client=%d busy on %s %s-%s", req.ClientID, req.Date, p.startTime, p.endTime)
		return domain.ErrClientConflict
	}

	booked, err := uc.conflicts.HasWeeklyBookingForService(ctx, req.ClientID, req.ServiceID, p.date)
	if err != nil {
		return fmt.Errorf("%w: weekly limit check: %v", ErrInternal, err)
	}
	if booked {
		uc.logger.Warn("CreateBooking: client=%d already booked service=%d this week", req.ClientID, req.ServiceID)
		return domain.ErrWeeklyLimitExceeded
	}

	if policy.EnforceWorkingHours {
		intervals, err := uc.workingHours.GetIntervals(ctx, req.SpecialistID, p.date.Weekday())
		if err != nil {
			return fmt.Errorf("%w: failed to get working intervals: %v", ErrInternal, err)
		}
		if !withinWorkingHours(intervals, p.startTime, p.endTime) {
			uc.logger.Warn("CreateBooking: %s-%s is outside working hours of specialist=%d", p.startTime, p.endTime, req.SpecialistID)
			return domain.ErrOutsideWorkingHours
		}
	}

	return nil
}

// replay возвращает ранее созданное бронирование с тем же ключом.
// nil, nil означает, что ключ ещё не использовался.
func (uc *UseCase) replay(ctx context.Context, key uuid.UUID, req *Request, p *parsed) (*Response, error) {
	existing, err := uc.reservationRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			return nil, nil
		}
		uc.logger.Error("CreateBooking: failed to look up idempotency key: %v", err)
		return nil, fmt.Errorf("%w: idempotency lookup: %v", ErrInternal, err)
	}

	if !sameBooking(existing, req, p) {
		uc.logger.Warn("CreateBooking: idempotency key reused by client=%d with a different request", req.ClientID)
		return nil, domain.ErrIdempotencyConflict
	}

	uc.logger.Info("CreateBooking: replayed reservation id=%d for client=%d", existing.ID, req.ClientID)
	return &Response{Reservation: existing, Replayed: true}, nil
}

// mapError приводит ошибки хранилища и транзакции к таксономии домена.
// Ограничения БД срабатывают, когда проверки обошли (другой инстанс без общего locker).
func (uc *UseCase) mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSpecialistConflict),
		errors.Is(err, domain.ErrClientConflict),
		errors.Is(err, domain.ErrWeeklyLimitExceeded),
		errors.Is(err, domain.ErrOutsideWorkingHours),
		errors.Is(err, ErrInternal):
		return err
	case errors.Is(err, reservationRepo.ErrSpecialistOverlap):
		return domain.ErrSpecialistConflict
	case errors.Is(err, reservationRepo.ErrClientOverlap):
		return domain.ErrClientConflict
	case errors.Is(err, reservationRepo.ErrWeeklyDuplicate):
		return domain.ErrWeeklyLimitExceeded
	case errors.Is(err, reservationRepo.ErrUnknownService):
		return ErrServiceNotFound
	case txmanager.IsSerializationFailure(err):
		uc.logger.Warn("CreateBooking: serialization failure: %v", err)
		return domain.ErrSpecialistConflict
	default:
		uc.logger.Error("CreateBooking: failed to create reservation: %v", err)
		return fmt.Errorf("%w: failed to create reservation: %v", ErrInternal, err)
	}
}

func (uc *UseCase) record(resp *Response, err error) {
	if uc.attempts == nil {
		return
	}
	uc.attempts.IncBookingAttempt(attemptResult(resp, err))
}

func attemptResult(resp *Response, err error) string {
	switch {
	case err == nil && resp.Replayed:
		return metrics.BookingResultReplayed
	case err == nil:
		return metrics.BookingResultCreated
	case errors.Is(err, domain.ErrSpecialistConflict), errors.Is(err, domain.ErrClientConflict):
		return metrics.BookingResultConflict
	case errors.Is(err, domain.ErrWeeklyLimitExceeded):
		return metrics.BookingResultWeeklyLimit
	case errors.Is(err, domain.ErrPersistence):
		return metrics.BookingResultError
	default:
		return metrics.BookingResultRejected
	}
}

// idempotencyKey ключ клиента детерминированно отображается в UUID, уникальный в пределах клиента
func idempotencyKey(clientID int64, key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(idempotencyNamespace+strconv.FormatInt(clientID, 10)+":"+key))
}
