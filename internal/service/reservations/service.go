package reservations

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	reservationRepo "github.com/m04kA/SMC-SchedulingService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-SchedulingService/internal/service/reservations/models"
)

// Service сервис чтения бронирований и переходов статусов
type Service struct {
	reservationRepo ReservationRepository
	logger          Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(reservationRepo ReservationRepository, logger Logger) *Service {
	return &Service{
		reservationRepo: reservationRepo,
		logger:          logger,
	}
}

// GetByID получает бронирование по ID.
// Видно клиенту, специалисту бронирования и администратору.
func (s *Service) GetByID(ctx context.Context, id int64) (*models.ReservationResponse, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}

	res, err := s.load(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	if !principal.CanView(res) {
		s.logger.Warn("GetByID: access denied for user=%d to reservation id=%d", principal.UserID, id)
		return nil, domain.ErrAccessDenied
	}

	return models.FromDomainReservation(res), nil
}

// ListByClient история бронирований клиента, опционально по статусу
func (s *Service) ListByClient(ctx context.Context, req *models.ListClientReservationsRequest) (*models.ReservationListResponse, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}

	if !principal.CanBookFor(req.ClientID) {
		s.logger.Warn("ListByClient: access denied for user=%d to client=%d", principal.UserID, req.ClientID)
		return nil, domain.ErrAccessDenied
	}

	filter := domain.ReservationFilter{
		ClientID:         &req.ClientID,
		IncludeCancelled: true,
	}
	if req.Status != nil {
		status, ok := domain.ParseReservationStatus(*req.Status)
		if !ok {
			return nil, domain.NewValidationError("status", "unknown reservation status")
		}
		filter.Status = &status
	}

	found, err := s.reservationRepo.Find(ctx, filter)
	if err != nil {
		s.logger.Error("ListByClient: repository error for client=%d: %v", req.ClientID, err)
		return nil, fmt.Errorf("%w: ListByClient - repository error: %v", domain.ErrPersistence, err)
	}

	s.logger.Info("ListByClient: fetched %d reservations for client=%d", len(found), req.ClientID)
	return models.FromDomainReservationList(found), nil
}

// ListBySpecialist расписание специалиста, опционально на конкретную дату
func (s *Service) ListBySpecialist(ctx context.Context, req *models.ListSpecialistReservationsRequest) (*models.ReservationListResponse, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}

	if !principal.CanManageSpecialist(req.SpecialistID) {
		s.logger.Warn("ListBySpecialist: access denied for user=%d to specialist=%d", principal.UserID, req.SpecialistID)
		return nil, domain.ErrAccessDenied
	}

	filter := domain.ReservationFilter{
		SpecialistID:     &req.SpecialistID,
		DateFrom:         req.Date,
		DateTo:           req.Date,
		IncludeCancelled: req.IncludeCancelled,
	}

	found, err := s.reservationRepo.Find(ctx, filter)
	if err != nil {
		s.logger.Error("ListBySpecialist: repository error for specialist=%d: %v", req.SpecialistID, err)
		return nil, fmt.Errorf("%w: ListBySpecialist - repository error: %v", domain.ErrPersistence, err)
	}

	s.logger.Info("ListBySpecialist: fetched %d reservations for specialist=%d", len(found), req.SpecialistID)
	return models.FromDomainReservationList(found), nil
}

// Cancel отменяет бронирование.
// Отменить может клиент, специалист бронирования или администратор.
// Строка не удаляется, сохраняются причина и время отмены.
func (s *Service) Cancel(ctx context.Context, id int64, req *models.CancelReservationRequest) (*models.ReservationResponse, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}

	if req.RequesterID != nil && *req.RequesterID != principal.UserID && !principal.IsAdmin() {
		s.logger.Warn("Cancel: requester=%d does not match user=%d", *req.RequesterID, principal.UserID)
		return nil, domain.ErrAccessDenied
	}

	if req.Reason != nil && utf8.RuneCountInString(*req.Reason) > domain.MaxCancellationReasonLength {
		return nil, domain.NewValidationError("reason", fmt.Sprintf("must be at most %d characters", domain.MaxCancellationReasonLength))
	}

	s.logger.Info("Cancel: cancelling reservation id=%d by user=%d", id, principal.UserID)

	res, err := s.load(ctx, "Cancel", id)
	if err != nil {
		return nil, err
	}

	if !principal.CanCancel(res) {
		s.logger.Warn("Cancel: access denied for user=%d to reservation id=%d", principal.UserID, id)
		return nil, domain.ErrAccessDenied
	}

	if res.Status.IsTerminal() {
		s.logger.Warn("Cancel: reservation id=%d is already %s", id, res.Status)
		return nil, fmt.Errorf("%w: reservation is already %s", domain.ErrInvalidTransition, res.Status)
	}
	if !res.Status.CanTransitionTo(domain.StatusCancelled) {
		s.logger.Warn("Cancel: reservation id=%d cannot be cancelled, status=%s", id, res.Status)
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, res.Status, domain.StatusCancelled)
	}

	updated, err := s.reservationRepo.Cancel(ctx, id, res.Status, req.Reason)
	if err != nil {
		s.logger.Error("Cancel: repository error for reservation id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: Cancel - repository error: %v", domain.ErrPersistence, err)
	}
	if !updated {
		s.logger.Warn("Cancel: reservation id=%d changed concurrently", id)
		return nil, ErrConcurrentChange
	}

	s.logger.Info("Cancel: successfully cancelled reservation id=%d", id)
	return s.reload(ctx, "Cancel", id)
}

// UpdateStatus переводит бронирование в новый статус по автомату состояний.
// Доступно специалисту бронирования и администратору.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req *models.UpdateStatusRequest) (*models.ReservationResponse, error) {
	principal, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, ErrNoPrincipal
	}

	newStatus, ok := domain.ParseReservationStatus(req.NewStatus)
	if !ok {
		return nil, domain.NewValidationError("newStatus", "unknown reservation status")
	}

	s.logger.Info("UpdateStatus: updating reservation id=%d to status=%s by user=%d", id, newStatus, principal.UserID)

	res, err := s.load(ctx, "UpdateStatus", id)
	if err != nil {
		return nil, err
	}

	if !principal.CanChangeStatus(res) {
		s.logger.Warn("UpdateStatus: access denied for user=%d to reservation id=%d", principal.UserID, id)
		return nil, domain.ErrAccessDenied
	}

	if res.Status.IsTerminal() {
		s.logger.Warn("UpdateStatus: reservation id=%d is already %s", id, res.Status)
		return nil, fmt.Errorf("%w: reservation is already %s", domain.ErrInvalidTransition, res.Status)
	}
	if !res.Status.CanTransitionTo(newStatus) {
		s.logger.Warn("UpdateStatus: transition %s -> %s rejected for reservation id=%d", res.Status, newStatus, id)
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, res.Status, newStatus)
	}

	var updated bool
	if newStatus == domain.StatusCancelled {
		updated, err = s.reservationRepo.Cancel(ctx, id, res.Status, nil)
	} else {
		updated, err = s.reservationRepo.UpdateStatus(ctx, id, res.Status, newStatus)
	}
	if err != nil {
		s.logger.Error("UpdateStatus: repository error for reservation id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: UpdateStatus - repository error: %v", domain.ErrPersistence, err)
	}
	if !updated {
		s.logger.Warn("UpdateStatus: reservation id=%d changed concurrently", id)
		return nil, ErrConcurrentChange
	}

	s.logger.Info("UpdateStatus: successfully updated reservation id=%d to status=%s", id, newStatus)
	return s.reload(ctx, "UpdateStatus", id)
}

// Вспомогательные методы

func (s *Service) load(ctx context.Context, op string, id int64) (*domain.Reservation, error) {
	res, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			s.logger.Warn("%s: reservation id=%d not found", op, id)
			return nil, ErrReservationNotFound
		}
		s.logger.Error("%s: repository error for reservation id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", domain.ErrPersistence, op, err)
	}
	return res, nil
}

func (s *Service) reload(ctx context.Context, op string, id int64) (*models.ReservationResponse, error) {
	res, err := s.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	return models.FromDomainReservation(res), nil
}
