package cancel_reservation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-SchedulingService/internal/domain"
	"github.com/m04kA/SMC-SchedulingService/internal/service/reservations/models"
	"github.com/m04kA/SMC-SchedulingService/pkg/logger"
)

type fakeService struct {
	gotID  int64
	gotReq *models.CancelReservationRequest
	err    error
}

func (f *fakeService) Cancel(_ context.Context, id int64, req *models.CancelReservationRequest) (*models.ReservationResponse, error) {
	f.gotID = id
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ReservationResponse{ID: id, Status: string(domain.StatusCancelled)}, nil
}

func serve(svc *fakeService, path, body string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc("/reservations/{reservationId}/cancel", NewHandler(svc, logger.NewNop()).Handle).Methods(http.MethodPost)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	return rec
}

func TestHandle(t *testing.T) {
	t.Run("empty body", func(t *testing.T) {
		svc := &fakeService{}
		rec := serve(svc, "/reservations/5/cancel", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(5), svc.gotID)
		assert.Nil(t, svc.gotReq.Reason)
	})

	t.Run("with reason", func(t *testing.T) {
		svc := &fakeService{}
		rec := serve(svc, "/reservations/5/cancel", `{"requesterId":1,"reason":"заболел"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, svc.gotReq.Reason)
		assert.Equal(t, "заболел", *svc.gotReq.Reason)
		assert.Equal(t, int64(1), *svc.gotReq.RequesterID)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := serve(&fakeService{}, "/reservations/zero/cancel", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("terminal status", func(t *testing.T) {
		rec := serve(&fakeService{err: domain.ErrInvalidTransition}, "/reservations/5/cancel", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rec := serve(&fakeService{err: domain.ErrNotFound}, "/reservations/5/cancel", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
