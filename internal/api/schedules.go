package api

import (
	"context"
	"errors"
	"net/http"
	"path"
	"strconv"

	"go.uber.org/zap"

	"github.com/cybershield/shieldscan/internal/domain/schedule"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

// ScheduleService is the subset of *scheduling.Service the API needs.
type ScheduleService interface {
	Create(ctx context.Context, target, frequency string) (*schedule.Schedule, error)
	List(ctx context.Context) ([]*schedule.Schedule, error)
	Delete(ctx context.Context, id int) error
}

// WebhookSettings is the runtime webhook target. *notify.Dispatcher
// satisfies it.
type WebhookSettings interface {
	URL() string
	SetURL(rawURL string) error
	SendTest(ctx context.Context) error
}

var errSchedulesDisabled = errors.New("schedules are not enabled")

type ScheduleRequest struct {
	TargetURL string `json:"target_url"`
	Frequency string `json:"frequency"`
}

type WebhookRequest struct {
	URL string `json:"url"`
}

type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Schedules == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errSchedulesDisabled)
		return
	}
	switch r.Method {
	case http.MethodGet:
		list, err := s.cfg.Schedules.List(r.Context())
		if err != nil {
			s.writeError(w, r, statusFor(err), err)
			return
		}
		if list == nil {
			list = []*schedule.Schedule{}
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var req ScheduleRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		sc, err := s.cfg.Schedules.Create(r.Context(), req.TargetURL, req.Frequency)
		if err != nil {
			s.writeError(w, r, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, sc)
	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleScheduleByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Schedules == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errSchedulesDisabled)
		return
	}
	id, err := strconv.Atoi(path.Base(r.URL.Path))
	if err != nil || id <= 0 {
		s.writeError(w, r, http.StatusBadRequest, sharedErrors.ErrInvalidScheduleID)
		return
	}
	if err := s.cfg.Schedules.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Schedule deleted"})
}

func (s *Server) handleWebhookSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, WebhookRequest{URL: s.cfg.Webhook.URL()})
	case http.MethodPost:
		var req WebhookRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		if err := s.cfg.Webhook.SetURL(req.URL); err != nil {
			s.writeError(w, r, statusFor(err), err)
			return
		}
		s.requestLogger(r).Info("webhook_url_updated", zap.Bool("enabled", req.URL != ""))
		writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "Webhook URL saved"})
	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleWebhookTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	if err := s.cfg.Webhook.SendTest(r.Context()); err != nil {
		if errors.Is(err, sharedErrors.ErrWebhookNotConfigured) {
			s.writeError(w, r, http.StatusBadRequest, err)
			return
		}
		s.requestLogger(r).Warn("webhook_test_failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "webhook delivery failed"})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: "Test notification sent"})
}
