package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/cybershield/shieldscan/internal/assistant"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
	"github.com/cybershield/shieldscan/internal/shared/security"
)

const (
	defaultHistoryLimit = 10
	maxJSONBody         = 1 << 20
	multipartOverhead   = 1 << 20
	uploadField         = "file"
)

type ScanRequest struct {
	URL     string `json:"url"`
	Consent bool   `json:"consent"`
}

type DeleteRequest struct {
	ScanIDs []int `json:"scan_ids"`
}

type DeleteResponse struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

type ChatRequest struct {
	Message string            `json:"message"`
	Context assistant.Context `json:"context"`
}

type DataChatRequest struct {
	Query   string                `json:"query"`
	Context assistant.DataContext `json:"context"`
}

type DataChatResponse struct {
	Response string `json:"response"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req ScanRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if !req.Consent {
		s.writeError(w, r, http.StatusBadRequest, sharedErrors.ErrConsentRequired)
		return
	}

	result, err := s.cfg.Assessment.Probe(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		skip := queryInt(r, "skip", 0)
		limit := queryInt(r, "limit", s.cfg.HistoryLimit)
		records, err := s.cfg.Assessment.History(r.Context(), skip, limit)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	case http.MethodDelete:
		var req DeleteRequest
		if !s.decodeJSON(w, r, &req) {
			return
		}
		n, err := s.cfg.Assessment.DeleteScans(r.Context(), req.ScanIDs)
		if err != nil {
			s.writeError(w, r, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, DeleteResponse{
			Deleted: n,
			Message: fmt.Sprintf("Deleted %d scans", n),
		})
	default:
		s.methodNotAllowed(w, r)
	}
}

func (s *Server) handleScanByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	id, err := strconv.Atoi(path.Base(r.URL.Path))
	if err != nil || id <= 0 {
		s.writeError(w, r, http.StatusBadRequest, sharedErrors.ErrInvalidScanID)
		return
	}
	record, err := s.cfg.Assessment.Scan(r.Context(), id)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	analytics, err := s.cfg.Assessment.Analytics(r.Context())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleAuditUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	name, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Assessment.AuditFile(r.Context(), name, data))
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	_, data, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Assessment.AuditLogs(data))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req ChatRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("message: %w", sharedErrors.ErrMissingRequired))
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Chat.Respond(req.Message, req.Context))
}

func (s *Server) handleDataChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	var req DataChatRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("query: %w", sharedErrors.ErrMissingRequired))
		return
	}
	writeJSON(w, http.StatusOK, DataChatResponse{Response: s.cfg.Analyst.Answer(req.Query, req.Context)})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidInput, err))
		return false
	}
	return true
}

// readUpload returns the multipart "file" part, bounded by MaxUploadBytes.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	limit := s.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, sharedErrors.ErrUploadTooLarge)
			return "", nil, false
		}
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("%s: %w", uploadField, sharedErrors.ErrMissingRequired))
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return "", nil, false
	}
	if int64(len(data)) > limit {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, sharedErrors.ErrUploadTooLarge)
		return "", nil, false
	}
	if len(data) == 0 {
		s.writeError(w, r, http.StatusBadRequest, sharedErrors.ErrEmptyUpload)
		return "", nil, false
	}
	return security.UploadName(header.Filename), data, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sharedErrors.ErrScanNotFound),
		errors.Is(err, sharedErrors.ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, sharedErrors.ErrEmptyTarget),
		errors.Is(err, sharedErrors.ErrConsentRequired),
		errors.Is(err, sharedErrors.ErrNoScansSelected),
		errors.Is(err, sharedErrors.ErrInvalidScanID),
		errors.Is(err, sharedErrors.ErrInvalidInput),
		errors.Is(err, sharedErrors.ErrInvalidFrequency),
		errors.Is(err, sharedErrors.ErrInvalidScheduleID),
		errors.Is(err, sharedErrors.ErrInvalidWebhookURL),
		errors.Is(err, sharedErrors.ErrWebhookNotConfigured):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	q := r.URL.Query().Get(key)
	if q == "" {
		return fallback
	}
	n, err := strconv.Atoi(q)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
