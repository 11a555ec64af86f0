package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/cybershield/shieldscan/internal/application/assessment"
	"github.com/cybershield/shieldscan/internal/application/scheduling"
	"github.com/cybershield/shieldscan/internal/domain/finding"
	jsonrepo "github.com/cybershield/shieldscan/internal/infrastructure/persistence/json"
	"github.com/cybershield/shieldscan/internal/inspector"
	"github.com/cybershield/shieldscan/internal/notify"
)

type stubProber struct{}

func (stubProber) Run(context.Context, string) []finding.Finding {
	return []finding.Finding{{
		Check:         "SSL/TLS",
		Vulnerability: "Not using HTTPS",
		Severity:      finding.SeverityHigh,
		Description:   "Communication is not encrypted.",
	}}
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	repo, err := jsonrepo.NewScanRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewScanRepository: %v", err)
	}
	schedules, err := jsonrepo.NewScheduleRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewScheduleRepository: %v", err)
	}
	logger := zaptest.NewLogger(t)
	svc := assessment.NewService(assessment.Deps{
		Prober:    stubProber{},
		Scans:     repo,
		Inspector: &inspector.Inspector{TempDir: t.TempDir()},
		Logger:    logger,
	})
	cfg := Config{
		Assessment: svc,
		Schedules: scheduling.NewService(scheduling.Deps{
			Schedules: schedules,
			Prober:    svc,
			Logger:    logger,
		}),
		Webhook: notify.NewDispatcher("", logger),
		Logger:  logger,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewServer(cfg)
}

func doJSON(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func uploadRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(uploadField, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"status": "ok"})

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected application/json content-type, got %s", got)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestWriteErrorInternal(t *testing.T) {
	s := &Server{cfg: Config{Logger: zaptest.NewLogger(t)}}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)

	rr := httptest.NewRecorder()
	s.writeError(rr, req, http.StatusInternalServerError, errors.New("boom"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "internal server error") || strings.Contains(rr.Body.String(), "boom") {
		t.Fatalf("expected sanitized message, got %s", rr.Body.String())
	}
}

func TestWriteErrorClient(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	s.writeError(rr, req, http.StatusBadRequest, errors.New("bad input"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bad input") {
		t.Fatalf("expected original error message, got %s", rr.Body.String())
	}
}

func TestHealthBothPrefixes(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/api/v1/health", "/api/health"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rr.Code)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Errorf("%s: expected request ID header", path)
		}
	}

	if rr := doJSON(t, srv, http.MethodPost, "/api/v1/health", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestScanRequiresConsent(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := doJSON(t, srv, http.MethodPost, "/api/v1/scan", ScanRequest{URL: "http://example.com"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "consent") {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestScanLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/scan", ScanRequest{URL: "http://example.com", Consent: true})
	if rr.Code != http.StatusOK {
		t.Fatalf("scan: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var result assessment.ProbeResult
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode scan: %v", err)
	}
	if result.ScanID != 1 || result.Analysis.RiskScore != 80 {
		t.Errorf("unexpected scan result: %+v", result)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/scans/1", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"scan_details"`) {
		t.Errorf("get scan: %d %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/history?skip=0&limit=5", nil)
	var history []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &history); err != nil || len(history) != 1 {
		t.Errorf("history: %v %s", err, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/v1/analytics", nil)
	if !strings.Contains(rr.Body.String(), `"vulnerability_distribution"`) {
		t.Errorf("analytics: %s", rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/v1/history", DeleteRequest{ScanIDs: []int{1}})
	var del DeleteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &del); err != nil || del.Deleted != 1 {
		t.Errorf("delete: %v %s", err, rr.Body.String())
	}

	if rr := doJSON(t, srv, http.MethodGet, "/api/v1/scans/1", nil); rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestScanByIDInvalid(t *testing.T) {
	srv := newTestServer(t, nil)
	if rr := doJSON(t, srv, http.MethodGet, "/api/v1/scans/abc", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestDeleteWithoutIDs(t *testing.T) {
	srv := newTestServer(t, nil)
	if rr := doJSON(t, srv, http.MethodDelete, "/api/history", DeleteRequest{}); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestAuditUpload(t *testing.T) {
	srv := newTestServer(t, nil)
	req := uploadRequest(t, "/api/v1/audit/upload", "users.csv", []byte("name,email\nann,ann@example.com\n"))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var res assessment.FileResult
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.FileType != inspector.FileTypeCSV || res.SecurityScore != 85 || len(res.Vulnerabilities) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAuditUploadLimits(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.MaxUploadBytes = 8 })

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, uploadRequest(t, "/api/v1/audit/upload", "big.txt", []byte("0123456789")))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, uploadRequest(t, "/api/v1/audit/upload", "empty.txt", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty upload, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/v1/audit/upload", map[string]string{"file": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without multipart file, got %d", rr.Code)
	}
}

func TestAuditLogs(t *testing.T) {
	srv := newTestServer(t, nil)
	logs := `192.168.1.5 - - [10/Oct/2023:13:55:36 +0000] "GET /index.php?id=1' OR 1=1 HTTP/1.1" 200 1024` + "\n"
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, uploadRequest(t, "/api/v1/audit/logs", "access.log", []byte(logs)))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"valid":true`) || !strings.Contains(rr.Body.String(), "SQL Injection Attempt") {
		t.Errorf("unexpected body: %s", rr.Body.String())
	}
}

func TestChatEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := doJSON(t, srv, http.MethodPost, "/api/v1/ai/chat", ChatRequest{Message: "help"})
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"quick_actions"`) {
		t.Errorf("chat: %d %s", rr.Code, rr.Body.String())
	}

	if rr := doJSON(t, srv, http.MethodPost, "/api/v1/ai/chat", ChatRequest{}); rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty message, got %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/v1/ai/data-chat", map[string]any{
		"query":   "how many rows",
		"context": map[string]any{"headers": []string{"id"}, "rows": [][]any{{1}, {2}}},
	})
	var resp DataChatResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || !strings.Contains(resp.Response, "2") {
		t.Errorf("data-chat: %v %s", err, rr.Body.String())
	}
}

func TestInvalidJSONBody(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestAuthToken(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.AuthToken = "s3cret" })

	if rr := doJSON(t, srv, http.MethodGet, "/api/v1/health", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Auth-Token", "s3cret")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.CORSOrigins = []string{"https://app.example"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/scan", nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for unknown origin, got %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.RateLimit = 1
		c.RateBurst = 1
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rr := doJSON(t, srv, http.MethodGet, "/api/v1/health", nil)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected status sequence %v", codes)
	}
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	srv := newTestServer(t, func(c *Config) {
		c.RateLimit = 1
		c.RateBurst = 1
	})

	limited := false
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rr := httptest.NewRecorder()
		srv.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Error("expected rotating X-Forwarded-For not to bypass the limiter")
	}
}

func TestHistoryDefaultPageSize(t *testing.T) {
	srv := newTestServer(t, nil)
	for i := 0; i < defaultHistoryLimit+2; i++ {
		rr := doJSON(t, srv, http.MethodPost, "/api/v1/scan", ScanRequest{URL: "http://example.com", Consent: true})
		if rr.Code != http.StatusOK {
			t.Fatalf("scan %d: status %d", i, rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/v1/history", nil)
	var history []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != defaultHistoryLimit {
		t.Errorf("history returned %d scans, want %d", len(history), defaultHistoryLimit)
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		remote, forwarded string
		trust             bool
		want              string
	}{
		{"10.0.0.1:5555", "", false, "10.0.0.1"},
		{"10.0.0.1:5555", "203.0.113.9, 10.0.0.2", true, "203.0.113.9"},
		{"10.0.0.1:5555", "203.0.113.9, 10.0.0.2", false, "10.0.0.1"},
		{"[::1]:8080", "", true, "::1"},
		{"pipe", "", false, "pipe"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tt.forwarded)
		}
		if got := clientAddr(req, tt.trust); got != tt.want {
			t.Errorf("clientAddr(%q, %q, %v) = %q, want %q", tt.remote, tt.forwarded, tt.trust, got, tt.want)
		}
	}
}

func TestRateLimiterEviction(t *testing.T) {
	m := &rateLimiterMap{limiters: make(map[string]*ipLimiter)}
	m.getLimiter("10.0.0.1", 5, 5)
	m.evictIdle(m.limiters["10.0.0.1"].lastSeen.Add(limiterIdleTTL + 1))
	if len(m.limiters) != 0 {
		t.Errorf("expected idle limiter to be evicted")
	}
}
