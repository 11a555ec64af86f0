package cmd

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"

	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

func TestStoreAndGetAppContext(t *testing.T) {
	original := globalAppContext
	defer func() {
		globalAppContext = original
	}()

	c := &cobra.Command{Use: "root"}
	appCtx := &AppContext{ResultsDir: "/tmp/x"}

	storeAppContext(c, appCtx)

	if got := getAppContext(c); got != appCtx {
		t.Fatalf("expected stored app context to be returned")
	}
	if got := getAppContext(&cobra.Command{Use: "other"}); got != appCtx {
		t.Fatalf("expected global fallback for commands without context")
	}
}

func TestProbeRequiresConfirm(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	_, err := runCommand(t, probeCmd, appCtx, []string{"http://example.com"}, nil)
	if !errors.Is(err, sharedErrors.ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired, got %v", err)
	}
}

func TestProbeTextOutput(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	out, err := runCommand(t, probeCmd, appCtx, []string{"http://example.com"}, map[string]string{"confirm": "true"})
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	for _, want := range []string{"http://example.com", "scan #1", "80/100", "Not using HTTPS", "Recommendations"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestProbeJSONMultipleTargets(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	out, err := runCommand(t, probeCmd, appCtx, []string{"a.example", "b.example"},
		map[string]string{"confirm": "true", "format": "json"})
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	var results []map[string]any
	if err := stdjson.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("expected JSON array, got %v:\n%s", err, out)
	}
	if len(results) != 2 || results[0]["url"] != "a.example" {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestAuditFileCommand(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	path := filepath.Join(t.TempDir(), "users.csv")
	if err := os.WriteFile(path, []byte("name,email\nann,ann@example.com\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := runCommand(t, auditFileCmd, appCtx, []string{path}, nil)
	if err != nil {
		t.Fatalf("audit file failed: %v", err)
	}
	for _, want := range []string{"users.csv", "CSV Dataset", "85/100", "PII Exposure", "CSV Data"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestAuditFileRejectsEmpty(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := runCommand(t, auditFileCmd, appCtx, []string{path}, nil); !errors.Is(err, sharedErrors.ErrEmptyUpload) {
		t.Fatalf("expected ErrEmptyUpload, got %v", err)
	}
}

func TestAuditLogsCommand(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	path := filepath.Join(t.TempDir(), "access.log")
	logs := `10.0.0.9 - - [10/Oct/2023:13:55:36 +0000] "GET /../../etc/passwd HTTP/1.1" 404 0` + "\n"
	if err := os.WriteFile(path, []byte(logs), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out, err := runCommand(t, auditLogsCmd, appCtx, []string{path}, map[string]string{"format": "yaml"})
	if err != nil {
		t.Fatalf("audit logs failed: %v", err)
	}
	for _, want := range []string{"valid: true", "Directory Traversal", "threat_count: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestHistoryCommands(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	if _, err := appCtx.Services.Assessment.Probe(context.Background(), "http://example.com"); err != nil {
		t.Fatalf("seed probe: %v", err)
	}

	out, err := runCommand(t, historyListCmd, appCtx, nil, nil)
	if err != nil || !strings.Contains(out, "http://example.com") {
		t.Fatalf("history list: %v\n%s", err, out)
	}

	out, err = runCommand(t, historyShowCmd, appCtx, []string{"1"}, nil)
	if err != nil || !strings.Contains(out, "Not using HTTPS") {
		t.Fatalf("history show: %v\n%s", err, out)
	}

	_, err = runCommand(t, historyShowCmd, appCtx, []string{"99"}, nil)
	var notFound *ScanNotFoundError
	if !errors.As(err, &notFound) || notFound.ID != 99 {
		t.Fatalf("expected ScanNotFoundError, got %v", err)
	}

	if _, err := runCommand(t, historyShowCmd, appCtx, []string{"abc"}, nil); !errors.Is(err, sharedErrors.ErrInvalidScanID) {
		t.Fatalf("expected ErrInvalidScanID, got %v", err)
	}

	out, err = runCommand(t, historyStatsCmd, appCtx, nil, nil)
	if err != nil || !strings.Contains(out, "High") {
		t.Fatalf("history stats: %v\n%s", err, out)
	}

	out, err = runCommand(t, historyDeleteCmd, appCtx, []string{"1"}, nil)
	if err != nil || !strings.Contains(out, "Deleted 1 scans") {
		t.Fatalf("history delete: %v\n%s", err, out)
	}

	out, _ = runCommand(t, historyListCmd, appCtx, nil, nil)
	if !strings.Contains(out, "No scans recorded yet.") {
		t.Errorf("expected empty history, got:\n%s", out)
	}
}

func TestReportCommand(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	if _, err := appCtx.Services.Assessment.Probe(context.Background(), "http://example.com"); err != nil {
		t.Fatalf("seed probe: %v", err)
	}

	tests := []struct {
		format string
		check  func(t *testing.T, data []byte)
	}{
		{"md", func(t *testing.T, data []byte) {
			if !strings.Contains(string(data), "# Security Scan Report: http://example.com") ||
				!strings.Contains(string(data), "| High | SSL/TLS | Not using HTTPS |") {
				t.Errorf("unexpected markdown:\n%s", data)
			}
		}},
		{"json", func(t *testing.T, data []byte) {
			if !strings.Contains(string(data), `"scan_details"`) {
				t.Errorf("unexpected json:\n%s", data)
			}
		}},
		{"pdf", func(t *testing.T, data []byte) {
			if !strings.HasPrefix(string(data), "%PDF") {
				t.Errorf("expected PDF header, got %q", data[:8])
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := runCommand(t, reportCmd, appCtx, []string{"1"}, map[string]string{"format": tt.format})
			if err != nil {
				t.Fatalf("report failed: %v", err)
			}
			path := filepath.Join(appCtx.ResultsDir, reportsDirName, "scan-1."+tt.format)
			if !strings.Contains(out, path) {
				t.Errorf("expected report path in output:\n%s", out)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read report: %v", err)
			}
			tt.check(t, data)
		})
	}

	_, err := runCommand(t, reportCmd, appCtx, []string{"1"}, map[string]string{"format": "html"})
	var formatErr *InvalidFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected InvalidFormatError, got %v", err)
	}
}

func TestChatCommand(t *testing.T) {
	appCtx := setupTestAppContext(t, "")

	out, err := runCommand(t, chatCmd, appCtx, []string{"help"}, nil)
	if err != nil || !strings.Contains(out, "Try:") {
		t.Fatalf("chat without scans: %v\n%s", err, out)
	}

	if _, err := appCtx.Services.Assessment.Probe(context.Background(), "http://example.com"); err != nil {
		t.Fatalf("seed probe: %v", err)
	}
	out, err = runCommand(t, chatCmd, appCtx, []string{"what", "is", "my", "risk", "score"}, nil)
	if err != nil || !strings.Contains(out, "80/100") {
		t.Fatalf("chat latest scan: %v\n%s", err, out)
	}

	_, err = runCommand(t, chatCmd, appCtx, []string{"risk"}, map[string]string{"scan": "42"})
	var notFound *ScanNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ScanNotFoundError, got %v", err)
	}
}

func TestNotifyTestCommand(t *testing.T) {
	appCtx := setupTestAppContext(t, "")
	if _, err := runCommand(t, notifyTestCmd, appCtx, nil, nil); !errors.Is(err, sharedErrors.ErrWebhookNotConfigured) {
		t.Fatalf("expected ErrWebhookNotConfigured, got %v", err)
	}

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	appCtx = setupTestAppContext(t, srv.URL)
	out, err := runCommand(t, notifyTestCmd, appCtx, nil, nil)
	if err != nil {
		t.Fatalf("notify test failed: %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 || !strings.Contains(out, "Test notification sent") {
		t.Errorf("expected one webhook call, got %d:\n%s", hits, out)
	}
}

func TestScheduleCommands(t *testing.T) {
	appCtx := setupTestAppContext(t, "")

	if _, err := runCommand(t, scheduleAddCmd, appCtx, []string{"http://example.com"}, map[string]string{"frequency": "hourly"}); !errors.Is(err, sharedErrors.ErrInvalidFrequency) {
		t.Fatalf("expected ErrInvalidFrequency, got %v", err)
	}

	out, err := runCommand(t, scheduleAddCmd, appCtx, []string{"http://example.com"}, map[string]string{"frequency": "weekly"})
	if err != nil {
		t.Fatalf("schedule add failed: %v", err)
	}
	if !strings.Contains(out, "Schedule #1: weekly http://example.com") {
		t.Errorf("unexpected add output:\n%s", out)
	}

	if _, err := runCommand(t, scheduleRunCmd, appCtx, nil, nil); !errors.Is(err, sharedErrors.ErrConsentRequired) {
		t.Fatalf("expected ErrConsentRequired, got %v", err)
	}
	out, err = runCommand(t, scheduleRunCmd, appCtx, nil, map[string]string{"confirm": "true"})
	if err != nil {
		t.Fatalf("schedule run failed: %v", err)
	}
	if !strings.Contains(out, "No schedules due.") {
		t.Errorf("fresh schedule should not be due:\n%s", out)
	}

	ctx := context.Background()
	sc, err := appCtx.Services.ScheduleRepo.FindByID(ctx, 1)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	sc.NextRun = time.Now().Add(-time.Hour)
	if err := appCtx.Services.ScheduleRepo.Save(ctx, sc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err = runCommand(t, scheduleRunCmd, appCtx, nil, map[string]string{"confirm": "true"})
	if err != nil {
		t.Fatalf("schedule run failed: %v", err)
	}
	if !strings.Contains(out, "#1 http://example.com: scan #1, risk 80/100") {
		t.Errorf("unexpected run output:\n%s", out)
	}

	out, err = runCommand(t, scheduleListCmd, appCtx, nil, map[string]string{"format": "json"})
	if err != nil {
		t.Fatalf("schedule list failed: %v", err)
	}
	var listed []map[string]any
	if err := stdjson.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0]["last_scan_id"] != float64(1) {
		t.Errorf("unexpected schedules: %v", listed)
	}

	if _, err := runCommand(t, scheduleDeleteCmd, appCtx, []string{"x"}, nil); !errors.Is(err, sharedErrors.ErrInvalidScheduleID) {
		t.Errorf("expected ErrInvalidScheduleID, got %v", err)
	}
	if _, err := runCommand(t, scheduleDeleteCmd, appCtx, []string{"1"}, nil); err != nil {
		t.Fatalf("schedule delete failed: %v", err)
	}
	if _, err := runCommand(t, scheduleDeleteCmd, appCtx, []string{"1"}, nil); !errors.Is(err, sharedErrors.ErrScheduleNotFound) {
		t.Errorf("expected ErrScheduleNotFound, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	appCtx := setupTestAppContext(t, "")

	out, err := runCommand(t, versionCmd, appCtx, nil, nil)
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "shield version dev") {
		t.Fatalf("unexpected version output %q", out)
	}

	out, err = runCommand(t, versionCmd, appCtx, nil, map[string]string{"format": "json"})
	if err != nil {
		t.Fatalf("version --format json failed: %v", err)
	}
	if !strings.Contains(out, `"version": "dev"`) || !strings.Contains(out, `"go_version"`) {
		t.Errorf("unexpected JSON output %q", out)
	}
}
