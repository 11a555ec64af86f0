package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		score  int
		status string
		color  int
	}{
		{100, "Secure", ColorGreen},
		{80, "Secure", ColorGreen},
		{79, "Needs Attention", ColorOrange},
		{50, "Needs Attention", ColorOrange},
		{49, "High Risk", ColorRed},
		{0, "High Risk", ColorRed},
	}
	for _, tt := range tests {
		status, color := Status(tt.score)
		if status != tt.status || color != tt.color {
			t.Errorf("Status(%d) = %s/%#x, want %s/%#x", tt.score, status, color, tt.status, tt.color)
		}
	}
}

func TestWebhookNotifierPostsEmbed(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("invalid JSON body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, zaptest.NewLogger(t))
	err := n.Notify(context.Background(), "http://test.com", Payload{
		RiskScore:    85,
		Summary:      "This is a test notification.",
		FindingCount: 3,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if received["username"] != "CyberShield AI" {
		t.Errorf("unexpected username: %v", received["username"])
	}
	embeds, ok := received["embeds"].([]any)
	if !ok || len(embeds) != 1 {
		t.Fatalf("expected one embed, got %v", received["embeds"])
	}
	e := embeds[0].(map[string]any)
	if e["title"] != "New Security Scan Completed: http://test.com" {
		t.Errorf("unexpected title: %v", e["title"])
	}
	fields := e["fields"].([]any)
	first := fields[0].(map[string]any)
	second := fields[1].(map[string]any)
	if first["value"] != "3" || second["value"] != "Secure" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestWebhookNotifierRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, nil).Notify(context.Background(), "http://x", Payload{})
	if !errors.Is(err, sharedErrors.ErrWebhookRejected) {
		t.Errorf("expected ErrWebhookRejected, got %v", err)
	}
}

func TestWebhookNotifierNotConfigured(t *testing.T) {
	err := (&WebhookNotifier{}).Notify(context.Background(), "http://x", Payload{})
	if !errors.Is(err, sharedErrors.ErrWebhookNotConfigured) {
		t.Errorf("expected ErrWebhookNotConfigured, got %v", err)
	}
}

func TestNopNotifier(t *testing.T) {
	if err := (NopNotifier{}).Notify(context.Background(), "http://x", Payload{}); err != nil {
		t.Errorf("NopNotifier returned %v", err)
	}
}
