// Package notify delivers scan summaries to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/cybershield/shieldscan/internal/shared/constants"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

// Payload is the summary sent after a probe scan.
type Payload struct {
	RiskScore    int    `json:"risk_score"`
	Summary      string `json:"summary"`
	FindingCount int    `json:"finding_count"`
}

// Notifier delivers the payload of a scan of target.
type Notifier interface {
	Notify(ctx context.Context, target string, p Payload) error
}

// NopNotifier discards every payload.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, string, Payload) error { return nil }

// Embed colors.
const (
	ColorGreen  = 0x22c55e
	ColorOrange = 0xf59e0b
	ColorRed    = 0xef4444
)

// Status thresholds mirror the risk summary tiers.
const (
	secureThreshold    = 80
	attentionThreshold = 50
)

// Status returns the label and embed color for a risk score.
func Status(score int) (string, int) {
	switch {
	case score >= secureThreshold:
		return "Secure", ColorGreen
	case score >= attentionThreshold:
		return "Needs Attention", ColorOrange
	default:
		return "High Risk", ColorRed
	}
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      embedFooter  `json:"footer"`
}

type webhookMessage struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// WebhookNotifier posts a Discord-compatible embed.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

// NewWebhookNotifier returns a notifier with a bounded HTTP client.
func NewWebhookNotifier(url string, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		URL:    url,
		Client: &http.Client{Timeout: constants.WebhookTimeout},
		Logger: logger,
	}
}

// BuildMessage renders the embed for a scan of target.
func BuildMessage(target string, p Payload) ([]byte, error) {
	status, color := Status(p.RiskScore)
	summary := p.Summary
	if summary == "" {
		summary = "No summary available."
	}
	msg := webhookMessage{
		Username: "CyberShield AI",
		Embeds: []embed{{
			Title:       fmt.Sprintf("New Security Scan Completed: %s", target),
			Description: fmt.Sprintf("**Risk Score**: %d/100\n**Summary**: %s", p.RiskScore, summary),
			Color:       color,
			Fields: []embedField{
				{Name: "Vulnerabilities Found", Value: strconv.Itoa(p.FindingCount), Inline: true},
				{Name: "Status", Value: status, Inline: true},
			},
			Footer: embedFooter{Text: "CyberShield Professional"},
		}},
	}
	return json.Marshal(msg)
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, target string, p Payload) error {
	if n.URL == "" {
		return sharedErrors.ErrWebhookNotConfigured
	}
	body, err := BuildMessage(target, p)
	if err != nil {
		return fmt.Errorf("encode webhook message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, constants.WebhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: constants.WebhookTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: status %d", sharedErrors.ErrWebhookRejected, resp.StatusCode)
	}

	if n.Logger != nil {
		n.Logger.Debug("webhook delivered",
			zap.String("target", target),
			zap.Int("risk_score", p.RiskScore),
			zap.Int("status", resp.StatusCode),
		)
	}
	return nil
}
