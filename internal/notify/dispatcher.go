package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/cybershield/shieldscan/internal/shared/constants"
	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

// Sample delivery used to check a webhook end to end.
const (
	TestTarget  = "http://test.com"
	TestSummary = "This is a test notification."
	TestScore   = 85
)

// Dispatcher holds the process-wide webhook URL. It is initialized from
// configuration at startup; SetURL replaces it until the process exits and
// an empty URL disables delivery. The setting is not persisted.
type Dispatcher struct {
	mu     sync.RWMutex
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewDispatcher returns a Dispatcher starting at rawURL. An invalid URL is
// logged and ignored.
func NewDispatcher(rawURL string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		client: &http.Client{Timeout: constants.WebhookTimeout},
		logger: logger,
	}
	if err := d.SetURL(rawURL); err != nil {
		logger.Warn("ignoring webhook URL", zap.Error(err))
	}
	return d
}

// URL returns the current webhook URL, or "" when delivery is disabled.
func (d *Dispatcher) URL() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url
}

// SetURL validates and stores rawURL. An empty string disables delivery.
func (d *Dispatcher) SetURL(rawURL string) error {
	if rawURL != "" {
		if err := ValidateURL(rawURL); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.url = rawURL
	d.mu.Unlock()
	return nil
}

// Notify delivers p when a URL is set and does nothing otherwise.
func (d *Dispatcher) Notify(ctx context.Context, target string, p Payload) error {
	current := d.URL()
	if current == "" {
		return nil
	}
	n := &WebhookNotifier{URL: current, Client: d.client, Logger: d.logger}
	return n.Notify(ctx, target, p)
}

// SendTest delivers the sample payload, failing when no URL is set.
func (d *Dispatcher) SendTest(ctx context.Context) error {
	if d.URL() == "" {
		return sharedErrors.ErrWebhookNotConfigured
	}
	return d.Notify(ctx, TestTarget, Payload{RiskScore: TestScore, Summary: TestSummary})
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", sharedErrors.ErrInvalidWebhookURL, rawURL)
	}
	return nil
}
