package checker

import (
	"net/url"
	"strings"

	sharedErrors "github.com/cybershield/shieldscan/internal/shared/errors"
)

// TargetInfo contains parsed target information
type TargetInfo struct {
	Original string // as supplied by the caller
	Scheme   string
	Host     string // hostname without port
	Port     string
	FullURL  string // normalized URL used for HTTP requests
}

// ParseTarget parses a target string into structured components. A target
// without a scheme is treated as http:
//   - example.com
//   - https://example.com:443/path
//   - example.com:8080
func ParseTarget(target string) *TargetInfo {
	info := &TargetInfo{Original: target}

	parsed, err := url.Parse(target)
	// "localhost:8080" parses as scheme "localhost" with an opaque part
	if err != nil || parsed.Host == "" {
		parsed, err = url.Parse("http://" + target)
	}
	if err != nil || parsed == nil {
		return info
	}

	info.Scheme = parsed.Scheme
	info.Host = parsed.Hostname()
	info.Port = parsed.Port()
	info.FullURL = parsed.String()
	return info
}

// ExtractHost returns the bare hostname of a target, or "" if none.
func ExtractHost(target string) string {
	return ParseTarget(target).Host
}

// ValidateTarget rejects targets that cannot be probed at all.
func ValidateTarget(target string) error {
	if strings.TrimSpace(target) == "" {
		return sharedErrors.ErrEmptyTarget
	}
	return nil
}

// IsHTTPS reports whether the raw target begins with the https scheme.
func IsHTTPS(target string) bool {
	return strings.HasPrefix(target, "https")
}
