package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathEscape indicates the resolved path would escape the base directory.
	ErrPathEscape = errors.New("path escapes base directory")
	// ErrEmptyBase is returned when no base directory is given.
	ErrEmptyBase = errors.New("base directory is required")
)

// ResolveWithin joins elems under base and returns the absolute result, or
// ErrPathEscape when the result lies outside base. Results and report files
// are only ever written through this function.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", ErrEmptyBase
	}

	cleanBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}

	joined := filepath.Join(append([]string{cleanBase}, elems...)...)
	target, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("resolve target path: %w", err)
	}

	rel, err := filepath.Rel(cleanBase, target)
	if err != nil {
		return "", fmt.Errorf("relativize path: %w", err)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}

	return target, nil
}

// DefaultUploadName replaces upload names that sanitize to nothing.
const DefaultUploadName = "upload"

// maxUploadNameLen bounds the name echoed back in reports.
const maxUploadNameLen = 255

// UploadName reduces a client-supplied file name to its final element with
// control characters removed. Directory components from either separator
// style are discarded, so the result never addresses a parent directory.
func UploadName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return DefaultUploadName
	}
	if len(name) > maxUploadNameLen {
		name = name[len(name)-maxUploadNameLen:]
	}
	return name
}
