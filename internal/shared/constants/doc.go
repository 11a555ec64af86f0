// Package constants centralizes defaults shared across the CLI, the API and
// the detectors: file permissions, network bounds and storage names.
package constants
