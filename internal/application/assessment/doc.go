// Package assessment orchestrates the detectors for the CLI and the API.
//
// A Service runs the probe suite and the risk assessor for live targets,
// the content scanner and structural inspector for uploaded files, and the
// log detector for access logs. Probe scans are stored in the scan
// repository and announced through the configured notifier.
package assessment
