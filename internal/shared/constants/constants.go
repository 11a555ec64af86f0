package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// HTTPFetchTimeout bounds the header fetch of a probe.
	HTTPFetchTimeout = 5 * time.Second
	// PortDialTimeout bounds each port connection attempt.
	PortDialTimeout = 1 * time.Second
	// DefaultPortWorkers is the size of the port-probe worker pool.
	DefaultPortWorkers = 6
	// WebhookTimeout bounds a single notification delivery.
	WebhookTimeout = 5 * time.Second
)

const (
	// MaxUploadBytes caps the size of an uploaded file accepted by the API.
	MaxUploadBytes = 32 << 20
	// ScansFileName is the history store inside the results directory.
	ScansFileName = "scans.json"
	// SchedulesFileName is the recurring-scan store inside the results directory.
	SchedulesFileName = "schedules.json"
	// AnalyticsTrendPoints is the number of recent scans in the trend series.
	AnalyticsTrendPoints = 10
)
