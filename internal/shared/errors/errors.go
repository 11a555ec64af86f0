package errors

import "errors"

// Domain errors
var (
	// Scan errors
	ErrScanNotFound    = errors.New("scan not found")
	ErrConsentRequired = errors.New("legal consent is required to scan a target")
	ErrEmptyTarget     = errors.New("target cannot be empty")
	ErrInvalidScanID   = errors.New("invalid scan ID")
	ErrNoScansSelected = errors.New("no scan IDs provided")

	// Schedule errors
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrInvalidFrequency  = errors.New("frequency must be daily, weekly or monthly")
	ErrInvalidScheduleID = errors.New("invalid schedule ID")

	// Upload errors
	ErrEmptyUpload    = errors.New("uploaded file is empty")
	ErrUploadTooLarge = errors.New("uploaded file exceeds size limit")

	// Notification errors
	ErrWebhookNotConfigured = errors.New("webhook URL is not configured")
	ErrWebhookRejected      = errors.New("webhook rejected the notification")
	ErrInvalidWebhookURL    = errors.New("webhook URL must be an absolute http(s) URL")

	// Repository errors
	ErrRepositoryOperation   = errors.New("repository operation failed")
	ErrSerializationFailed   = errors.New("serialization failed")
	ErrDeserializationFailed = errors.New("deserialization failed")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
