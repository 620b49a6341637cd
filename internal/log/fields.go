package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldRunID     = "run_id"
	FieldUserID    = "user_id"

	// Pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldProvider  = "provider"
	FieldCategory  = "category"
	FieldTitle     = "title"

	// State fields
	FieldAccepted   = "accepted"
	FieldDuplicates = "duplicates"
	FieldFiltered   = "filtered"
	FieldStreams    = "streams"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"
	FieldKey     = "key"
)
