// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldRunID     = "run_id"
	FieldTask      = "task"
	FieldComponent = "component"
	FieldEvent     = "event"

	// Paperless object fields
	FieldDocumentID    = "document_id"
	FieldDocumentTitle = "document_title"
	FieldObjectType    = "object_type"
	FieldObjectID      = "object_id"
	FieldObjectName    = "object_name"

	// Request fields
	FieldBaseURL    = "base_url"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatus     = "status"
	FieldAttempt    = "attempt"
	FieldAPIVersion = "api_version"

	// Mode fields
	FieldExecute = "execute"
)
