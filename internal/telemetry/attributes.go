// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	PaperlessAPIVersionKey = "paperless.api_version"
	DocumentIDKey          = "paperless.document.id"
	DocumentTitleKey       = "paperless.document.title"
	ObjectTypeKey          = "paperless.object.type"
	ObjectNameKey          = "paperless.object.name"

	TaskNameKey    = "task.name"
	TaskExecuteKey = "task.execute"
	TaskRunIDKey   = "task.run_id"
	TaskOutcomeKey = "task.outcome"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// DocumentAttributes describes the document a span operates on. The title is
// omitted when empty.
func DocumentAttributes(id int, title string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int(DocumentIDKey, id)}
	if title != "" {
		attrs = append(attrs, attribute.String(DocumentTitleKey, title))
	}
	return attrs
}

// ObjectAttributes describes a Paperless object lookup or creation.
func ObjectAttributes(objectType, name string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ObjectTypeKey, objectType),
		attribute.String(ObjectNameKey, name),
	}
}

// TaskAttributes describes an automation task run.
func TaskAttributes(task, runID string, execute bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TaskNameKey, task),
		attribute.String(TaskRunIDKey, runID),
		attribute.Bool(TaskExecuteKey, execute),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
