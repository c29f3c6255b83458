// Package logging provides a fluent, map-based structured-field builder
// used across the PALD core so every component logs with a consistent
// field vocabulary regardless of the logging backend in use.
package logging

import (
	"time"

	"github.com/sirupsen/logrus"
)

// StandardFields is a chainable builder over a structured field map.
type StandardFields map[string]interface{}

// NewFields returns an empty StandardFields builder.
func NewFields() StandardFields {
	return StandardFields{}
}

func (f StandardFields) Component(name string) StandardFields {
	f["component"] = name
	return f
}

func (f StandardFields) Operation(name string) StandardFields {
	f["operation"] = name
	return f
}

// Resource records a resource type and, when non-empty, its name.
func (f StandardFields) Resource(resourceType, name string) StandardFields {
	f["resource_type"] = resourceType
	if name != "" {
		f["resource_name"] = name
	}
	return f
}

func (f StandardFields) Duration(d time.Duration) StandardFields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Error records err's message, if err is non-nil.
func (f StandardFields) Error(err error) StandardFields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// UserID records id, if non-empty.
func (f StandardFields) UserID(id string) StandardFields {
	if id != "" {
		f["user_id"] = id
	}
	return f
}

func (f StandardFields) RequestID(id string) StandardFields {
	f["request_id"] = id
	return f
}

func (f StandardFields) TraceID(id string) StandardFields {
	f["trace_id"] = id
	return f
}

func (f StandardFields) StatusCode(code int) StandardFields {
	f["status_code"] = code
	return f
}

func (f StandardFields) Method(method string) StandardFields {
	f["method"] = method
	return f
}

func (f StandardFields) URL(url string) StandardFields {
	f["url"] = url
	return f
}

func (f StandardFields) Count(count int) StandardFields {
	f["count"] = count
	return f
}

func (f StandardFields) Size(bytes int64) StandardFields {
	f["size_bytes"] = bytes
	return f
}

func (f StandardFields) Version(version string) StandardFields {
	f["version"] = version
	return f
}

func (f StandardFields) Custom(key string, value interface{}) StandardFields {
	f[key] = value
	return f
}

// ToLogrus converts the builder to logrus.Fields for backends that want it.
func (f StandardFields) ToLogrus() logrus.Fields {
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		fields[k] = v
	}
	return fields
}

// DatabaseFields returns fields for a database operation on a table.
func DatabaseFields(operation, table string) StandardFields {
	return NewFields().Component("database").Operation(operation).Resource("table", table)
}

// HTTPFields returns fields for an HTTP request/response.
func HTTPFields(method, url string, statusCode int) StandardFields {
	return NewFields().Component("http").Method(method).URL(url).StatusCode(statusCode)
}

// ExtractionFields returns fields for a light-extraction operation,
// omitting session when empty (schema-only operations).
func ExtractionFields(operation, sessionID string) StandardFields {
	f := NewFields().Component("extraction").Operation(operation)
	if sessionID != "" {
		f["session_id"] = sessionID
	}
	return f
}

// BiasJobFields returns fields for a bias analysis job operation.
func BiasJobFields(operation, jobID string) StandardFields {
	return NewFields().Component("bias").Operation(operation).Resource("job", jobID)
}

// CheckerFields returns fields for a prerequisite checker run.
func CheckerFields(operation, checkerName string) StandardFields {
	return NewFields().Component("prerequisite").Operation(operation).Custom("checker", checkerName)
}

// MetricsFields returns fields for a recorded metric observation.
func MetricsFields(operation, metricName string, value float64) StandardFields {
	return NewFields().Component("metrics").Operation(operation).
		Custom("metric_name", metricName).Custom("value", value)
}

// SecurityFields returns fields for a security-relevant operation on a
// subject (user, service account, etc.).
func SecurityFields(operation, subject string) StandardFields {
	return NewFields().Component("security").Operation(operation).Custom("subject", subject)
}

// PerformanceFields returns fields describing a timed operation's outcome.
func PerformanceFields(operation string, d time.Duration, success bool) StandardFields {
	return NewFields().Component("performance").Operation(operation).
		Duration(d).Custom("success", success)
}
