package analyst

import "fmt"

// ConfigError means no API credential is configured. It is raised before any
// network call is attempted.
type ConfigError struct{}

func (e *ConfigError) Error() string {
	return "no API credential configured; set OPENAI_API_KEY to enable answers"
}

// UpstreamError wraps a failed, timed out, or malformed completion call.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream model call failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
