package agent

import (
	"encoding/json"
	"fmt"
	"runtime"
)

// ErrorContext is the error-like branch of the call-context union. Diagnostic
// fields of native error values do not survive generic serialization, so
// callers (and CaptureError) lift them into this explicit shape.
type ErrorContext struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// CaptureError lifts a Go error into an ErrorContext, recording the current
// goroutine stack as the trace.
func CaptureError(err error) ErrorContext {
	if err == nil {
		return ErrorContext{}
	}
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return ErrorContext{
		Name:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Stack:   string(buf[:n]),
	}
}

// serializeContext renders the call context for transmission. Strings pass
// through unchanged, error-like values are serialized from their extracted
// fields, anything else is pretty-printed JSON.
func serializeContext(v any) (string, error) {
	switch c := v.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	case ErrorContext:
		return marshalErrorContext(c)
	case *ErrorContext:
		if c == nil {
			return "", nil
		}
		return marshalErrorContext(*c)
	case error:
		return marshalErrorContext(ErrorContext{
			Name:    fmt.Sprintf("%T", c),
			Message: c.Error(),
		})
	default:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to serialize context: %w", err)
		}
		return string(data), nil
	}
}

func marshalErrorContext(ec ErrorContext) (string, error) {
	data, err := json.MarshalIndent(map[string]string{
		"name":    ec.Name,
		"message": ec.Message,
		"stack":   ec.Stack,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize error context: %w", err)
	}
	return string(data), nil
}

// anonymizeContext redacts every string inside the context value, keeping the
// union branch intact so serialization still sees the right shape.
func anonymizeContext(v any, redact func(string) string, redactValue func(any) any) any {
	switch c := v.(type) {
	case nil:
		return nil
	case string:
		return redact(c)
	case ErrorContext:
		return ErrorContext{
			Name:    redact(c.Name),
			Message: redact(c.Message),
			Stack:   redact(c.Stack),
		}
	case *ErrorContext:
		if c == nil {
			return nil
		}
		return ErrorContext{
			Name:    redact(c.Name),
			Message: redact(c.Message),
			Stack:   redact(c.Stack),
		}
	case error:
		return ErrorContext{
			Name:    fmt.Sprintf("%T", c),
			Message: redact(c.Error()),
		}
	default:
		return redactValue(c)
	}
}
