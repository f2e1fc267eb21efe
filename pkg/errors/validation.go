package errors

import (
	"slices"
	"strings"
)

// ValidateWindow checks that a visible column range [minX, maxX) is well formed.
// Empty windows (minX == maxX) are valid and simply render nothing; inverted
// windows and negative origins are rejected.
func ValidateWindow(minX, maxX int64) error {
	if minX < 0 {
		return New(ErrCodeInvalidWindow, "window start %d is negative", minX)
	}
	if minX > maxX {
		return New(ErrCodeInvalidWindow, "window [%d, %d) is inverted", minX, maxX)
	}
	return nil
}

// ValidateRootIndex checks that index selects one of count roots.
// An empty forest always fails with ErrCodeNoTraceData.
func ValidateRootIndex(index, count int) error {
	if count == 0 {
		return New(ErrCodeNoTraceData, "no trace data: the trace has no roots")
	}
	if index < 0 || index >= count {
		return New(ErrCodeNoTraceData, "no trace data: root %d out of range (0-%d)", index, count-1)
	}
	return nil
}

// ValidateFormat checks that format is one of allowed (case-insensitive).
func ValidateFormat(format string, allowed ...string) error {
	if format == "" {
		return New(ErrCodeInvalidFormat, "format cannot be empty")
	}
	if !slices.Contains(allowed, strings.ToLower(format)) {
		return New(ErrCodeInvalidFormat, "invalid format: %s (must be one of %s)", format, strings.Join(allowed, ", "))
	}
	return nil
}

// ValidateSessionID performs a cheap sanity check on externally supplied
// session identifiers before they are used as map or cache keys.
func ValidateSessionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "session id cannot be empty")
	}
	if len(id) > 64 {
		return New(ErrCodeInvalidInput, "session id too long")
	}
	for _, r := range id {
		isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
		if !isHex && r != '-' {
			return New(ErrCodeInvalidInput, "session id contains invalid characters")
		}
	}
	return nil
}
