package parser

import (
	"errors"
	"fmt"
)

// ParseError reports a structurally invalid manifest: a missing or
// non-mapping services key, or a service entry that is not a mapping.
// Loading fails as a whole; there is no partial result.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "manifest: " + e.Reason
}

func parseErrorf(format string, args ...any) error {
	return &ParseError{Reason: fmt.Sprintf(format, args...)}
}

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
