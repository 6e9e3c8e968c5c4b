package mapper

import (
	"errors"
	"fmt"
)

// MappingError reports a service definition that cannot be lowered into a
// container configuration. It is fatal to that one service; the caller
// decides whether to skip it or abort.
type MappingError struct {
	Service string
	Reason  string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping service %q: %s", e.Service, e.Reason)
}

func mappingErrorf(service, format string, args ...any) error {
	return &MappingError{Service: service, Reason: fmt.Sprintf(format, args...)}
}

// IsMappingError reports whether err is (or wraps) a MappingError.
func IsMappingError(err error) bool {
	var me *MappingError
	return errors.As(err, &me)
}
