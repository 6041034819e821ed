package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTopology      = errors.New("topology error")
	ErrOccupancy     = errors.New("occupancy error")
	ErrProducer      = errors.New("producer error")
	ErrCapacity      = errors.New("capacity error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrLocked        = errors.New("locked")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes the edit context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserVisible reports whether err describes a condition the engine cannot
// resolve on its own. Missing media and bad profiles surface to the user;
// structural failures are reverted locally and only reported to the caller.
func UserVisible(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrProducer), errors.Is(err, ErrConfiguration):
		return true
	default:
		return false
	}
}

// Kind returns a short label for the marker carried by err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTopology):
		return "topology"
	case errors.Is(err, ErrOccupancy):
		return "occupancy"
	case errors.Is(err, ErrProducer):
		return "producer"
	case errors.Is(err, ErrCapacity):
		return "capacity"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrLocked):
		return "locked"
	default:
		return "transient"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "engine failure"
	}
	return strings.Join(parts, ": ")
}
