package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDecodeFailure marks an image that could not be decoded at thumbnail
	// or full resolution. Contained at per-candidate or per-photo granularity.
	ErrDecodeFailure = errors.New("decode failure")
	// ErrMalformedKey marks an unparsable persisted key; the entry is deleted
	// and skipped.
	ErrMalformedKey = errors.New("malformed key")
	// ErrAmbiguousMerge marks a local-only duplicate belonging to more than
	// one episode; it is skipped rather than guessed at.
	ErrAmbiguousMerge = errors.New("ambiguous merge target")
	// ErrQuarantine marks a confirmed unrecoverable data problem; terminal,
	// never retried.
	ErrQuarantine = errors.New("quarantine")
	// ErrNotFound marks a missing record.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error that includes component context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrDecodeFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTerminal reports whether err must not be retried.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrQuarantine)
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
