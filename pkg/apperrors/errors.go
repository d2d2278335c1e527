// Package apperrors holds the error taxonomy shared by the pipeline stages.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable marks transport failures against DART, the text
	// generation service or the ingest service.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNoData marks an empty statement or filing result. It is an expected
	// outcome and drives the skip transitions.
	ErrNoData = errors.New("no data")

	ErrFormat = errors.New("invalid amount format")

	ErrAIParse = errors.New("analysis response is not valid structured output")

	ErrAnalysisUnavailable = errors.New("analysis unavailable")

	ErrLoadFailure = errors.New("bulk load failed")
)

// FormatError reports an amount that could not be normalized.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q", ErrFormat.Error(), e.Value)
}

// Is lets errors.Is(err, ErrFormat) match a *FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}
