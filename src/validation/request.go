package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrValidationFailed marks request-level validation errors so handlers can
// map them to 400 responses.
var ErrValidationFailed = errors.New("request validation failed")

// ValidateRawText checks the raw request body before it enters the pipeline.
// The text itself is never altered here; fingerprinting requires the exact
// bytes the caller sent.
func ValidateRawText(text string, maxBytes int64) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: transaction text is required", ErrValidationFailed)
	}
	if int64(len(text)) > maxBytes {
		return fmt.Errorf("%w: transaction text exceeds %d bytes", ErrValidationFailed, maxBytes)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: transaction text is not valid UTF-8", ErrValidationFailed)
	}
	return nil
}
