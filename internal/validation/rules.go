// Package validation provides custom validation rules for the application.
package validation

import (
	"strings"
	"unicode"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/envoy-gateway/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// Printable validates that a string holds no control characters
var Printable = validation.NewStringRuleWithError(
	func(s string) bool {
		for _, r := range s {
			if unicode.IsControl(r) {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_printable", "must not contain control characters"),
)

// ObjectName validates a single storage object name segment.
// Path separators and dot segments are rejected so a name never escapes its prefix.
var ObjectName = validation.NewStringRuleWithError(
	func(s string) bool {
		if s == "." || s == ".." {
			return false
		}
		return !strings.ContainsAny(s, `/\`)
	},
	validation.NewError("validation_object_name", "must not contain path separators"),
)
