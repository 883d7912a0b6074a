package httpserver

import (
	"regexp"
)

// ValidationError represents a single input validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

var validUserID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateUserID validates a user identifier: non-empty, at most 100
// characters, alphanumeric plus hyphen and underscore. User ids end up as
// vector-store payload filters, so the format is enforced at the boundary.
func ValidateUserID(userID string) ValidationResult {
	if userID == "" {
		return ValidationResult{Valid: false, Errors: []ValidationError{
			{Field: "user_id", Code: "REQUIRED", Message: "user id is required"},
		}}
	}
	if len(userID) > 100 {
		return ValidationResult{Valid: false, Errors: []ValidationError{
			{Field: "user_id", Code: "TOO_LONG", Message: "user id is too long (max 100 characters)"},
		}}
	}
	if !validUserID.MatchString(userID) {
		return ValidationResult{Valid: false, Errors: []ValidationError{
			{Field: "user_id", Code: "INVALID_FORMAT", Message: "user id contains invalid characters"},
		}}
	}
	return ValidationResult{Valid: true}
}
