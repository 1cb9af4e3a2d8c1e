package onboarding

import (
	"strings"
)

// Kind buckets a failure by what the user can do about it.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindRetryable       Kind = "retryable"
	KindRestartRequired Kind = "restart_required"
	KindPollTimeout     Kind = "poll_timeout"
	KindFatal           Kind = "fatal"
)

// FlowError is a classified onboarding failure. Raw keeps the original
// backend message for display next to the friendly one.
type FlowError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}

func (e *FlowError) Error() string {
	return e.Message
}

func validationError(message string) *FlowError {
	return &FlowError{Kind: KindValidation, Message: message}
}

// Backend error messages embed machine-readable code substrings; the tables
// below pattern-match them the same way the backend emits them.
var restartRequiredCodes = []string{
	"NO_CALLBACK_CODE",
	"CODE_EXPIRED",
	"STATE_VERIFICATION_FAILED",
	"INVALID_WABA_PHONE",
	"PHONE_WABA_MISMATCH",
}

var retryableMarkers = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"timeout",
	"timed out",
	"temporarily unavailable",
	"connection refused",
	"connection reset",
}

var restartMessages = map[string]string{
	"NO_CALLBACK_CODE":          "Meta did not return an authorization code. Please restart the signup.",
	"CODE_EXPIRED":              "The authorization code expired. Please restart the signup.",
	"STATE_VERIFICATION_FAILED": "The signup session could not be verified. Please restart the signup.",
	"INVALID_WABA_PHONE":        "The phone number is not valid for this WhatsApp Business Account. Please restart the signup.",
	"PHONE_WABA_MISMATCH":       "The phone number does not belong to the connected WhatsApp Business Account. Please restart the signup.",
}

// Classify maps any error to a FlowError. Already-classified errors pass
// through; everything unrecognized becomes fatal with the raw message kept.
func Classify(err error) *FlowError {
	if err == nil {
		return nil
	}
	if fe, ok := err.(*FlowError); ok {
		return fe
	}

	msg := err.Error()
	for _, code := range restartRequiredCodes {
		if strings.Contains(msg, code) {
			return &FlowError{
				Kind:    KindRestartRequired,
				Message: restartMessages[code],
				Raw:     msg,
			}
		}
	}

	lower := strings.ToLower(msg)
	for _, marker := range retryableMarkers {
		if strings.Contains(lower, marker) {
			return &FlowError{
				Kind:    KindRetryable,
				Message: "The request could not be completed right now. Please try again.",
				Raw:     msg,
			}
		}
	}

	return &FlowError{
		Kind:    KindFatal,
		Message: "Something went wrong. " + msg,
		Raw:     msg,
	}
}
