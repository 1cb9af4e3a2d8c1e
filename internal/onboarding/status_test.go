package onboarding

import (
	"testing"
)

func TestMapStatusToStep_KnownStatuses(t *testing.T) {
	cases := map[string]Step{
		"started":                        StepWaitingCallback,
		"url_generated":                  StepWaitingCallback,
		"awaiting_callback":              StepWaitingCallback,
		"business_verification_pending":  StepBusinessVerify,
		"business_verification_required": StepBusinessVerify,
		"token_exchanged":                StepPhoneRegister,
		"callback_processed":             StepPhoneRegister,
		"otp_sent":                       StepOTPVerify,
		"otp_verified":                   StepSystemUser,
		"phone_verified":                 StepSystemUser,
		"system_user_created":            StepActivate,
		"waba_activated":                 StepComplete,
		"failed":                         StepFailed,
	}

	for status, want := range cases {
		if got := MapStatusToStep(status); got != want {
			t.Errorf("MapStatusToStep(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestMapStatusToStep_UnknownOrEmpty(t *testing.T) {
	for _, status := range []string{"", "bogus", "WABA_ACTIVATED", "token-exchanged", "  "} {
		if got := MapStatusToStep(status); got != StepStart {
			t.Errorf("MapStatusToStep(%q) = %q, want %q", status, got, StepStart)
		}
	}
}

func TestStepIsTerminal(t *testing.T) {
	terminal := map[Step]bool{
		StepStart:           false,
		StepWaitingCallback: false,
		StepBusinessVerify:  false,
		StepPhoneRegister:   false,
		StepOTPVerify:       false,
		StepSystemUser:      false,
		StepActivate:        false,
		StepComplete:        true,
		StepFailed:          true,
	}

	for step, want := range terminal {
		if got := step.IsTerminal(); got != want {
			t.Errorf("%q.IsTerminal() = %v, want %v", step, got, want)
		}
	}
}
