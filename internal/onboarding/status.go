package onboarding

// Step is the client-side onboarding stage. It is always derivable from the
// last backend-reported status via MapStatusToStep.
type Step string

const (
	StepStart           Step = "start"
	StepWaitingCallback Step = "waiting_callback"
	StepBusinessVerify  Step = "business_verify"
	StepPhoneRegister   Step = "phone_register"
	StepOTPVerify       Step = "otp_verify"
	StepSystemUser      Step = "system_user"
	StepActivate        Step = "activate"
	StepComplete        Step = "complete"
	StepFailed          Step = "failed"
)

// IsTerminal reports whether no further automatic transitions occur.
func (s Step) IsTerminal() bool {
	return s == StepComplete || s == StepFailed
}

var statusSteps = map[string]Step{
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

// MapStatusToStep converts a backend status string into the step the UI
// should show. Unknown or absent statuses map to the beginning of the flow;
// the function is total and never fails.
func MapStatusToStep(backendStatus string) Step {
	if step, ok := statusSteps[backendStatus]; ok {
		return step
	}
	return StepStart
}
